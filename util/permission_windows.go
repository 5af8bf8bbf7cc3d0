package util

import (
	"fmt"

	"golang.org/x/sys/windows"
)

const (
	securityFlags = windows.OWNER_SECURITY_INFORMATION |
		windows.DACL_SECURITY_INFORMATION |
		windows.PROTECTED_DACL_SECURITY_INFORMATION
)

// RestrictDir limits access to the directory tree to LocalSystem and the Administrators group
func RestrictDir(dir string) error {
	systemSid, err := windows.CreateWellKnownSid(windows.WinLocalSystemSid)
	if err != nil {
		return fmt.Errorf("lookup system sid: %w", err)
	}

	adminGroupSid, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		return fmt.Errorf("lookup administrators sid: %w", err)
	}

	explicitAccess := []windows.EXPLICIT_ACCESS{
		fullControl(systemSid, windows.TRUSTEE_IS_USER),
		fullControl(adminGroupSid, windows.TRUSTEE_IS_WELL_KNOWN_GROUP),
	}

	dacl, err := windows.ACLFromEntries(explicitAccess, nil)
	if err != nil {
		return fmt.Errorf("build acl: %w", err)
	}

	return windows.SetNamedSecurityInfo(dir, windows.SE_FILE_OBJECT, securityFlags, adminGroupSid, nil, dacl, nil)
}

func fullControl(sid *windows.SID, trusteeType windows.TRUSTEE_TYPE) windows.EXPLICIT_ACCESS {
	return windows.EXPLICIT_ACCESS{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       windows.SUB_CONTAINERS_AND_OBJECTS_INHERIT,
		Trustee: windows.TRUSTEE{
			MultipleTrusteeOperation: windows.NO_MULTIPLE_TRUSTEE,
			TrusteeForm:              windows.TRUSTEE_IS_SID,
			TrusteeType:              trusteeType,
			TrusteeValue:             windows.TrusteeValueFromSID(sid),
		},
	}
}
