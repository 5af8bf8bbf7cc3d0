package system

import (
	"strings"
)

// Family is the platform family tag produced once per probe and used for every
// platform dependent decision afterwards
type Family int

const (
	FamilyUnsupported Family = iota
	// FamilyDebian covers dpkg based distributions
	FamilyDebian
	// FamilyRHEL covers rpm based distributions
	FamilyRHEL
	// FamilyLinux is a Linux host without a recognized distribution
	FamilyLinux
	FamilyWindows
)

func (f Family) String() string {
	switch f {
	case FamilyDebian:
		return "debian"
	case FamilyRHEL:
		return "rhel"
	case FamilyLinux:
		return "linux"
	case FamilyWindows:
		return "windows"
	default:
		return "unsupported"
	}
}

// IsWindows reports whether the family uses the Windows layout and tooling
func (f Family) IsWindows() bool {
	return f == FamilyWindows
}

const (
	DefaultArch     = "x86_64"
	DefaultHostname = "unknown-host"
)

// Platform is an immutable snapshot of the host
type Platform struct {
	// Name is the normalized OS name, e.g. ubuntu, centos or windows
	Name     string
	Family   Family
	Version  string
	Arch     string
	Hostname string
	Elevated bool
}

var supportedNames = map[string]struct{}{
	"linux":   {},
	"ubuntu":  {},
	"centos":  {},
	"rhel":    {},
	"debian":  {},
	"fedora":  {},
	"windows": {},
}

// Supported reports whether the installer can manage this platform
func (p Platform) Supported() bool {
	if p.Family == FamilyUnsupported {
		return false
	}
	_, ok := supportedNames[p.Name]
	return ok
}

// Normalize maps a raw OS name or os-release ID to the normalized name and its family
func Normalize(raw string) (string, Family) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "ubuntu"):
		return "ubuntu", FamilyDebian
	case strings.Contains(lower, "debian"):
		return "debian", FamilyDebian
	case strings.Contains(lower, "centos"):
		return "centos", FamilyRHEL
	case lower == "rhel" || strings.Contains(lower, "red hat"):
		return "rhel", FamilyRHEL
	case strings.Contains(lower, "fedora"):
		return "fedora", FamilyRHEL
	case strings.Contains(lower, "windows"):
		return "windows", FamilyWindows
	case lower == "linux" || lower == "gnu/linux":
		return "linux", FamilyLinux
	case lower == "":
		return "unknown", FamilyUnsupported
	default:
		return lower, FamilyUnsupported
	}
}
