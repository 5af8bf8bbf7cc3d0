package version

import (
	goversion "github.com/hashicorp/go-version"
)

// Change describes how a target version relates to the installed one
type Change int

const (
	// ChangeUnknown is returned when either version can't be parsed
	ChangeUnknown Change = iota
	ChangeUpgrade
	ChangeDowngrade
	ChangeReinstall
)

func (c Change) String() string {
	switch c {
	case ChangeUpgrade:
		return "upgrade"
	case ChangeDowngrade:
		return "downgrade"
	case ChangeReinstall:
		return "reinstall"
	default:
		return "unknown"
	}
}

// Compare classifies replacing the installed version with the target version
func Compare(installed, target string) Change {
	installedVersion, err := goversion.NewVersion(installed)
	if err != nil {
		return ChangeUnknown
	}
	targetVersion, err := goversion.NewVersion(target)
	if err != nil {
		return ChangeUnknown
	}

	switch {
	case targetVersion.GreaterThan(installedVersion):
		return ChangeUpgrade
	case targetVersion.LessThan(installedVersion):
		return ChangeDowngrade
	default:
		return ChangeReinstall
	}
}
