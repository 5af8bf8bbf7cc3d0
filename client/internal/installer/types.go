package installer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for artifacts no strategy can install
var ErrUnsupportedFormat = errors.New("unsupported package format")

// Format is an artifact package format
type Format int

const (
	FormatUnknown Format = iota
	FormatDeb
	FormatRPM
	FormatTarball
	FormatExe
	FormatMSI
)

func (f Format) String() string {
	switch f {
	case FormatDeb:
		return "DEB"
	case FormatRPM:
		return "RPM"
	case FormatTarball:
		return "TARBALL"
	case FormatExe:
		return "EXE"
	case FormatMSI:
		return "MSI"
	default:
		return "UNKNOWN"
	}
}

// formatExtensions is checked in order, so multi part extensions come before their suffixes
var formatExtensions = []struct {
	ext    string
	format Format
}{
	{".deb", FormatDeb},
	{".rpm", FormatRPM},
	{".tar.gz", FormatTarball},
	{".tgz", FormatTarball},
	{".exe", FormatExe},
	{".msi", FormatMSI},
}

// FormatByFileExtension returns the format of the artifact file
func FormatByFileExtension(filePath string) (Format, error) {
	lower := strings.ToLower(filePath)
	for _, e := range formatExtensions {
		if strings.HasSuffix(lower, e.ext) {
			return e.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filePath)
}
