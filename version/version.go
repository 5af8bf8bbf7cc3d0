package version

// will be replaced with the release version when using goreleaser
var version = "development"

// InstallerVersion returns the installer version
func InstallerVersion() string {
	return version
}
