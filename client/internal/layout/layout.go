// Package layout holds the on-disk locations of a minion installation per platform family
package layout

import (
	"path"
	"strings"

	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

// Layout is the set of candidate locations of a minion installation
type Layout struct {
	windows bool

	ConfigDirs []string
	LogDirs    []string
	CacheDirs  []string
	RunDirs    []string
	// Binaries are the known minion binary locations, most likely first
	Binaries []string
	// Uninstallers are the known vendor uninstaller locations
	Uninstallers []string
	// UnitDir is where the installer writes its own service descriptor
	UnitDir string
	// VendorUnitDirs hold service descriptors shipped by the packages
	VendorUnitDirs []string
	// RemovalPaths are deleted after the package removal chain
	RemovalPaths []string
	TempDir      string
}

// Dirs is the resolved directory set of an installation
type Dirs struct {
	Config string
	Log    string
	Cache  string
	PKI    string
	Run    string
}

var linuxLayout = Layout{
	ConfigDirs: []string{"/etc/salt"},
	LogDirs:    []string{"/var/log/salt"},
	CacheDirs:  []string{"/var/cache/salt"},
	RunDirs:    []string{"/var/run/salt", "/run/salt"},
	Binaries: []string{
		"/usr/bin/salt-minion",
		"/usr/local/bin/salt-minion",
		"/opt/saltstack/salt/bin/salt-minion",
	},
	UnitDir:        "/etc/systemd/system",
	VendorUnitDirs: []string{"/lib/systemd/system", "/usr/lib/systemd/system"},
	RemovalPaths: []string{
		"/etc/salt",
		"/var/cache/salt",
		"/var/log/salt",
		"/var/run/salt",
		"/opt/saltstack",
		"/usr/local/bin/salt-minion",
	},
	TempDir: "/tmp",
}

var windowsRoots = []string{
	`C:\ProgramData\Salt Project\Salt`,
	`C:\Program Files\Salt Project\Salt`,
	`C:\salt`,
}

var windowsLayout = Layout{
	windows:    true,
	ConfigDirs: joinAll(windowsRoots, "conf"),
	LogDirs:    joinAll(windowsRoots, `var\log\salt`),
	CacheDirs:  joinAll(windowsRoots, `var\cache\salt`),
	RunDirs:    joinAll(windowsRoots, `var\run`),
	Binaries: []string{
		`C:\Program Files\Salt Project\Salt\salt-minion.exe`,
		`C:\salt\salt-minion.exe`,
	},
	Uninstallers: []string{
		`C:\Program Files\Salt Project\Salt\uninst.exe`,
		`C:\salt\uninst.exe`,
	},
	RemovalPaths: []string{
		`C:\ProgramData\Salt Project`,
		`C:\Program Files\Salt Project`,
		`C:\salt`,
	},
	TempDir: `C:\Windows\Temp`,
}

// For returns the layout of the platform family
func For(family system.Family) Layout {
	if family.IsWindows() {
		return windowsLayout
	}
	return linuxLayout
}

// Join joins path elements with the separator of the layout's platform
func (l Layout) Join(elem ...string) string {
	if !l.windows {
		return path.Join(elem...)
	}
	return strings.Join(elem, `\`)
}

// Resolve picks, for every directory kind, the first existing candidate, else the first candidate
func (l Layout) Resolve(fs util.FileStore) Dirs {
	dirs := Dirs{
		Config: firstExisting(fs, l.ConfigDirs),
		Log:    firstExisting(fs, l.LogDirs),
		Cache:  firstExisting(fs, l.CacheDirs),
		Run:    firstExisting(fs, l.RunDirs),
	}
	dirs.PKI = l.Join(dirs.Config, "pki", "minion")
	return dirs
}

// InstalledBinary returns the first existing minion binary
func (l Layout) InstalledBinary(fs util.FileStore) (string, bool) {
	for _, b := range l.Binaries {
		if fs.Exists(b) {
			return b, true
		}
	}
	return "", false
}

// UnitPath is the service descriptor written by the installer
func (l Layout) UnitPath(service string) string {
	return path.Join(l.UnitDir, service+".service")
}

func firstExisting(fs util.FileStore, candidates []string) string {
	for _, c := range candidates {
		if fs.Exists(c) {
			return c
		}
	}
	return candidates[0]
}

func joinAll(roots []string, suffix string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		out = append(out, r+`\`+suffix)
	}
	return out
}
