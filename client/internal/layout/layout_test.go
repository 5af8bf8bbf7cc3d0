package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

func TestResolveDefaults(t *testing.T) {
	fs := util.NewFileStore(t.TempDir())

	dirs := For(system.FamilyDebian).Resolve(fs)
	assert.Equal(t, Dirs{
		Config: "/etc/salt",
		Log:    "/var/log/salt",
		Cache:  "/var/cache/salt",
		PKI:    "/etc/salt/pki/minion",
		Run:    "/var/run/salt",
	}, dirs)
}

func TestResolvePrefersExistingCandidate(t *testing.T) {
	fs := util.NewFileStore(t.TempDir())
	require.NoError(t, fs.MkdirAll("/run/salt", 0750))

	dirs := For(system.FamilyRHEL).Resolve(fs)
	assert.Equal(t, "/run/salt", dirs.Run)
}

func TestWindowsLayout(t *testing.T) {
	l := For(system.FamilyWindows)
	dirs := l.Resolve(util.NewFileStore(t.TempDir()))

	assert.Equal(t, `C:\ProgramData\Salt Project\Salt\conf`, dirs.Config)
	assert.Equal(t, `C:\ProgramData\Salt Project\Salt\conf\pki\minion`, dirs.PKI)
	assert.Equal(t, `C:\ProgramData\Salt Project\Salt\var\log\salt`, dirs.Log)
}

func TestInstalledBinary(t *testing.T) {
	fs := util.NewFileStore(t.TempDir())
	l := For(system.FamilyDebian)

	_, ok := l.InstalledBinary(fs)
	assert.False(t, ok)

	require.NoError(t, fs.WriteFile("/opt/saltstack/salt/bin/salt-minion", []byte{}, 0755))
	bin, ok := l.InstalledBinary(fs)
	assert.True(t, ok)
	assert.Equal(t, "/opt/saltstack/salt/bin/salt-minion", bin)
	assert.Equal(t, "/etc/systemd/system/salt-minion.service", l.UnitPath("salt-minion"))
}
