package system

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/util"
)

func newTestProbe(t *testing.T, goos string, runner process.Runner) (*Probe, *util.OSFileStore) {
	t.Helper()
	fs := util.NewFileStore(t.TempDir())
	p := NewProbe(runner, fs, log.NewEntry(log.New()))
	p.goos = goos
	p.hostname = func() (string, error) { return "", errors.New("no hostname") }
	p.osInfo = func() (OSInfo, error) { return OSInfo{}, errors.New("no wmi") }
	return p, fs
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		raw    string
		name   string
		family Family
	}{
		{"Ubuntu", "ubuntu", FamilyDebian},
		{"debian", "debian", FamilyDebian},
		{"CentOS Linux", "centos", FamilyRHEL},
		{"rhel", "rhel", FamilyRHEL},
		{"Red Hat Enterprise Linux", "rhel", FamilyRHEL},
		{"Fedora Linux", "fedora", FamilyRHEL},
		{"Microsoft Windows 10 Pro", "windows", FamilyWindows},
		{"Linux", "linux", FamilyLinux},
		{"Arch Linux", "arch linux", FamilyUnsupported},
		{"darwin", "darwin", FamilyUnsupported},
		{"", "unknown", FamilyUnsupported},
	}

	for _, tc := range testCases {
		name, family := Normalize(tc.raw)
		assert.Equal(t, tc.name, name, "name of %q", tc.raw)
		assert.Equal(t, tc.family, family, "family of %q", tc.raw)
	}
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"linux", "ubuntu", "centos", "rhel", "debian", "fedora", "windows"} {
		n, f := Normalize(name)
		assert.True(t, Platform{Name: n, Family: f}.Supported(), name)
	}
	for _, name := range []string{"alpine", "darwin", "freebsd", "arch linux"} {
		n, f := Normalize(name)
		assert.False(t, Platform{Name: n, Family: f}.Supported(), name)
	}
}

func TestDetectUbuntu(t *testing.T) {
	runner := process.NewFakeRunner().
		On("uname -m", process.Outcome{Stdout: "aarch64\n"}).
		On("id -u", process.Outcome{Stdout: "0\n"})
	p, fs := newTestProbe(t, "linux", runner)
	p.hostname = func() (string, error) { return "host-01", nil }

	require.NoError(t, fs.WriteFile(osReleasePath, []byte("NAME=\"Ubuntu\"\nVERSION_ID=\"22.04\"\nID=ubuntu\nID_LIKE=debian\n"), 0644))

	platform := p.Detect(context.Background())
	assert.Equal(t, Platform{
		Name:     "ubuntu",
		Family:   FamilyDebian,
		Version:  "22.04",
		Arch:     "aarch64",
		Hostname: "host-01",
		Elevated: true,
	}, platform)
}

func TestDetectDerivativeUsesName(t *testing.T) {
	runner := process.NewFakeRunner()
	p, fs := newTestProbe(t, "linux", runner)

	require.NoError(t, fs.WriteFile(osReleasePath, []byte("ID=rocky\nNAME=\"CentOS compatible\"\nVERSION_ID=9\n"), 0644))

	platform := p.Detect(context.Background())
	assert.Equal(t, "centos", platform.Name)
	assert.Equal(t, FamilyRHEL, platform.Family)
}

func TestDetectUnsupportedDistribution(t *testing.T) {
	runner := process.NewFakeRunner()
	p, fs := newTestProbe(t, "linux", runner)

	require.NoError(t, fs.WriteFile(osReleasePath, []byte("NAME=\"Alpine Linux\"\nID=alpine\nVERSION_ID=3.19.0\n"), 0644))

	platform := p.Detect(context.Background())
	assert.Equal(t, "alpine", platform.Name)
	assert.False(t, platform.Supported())
}

func TestDetectFallsBackToUname(t *testing.T) {
	runner := process.NewFakeRunner().
		On("uname -s", process.Outcome{Stdout: "Linux\n"}).
		On("uname -r", process.Outcome{Stdout: "6.1.0-13-amd64\n"}).
		On("id -u", process.Outcome{Stdout: "1000\n"}).
		On("hostname", process.Outcome{Stdout: "box\n"})
	p, _ := newTestProbe(t, "linux", runner)

	platform := p.Detect(context.Background())
	assert.Equal(t, "linux", platform.Name)
	assert.Equal(t, FamilyLinux, platform.Family)
	assert.Equal(t, "6.1.0-13-amd64", platform.Version)
	assert.Equal(t, "box", platform.Hostname)
	assert.False(t, platform.Elevated)
	assert.True(t, platform.Supported())
}

func TestDetectNeverFails(t *testing.T) {
	p, _ := newTestProbe(t, "linux", process.NewFakeRunner())

	platform := p.Detect(context.Background())
	assert.Equal(t, DefaultArch, platform.Arch)
	assert.Equal(t, DefaultHostname, platform.Hostname)
	assert.False(t, platform.Elevated)
	assert.Equal(t, "linux", platform.Name)
}

func TestDetectWindows(t *testing.T) {
	runner := process.NewFakeRunner().
		On("powershell", process.Outcome{Stdout: "True\r\n"})
	p, _ := newTestProbe(t, "windows", runner)
	p.osInfo = func() (OSInfo, error) {
		return OSInfo{Caption: "Microsoft Windows Server 2022 Standard", Version: "10.0.20348", OSArchitecture: "64-bit"}, nil
	}

	platform := p.Detect(context.Background())
	assert.Equal(t, "windows", platform.Name)
	assert.Equal(t, FamilyWindows, platform.Family)
	assert.Equal(t, "10.0.20348", platform.Version)
	assert.Equal(t, "64-bit", platform.Arch)
	assert.True(t, platform.Elevated)
}

func TestDetectWindowsFallbacks(t *testing.T) {
	runner := process.NewFakeRunner().
		On("wmic os get Caption,Version,OSArchitecture /value",
			process.Outcome{Stdout: "\r\nCaption=Microsoft Windows 11 Pro\r\nOSArchitecture=64-bit\r\nVersion=10.0.22631\r\n"}).
		On("powershell", process.Outcome{Stdout: "False\r\n"})
	p, _ := newTestProbe(t, "windows", runner)

	platform := p.Detect(context.Background())
	assert.Equal(t, "windows", platform.Name)
	assert.Equal(t, "10.0.22631", platform.Version)
	assert.False(t, platform.Elevated)

	runner = process.NewFakeRunner().
		On("cmd /c ver", process.Outcome{Stdout: "\r\nMicrosoft Windows [Version 10.0.19045.3570]\r\n"})
	p, _ = newTestProbe(t, "windows", runner)

	platform = p.Detect(context.Background())
	assert.Equal(t, "windows", platform.Name)
	assert.Equal(t, "10.0.19045.3570", platform.Version)
	assert.Equal(t, DefaultArch, platform.Arch)
}
