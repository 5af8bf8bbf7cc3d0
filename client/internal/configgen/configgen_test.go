package configgen

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

var (
	ubuntu  = system.Platform{Name: "ubuntu", Family: system.FamilyDebian}
	windows = system.Platform{Name: "windows", Family: system.FamilyWindows}

	request = installer.Request{Version: "3006.4", Master: "10.0.0.5", MasterPort: 4506, MinionID: "host-01"}
)

func newTestGenerator(t *testing.T, runner process.Runner) (*Generator, *util.OSFileStore) {
	t.Helper()
	fs := util.NewFileStore(t.TempDir())
	g := NewGenerator(runner, fs, log.NewEntry(log.New()))
	g.now = func() time.Time { return time.Unix(1700000000, 0) }
	return g, fs
}

func TestWriteLinux(t *testing.T) {
	runner := process.NewFakeRunner()
	g, fs := newTestGenerator(t, runner)

	require.NoError(t, g.Write(context.Background(), ubuntu, request))

	content, err := fs.ReadFile("/etc/salt/minion")
	require.NoError(t, err)
	assert.Contains(t, string(content), "master: 10.0.0.5\n")
	assert.Contains(t, string(content), "id: host-01\n")
	assert.Contains(t, string(content), "master_port: 4506\n")
	assert.Contains(t, string(content), "log_level: warning\n")
	assert.Contains(t, string(content), "pki_dir: /etc/salt/pki/minion\n")

	fragment, err := fs.ReadFile("/etc/salt/minion.d/installer.conf")
	require.NoError(t, err)
	assert.Contains(t, string(fragment), "installed_at:")
	assert.Contains(t, string(fragment), "2023-11-14T22:13:20Z")
	assert.Contains(t, string(fragment), "tcp_keepalive: true")

	logging, err := fs.ReadFile("/etc/salt/logging.conf")
	require.NoError(t, err)
	assert.Contains(t, string(logging), "args=('/var/log/salt/minion.log', 'a', 10485760, 5)")
	assert.Contains(t, string(logging), "format=%(asctime)s")

	for _, sub := range []string{"accepted_keys", "pending_keys", "rejected_keys"} {
		assert.True(t, fs.Exists("/etc/salt/pki/minion/"+sub), sub)
	}
	for _, dir := range []string{"/var/log/salt", "/var/cache/salt", "/var/run/salt"} {
		assert.True(t, fs.Exists(dir), dir)
	}

	for _, s := range []string{"/etc/salt/scripts/backup.sh", "/etc/salt/scripts/check_integrity.sh"} {
		info, err := os.Stat(fs.Path(s))
		require.NoError(t, err, s)
		assert.NotZero(t, info.Mode()&0100, "%s must be executable", s)
	}

	assert.Equal(t, []string{
		"chown -R root:root " + fs.Path("/etc/salt"),
		"chmod -R go-w " + fs.Path("/etc/salt"),
		"chmod -R 700 " + fs.Path("/etc/salt/pki/minion"),
		"chown -R root:root " + fs.Path("/var/log/salt"),
	}, runner.CommandLines(), "permission failures are ignored")
}

func TestWriteWindows(t *testing.T) {
	runner := process.NewFakeRunner()
	g, fs := newTestGenerator(t, runner)
	var restricted []string
	g.restrictDir = func(dir string) error {
		restricted = append(restricted, dir)
		return errors.New("access denied")
	}

	require.NoError(t, g.Write(context.Background(), windows, request), "permission failures are best-effort")

	conf := `C:\ProgramData\Salt Project\Salt\conf`
	assert.True(t, fs.Exists(conf+`\minion`))
	assert.True(t, fs.Exists(conf+`\scripts\backup.ps1`))
	assert.True(t, fs.Exists(conf+`\scripts\check_integrity.ps1`))
	assert.Empty(t, runner.Calls())
	assert.Equal(t, []string{fs.Path(conf + `\pki\minion`)}, restricted)
}

func TestWriteDefaultsPort(t *testing.T) {
	g, _ := newTestGenerator(t, process.NewFakeRunner())
	req := request
	req.MasterPort = 0

	require.NoError(t, g.Write(context.Background(), ubuntu, req))

	cfg, err := g.Read(context.Background(), ubuntu)
	require.NoError(t, err)
	assert.Equal(t, 4506, cfg.MasterPort)
}

func TestReadRoundTrip(t *testing.T) {
	g, _ := newTestGenerator(t, process.NewFakeRunner())
	g.LogLevel = "debug"
	require.NoError(t, g.Write(context.Background(), ubuntu, request))

	cfg, err := g.Read(context.Background(), ubuntu)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Master)
	assert.Equal(t, "host-01", cfg.ID)
	assert.Equal(t, 4506, cfg.MasterPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestReadHandWrittenConfig(t *testing.T) {
	g, fs := newTestGenerator(t, process.NewFakeRunner())
	content := "# edited by hand\nmaster: salt.example.com\n\n# id: ignored\nid: pos-17\n"
	require.NoError(t, fs.WriteFile("/etc/salt/minion", []byte(content), 0640))

	cfg, err := g.Read(context.Background(), ubuntu)
	require.NoError(t, err)
	assert.Equal(t, MinionConfig{
		Master:     "salt.example.com",
		ID:         "pos-17",
		MasterPort: 4506,
		LogLevel:   "warning",
	}, cfg)
}

func TestReadMissing(t *testing.T) {
	g, _ := newTestGenerator(t, process.NewFakeRunner())

	_, err := g.Read(context.Background(), ubuntu)
	assert.Error(t, err)
}

func TestParseLines(t *testing.T) {
	cfg := MinionConfig{MasterPort: 4506}
	parseLines("master: 10.1.1.1\nmaster_port: not-a-port\nlog_level: info\nbroken line\n", &cfg)

	assert.Equal(t, "10.1.1.1", cfg.Master)
	assert.Equal(t, 4506, cfg.MasterPort)
	assert.Equal(t, "info", cfg.LogLevel)
}
