package orchestrator

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbirdio/minion-installer/client/internal/catalog"
	"github.com/netbirdio/minion-installer/client/internal/configgen"
	"github.com/netbirdio/minion-installer/client/internal/downloader"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

type e2eHost struct {
	runner *process.FakeRunner
	fs     *util.OSFileStore
	inst   *installer.Installer
	out    *bytes.Buffer
	orch   *Orchestrator
	mu     sync.Mutex
	// requested records the artifact paths served by the release server
	requested []string
}

func (h *e2eHost) served() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.requested...)
}

func newE2EHost(t *testing.T) *e2eHost {
	t.Helper()
	h := &e2eHost{out: &bytes.Buffer{}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/manifest.json") {
			http.NotFound(w, r)
			return
		}
		h.mu.Lock()
		h.requested = append(h.requested, r.URL.Path)
		h.mu.Unlock()
		_, _ = w.Write([]byte("package payload"))
	}))
	t.Cleanup(server.Close)

	entry := util.NewDiscardLogger().Component("e2e")

	h.runner = process.NewFakeRunner().
		On("apt-get update", process.Outcome{}).
		OnPrefix("dpkg -i ", process.Outcome{}).
		On("systemctl start salt-minion", process.Outcome{}).
		On("systemctl show salt-minion --property=LoadState,ActiveState", process.Outcome{Stdout: "LoadState=loaded\nActiveState=active\n"})
	h.fs = util.NewFileStore(t.TempDir())
	h.inst = installer.New(h.runner, h.fs, "", entry)

	cfg := catalog.DefaultConfig()
	cfg.ManifestURL = server.URL + "/manifest.json"
	cfg.BaseURL = server.URL
	cfg.RetryMax = 0

	h.orch = New(Deps{
		Detector:  &fakeDetector{platform: ubuntu},
		Installer: h.inst,
		Catalog:   catalog.New(cfg, entry),
		Config:    configgen.NewGenerator(h.runner, h.fs, entry),
		NewNetwork: func(system.Family) NetworkProbe {
			return &fakeNetwork{rec: &recorder{}, reachable: true}
		},
		NewDownloader: func(family system.Family) Downloader {
			return downloader.New(h.runner, family, downloader.HTTPConfig{}, entry)
		},
		Out: h.out,
	}, Config{DownloadDir: t.TempDir(), SettleDelay: time.Millisecond}, entry)
	return h
}

func TestSilentInstallUbuntuEndToEnd(t *testing.T) {
	h := newE2EHost(t)
	ctx := context.Background()

	err := h.orch.Silent(ctx, installer.Request{Master: "10.0.0.5", MinionID: "host-01", Version: "3006.4"})
	require.NoError(t, err)

	served := h.served()
	require.Len(t, served, 1)
	assert.True(t, strings.HasSuffix(served[0], ".deb"), "ubuntu resolves to a deb artifact: %s", served[0])

	lines := h.runner.CommandLines()
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines, "apt-get update")
	var dpkg string
	for _, l := range lines {
		if strings.HasPrefix(l, "dpkg -i ") {
			dpkg = l
		}
	}
	require.NotEmpty(t, dpkg, "the deb install chain must run")
	assert.Equal(t, "salt-minion_3006.4.deb", filepath.Base(strings.TrimPrefix(dpkg, "dpkg -i ")))

	content, err := h.fs.ReadFile("/etc/salt/minion")
	require.NoError(t, err)
	assert.Contains(t, string(content), "master: 10.0.0.5")
	assert.Contains(t, string(content), "id: host-01")

	assert.True(t, h.fs.Exists("/etc/systemd/system/salt-minion.service"))
	assert.Contains(t, h.out.String(), "installation completed successfully")
	assert.Equal(t, StateDone, h.orch.State())
}

func TestUninstallTwiceEndToEnd(t *testing.T) {
	h := newE2EHost(t)
	ctx := context.Background()

	require.NoError(t, h.orch.Silent(ctx, installer.Request{Master: "10.0.0.5", MinionID: "host-01"}))
	require.NoError(t, h.fs.WriteFile("/usr/local/bin/salt-minion", []byte{}, 0755))
	require.True(t, h.inst.IsInstalled(ctx, ubuntu))

	require.NoError(t, h.orch.Uninstall(ctx))
	assert.False(t, h.inst.IsInstalled(ctx, ubuntu))
	assert.False(t, h.fs.Exists("/etc/salt"))
	assert.False(t, h.fs.Exists("/etc/systemd/system/salt-minion.service"))

	require.NoError(t, h.orch.Uninstall(ctx))
	assert.False(t, h.inst.IsInstalled(ctx, ubuntu))
}
