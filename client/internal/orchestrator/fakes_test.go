package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/netbirdio/minion-installer/client/internal/catalog"
	"github.com/netbirdio/minion-installer/client/internal/configgen"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/netprobe"
	"github.com/netbirdio/minion-installer/client/system"
)

// recorder collects the calls made on every fake collaborator
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(format string, a ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, a...))
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Called(prefix string) bool {
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeDetector struct {
	platform system.Platform
}

func (f *fakeDetector) Detect(context.Context) system.Platform {
	return f.platform
}

type fakeInstaller struct {
	rec *recorder

	installed  bool
	version    string
	installErr error
	startErr   error
	status     installer.ServiceState
	removeErr  error
}

func (f *fakeInstaller) ServiceName() string { return installer.DefaultServiceName }

func (f *fakeInstaller) IsInstalled(context.Context, system.Platform) bool {
	f.rec.record("IsInstalled")
	return f.installed
}

func (f *fakeInstaller) InstalledVersion(context.Context, system.Platform) string {
	f.rec.record("InstalledVersion")
	return f.version
}

func (f *fakeInstaller) Backup(context.Context, system.Platform) (string, error) {
	f.rec.record("Backup")
	return "/tmp/salt-backup-1", nil
}

func (f *fakeInstaller) Install(_ context.Context, pkg string, req installer.Request) error {
	f.rec.record("Install %s %s", pkg, req.Version)
	return f.installErr
}

func (f *fakeInstaller) CreateService(context.Context, system.Platform) {
	f.rec.record("CreateService")
}

func (f *fakeInstaller) StartService(context.Context, system.Platform) error {
	f.rec.record("StartService")
	return f.startErr
}

func (f *fakeInstaller) ServiceStatus(context.Context, system.Platform) installer.ServiceState {
	f.rec.record("ServiceStatus")
	return f.status
}

func (f *fakeInstaller) RemoveService(context.Context, system.Platform) {
	f.rec.record("RemoveService")
}

func (f *fakeInstaller) RemoveInstallation(context.Context, system.Platform) error {
	f.rec.record("RemoveInstallation")
	f.installed = false
	return f.removeErr
}

type fakeNetwork struct {
	rec       *recorder
	reachable bool
}

func (f *fakeNetwork) ValidateReachability(_ context.Context, address string, port int) bool {
	f.rec.record("ValidateReachability %s:%d", address, port)
	return f.reachable
}

func (f *fakeNetwork) Configuration(context.Context) netprobe.Configuration {
	f.rec.record("Configuration")
	return netprobe.Configuration{
		Interfaces: []netprobe.Interface{{Name: "eth0", Addresses: []string{"10.0.0.20/24"}}},
		Gateway:    "10.0.0.1",
		DNS:        []string{"1.1.1.1"},
	}
}

type fakeCatalog struct {
	rec      *recorder
	versions []string
}

func (f *fakeCatalog) ListAvailableVersions(context.Context) []string {
	f.rec.record("ListAvailableVersions")
	return f.versions
}

func (f *fakeCatalog) Resolve(_ context.Context, request string, platform system.Platform) (catalog.Artifact, error) {
	f.rec.record("Resolve %s", request)
	v := request
	if v == catalog.Latest {
		v = f.versions[0]
	}
	if platform.Name == "" {
		return catalog.Artifact{}, errors.New("no platform")
	}
	return catalog.Artifact{Version: v, URL: "https://repo.example.com/salt-minion_" + v + ".deb"}, nil
}

type fakeDownloader struct {
	rec *recorder
	ok  bool
}

func (f *fakeDownloader) DownloadWithChecksum(_ context.Context, url, _, _ string) bool {
	f.rec.record("Download %s", url)
	return f.ok
}

type fakeConfig struct {
	rec *recorder
	cfg configgen.MinionConfig
	err error
}

func (f *fakeConfig) Write(_ context.Context, _ system.Platform, req installer.Request) error {
	f.rec.record("WriteConfig %s %s %d", req.Master, req.MinionID, req.MasterPort)
	return f.err
}

func (f *fakeConfig) Read(context.Context, system.Platform) (configgen.MinionConfig, error) {
	f.rec.record("ReadConfig")
	return f.cfg, f.err
}

// scriptedPrompter answers questions in order. An exhausted script answers with defaults
type scriptedPrompter struct {
	answers  []string
	confirms []bool
	asked    []string
}

func (p *scriptedPrompter) Ask(question, def string) string {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return def
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == "" {
		return def
	}
	return a
}

func (p *scriptedPrompter) Confirm(question string, def bool) bool {
	p.asked = append(p.asked, question)
	if len(p.confirms) == 0 {
		return def
	}
	c := p.confirms[0]
	p.confirms = p.confirms[1:]
	return c
}
