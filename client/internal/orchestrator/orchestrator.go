// Package orchestrator drives the installation workflow from platform detection to a
// verified running service
package orchestrator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/internal/catalog"
	"github.com/netbirdio/minion-installer/client/internal/configgen"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/netprobe"
	"github.com/netbirdio/minion-installer/client/system"
)

const (
	DefaultMaster      = "127.0.0.1"
	DefaultMasterPort  = 4506
	DefaultSettleDelay = 2 * time.Second
)

// State is a step of the installation workflow
type State int

const (
	StateStart State = iota
	StatePlatformDetected
	StateExistingInstallCheck
	StateBackup
	StateConfigCollected
	StateNetworkValidated
	StateUserOverride
	StateDownloaded
	StateInstalled
	StateConfigured
	StateServiceStarted
	StateVerified
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePlatformDetected:
		return "platform-detected"
	case StateExistingInstallCheck:
		return "existing-install-check"
	case StateBackup:
		return "backup"
	case StateConfigCollected:
		return "config-collected"
	case StateNetworkValidated:
		return "network-validated"
	case StateUserOverride:
		return "user-override"
	case StateDownloaded:
		return "downloaded"
	case StateInstalled:
		return "installed"
	case StateConfigured:
		return "configured"
	case StateServiceStarted:
		return "service-started"
	case StateVerified:
		return "verified"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// PlatformDetector identifies the host
type PlatformDetector interface {
	Detect(ctx context.Context) system.Platform
}

// PackageInstaller manages the minion package and its service
type PackageInstaller interface {
	ServiceName() string
	IsInstalled(ctx context.Context, platform system.Platform) bool
	InstalledVersion(ctx context.Context, platform system.Platform) string
	Backup(ctx context.Context, platform system.Platform) (string, error)
	Install(ctx context.Context, pkg string, req installer.Request) error
	CreateService(ctx context.Context, platform system.Platform)
	StartService(ctx context.Context, platform system.Platform) error
	ServiceStatus(ctx context.Context, platform system.Platform) installer.ServiceState
	RemoveService(ctx context.Context, platform system.Platform)
	RemoveInstallation(ctx context.Context, platform system.Platform) error
}

// NetworkProbe checks the master endpoint and reports the local network
type NetworkProbe interface {
	ValidateReachability(ctx context.Context, address string, port int) bool
	Configuration(ctx context.Context) netprobe.Configuration
}

// ReleaseCatalog resolves version requests to artifacts
type ReleaseCatalog interface {
	ListAvailableVersions(ctx context.Context) []string
	Resolve(ctx context.Context, request string, platform system.Platform) (catalog.Artifact, error)
}

// Downloader fetches and verifies artifacts
type Downloader interface {
	DownloadWithChecksum(ctx context.Context, url, dstFile, checksum string) bool
}

// ConfigWriter writes and reads the minion configuration
type ConfigWriter interface {
	Write(ctx context.Context, platform system.Platform, req installer.Request) error
	Read(ctx context.Context, platform system.Platform) (configgen.MinionConfig, error)
}

// Deps are the collaborators of the Orchestrator. The network probe and the downloader
// depend on the platform family and are built once the platform is known
type Deps struct {
	Detector      PlatformDetector
	Installer     PackageInstaller
	Catalog       ReleaseCatalog
	Config        ConfigWriter
	NewNetwork    func(family system.Family) NetworkProbe
	NewDownloader func(family system.Family) Downloader
	Prompter      Prompter
	Out           io.Writer
}

// Config of the Orchestrator
type Config struct {
	// DownloadDir receives the downloaded artifacts
	DownloadDir string
	SettleDelay time.Duration
}

// DefaultConfig returns the workflow settings used by the installer
func DefaultConfig() Config {
	return Config{
		DownloadDir: filepath.Join(os.TempDir(), "minion-installer"),
		SettleDelay: DefaultSettleDelay,
	}
}

// Orchestrator runs the installer workflows
type Orchestrator struct {
	deps  Deps
	cfg   Config
	log   *log.Entry
	state State

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(deps Deps, cfg Config, logger *log.Entry) *Orchestrator {
	if deps.Prompter == nil {
		deps.Prompter = UnattendedPrompter{}
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	return &Orchestrator{
		deps:  deps,
		cfg:   cfg,
		log:   logger,
		state: StateStart,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// State returns the current workflow state
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(next State) {
	o.log.WithField("state", next.String()).Infof("workflow %s -> %s", o.state, next)
	o.state = next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
