// Package installer installs, inspects and removes a minion installation with the
// native mechanisms of the platform, falling back across alternatives
package installer

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/util"
)

const (
	DefaultServiceName = "salt-minion"
	packageName        = "salt-minion"

	defaultBinaryWait = 2 * time.Minute
)

// Request is the installation input collected from prompts or flags
type Request struct {
	Version    string
	Master     string
	MasterPort int
	MinionID   string
}

// State is the installation state of the host
type State int

const (
	StateNotInstalled State = iota
	StateInstalled
	StateServiceCreated
	StateServiceRunning
)

func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateServiceCreated:
		return "service created"
	case StateServiceRunning:
		return "service running"
	default:
		return "not installed"
	}
}

// Installer manages a minion installation
type Installer struct {
	runner    process.Runner
	fs        util.FileStore
	log       *log.Entry
	service   string
	registrar Registrar

	binaryWait time.Duration
	now        func() time.Time
}

func New(runner process.Runner, fs util.FileStore, serviceName string, logger *log.Entry) *Installer {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	return &Installer{
		runner:     runner,
		fs:         fs,
		log:        logger,
		service:    serviceName,
		registrar:  newServiceRegistrar(),
		binaryWait: defaultBinaryWait,
		now:        time.Now,
	}
}

// ServiceName returns the name of the managed service
func (i *Installer) ServiceName() string {
	return i.service
}

// IsInstalled reports whether the service is registered or a minion binary exists
func (i *Installer) IsInstalled(ctx context.Context, platform system.Platform) bool {
	if i.serviceRegistered(ctx, platform) {
		return true
	}

	if bin, ok := layout.For(platform.Family).InstalledBinary(i.fs); ok {
		i.log.Debugf("found minion binary %s", bin)
		return true
	}
	return false
}

func (i *Installer) serviceRegistered(ctx context.Context, platform system.Platform) bool {
	if platform.Family.IsWindows() {
		outcome := i.runner.Run(ctx, "sc", "query", i.service)
		return outcome.Success() && strings.Contains(outcome.Stdout, "SERVICE_NAME")
	}

	unit := i.service + ".service"
	outcome := i.runner.Run(ctx, "systemctl", "list-unit-files", unit)
	return outcome.Success() && strings.Contains(outcome.Stdout, unit)
}

// InstalledVersion returns the version reported by the installed minion binary, or an empty string
func (i *Installer) InstalledVersion(ctx context.Context, platform system.Platform) string {
	bin, ok := layout.For(platform.Family).InstalledBinary(i.fs)
	if !ok {
		return ""
	}

	outcome := i.runner.Run(ctx, bin, "--version")
	if !outcome.Success() {
		i.log.Debugf("failed to query version of %s: %s", bin, outcome.ErrorText())
		return ""
	}

	fields := strings.Fields(outcome.Stdout)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// State derives the installation state from the install check and the service status
func (i *Installer) State(ctx context.Context, platform system.Platform) State {
	if !i.IsInstalled(ctx, platform) {
		return StateNotInstalled
	}

	switch i.ServiceStatus(ctx, platform) {
	case ServiceRunning:
		return StateServiceRunning
	case ServiceNotFound:
		return StateInstalled
	default:
		return StateServiceCreated
	}
}
