package installer

import (
	"context"
	"fmt"
	"strings"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
)

// ServiceState is the classified state of the managed service
type ServiceState int

const (
	ServiceUnknown ServiceState = iota
	ServiceRunning
	ServiceStopped
	ServiceStarting
	ServiceStopping
	ServiceNotFound
)

func (s ServiceState) String() string {
	switch s {
	case ServiceRunning:
		return "running"
	case ServiceStopped:
		return "stopped"
	case ServiceStarting:
		return "starting"
	case ServiceStopping:
		return "stopping"
	case ServiceNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// ServiceMechanism controls services through one native tool
type ServiceMechanism interface {
	Name() string
	Start(ctx context.Context, service string) process.Outcome
	Stop(ctx context.Context, service string) process.Outcome
	Status(ctx context.Context, service string) process.Outcome
	// Classify maps the status output to a ServiceState
	Classify(output string) ServiceState
}

// serviceMechanisms returns the primary mechanism followed by the legacy one
func serviceMechanisms(runner process.Runner, family system.Family) []ServiceMechanism {
	if family.IsWindows() {
		return []ServiceMechanism{&scManager{runner: runner}, &netManager{runner: runner}}
	}
	return []ServiceMechanism{&systemdManager{runner: runner}, &sysvManager{runner: runner}}
}

// StartService starts the managed service with the primary mechanism, then the legacy one.
// It fails only when both fail
func (i *Installer) StartService(ctx context.Context, platform system.Platform) error {
	var failures []string
	for _, m := range serviceMechanisms(i.runner, platform.Family) {
		outcome := m.Start(ctx, i.service)
		if outcome.Success() {
			i.log.Infof("service %s started with %s", i.service, m.Name())
			return nil
		}
		i.log.Warnf("failed to start service %s with %s: %s", i.service, m.Name(), outcome.ErrorText())
		failures = append(failures, fmt.Sprintf("%s: %s", m.Name(), outcome.ErrorText()))
	}
	return errors.Fatalf("failed to start service %s (%s)", i.service, strings.Join(failures, "; "))
}

// StopService stops the managed service. Failures are only logged
func (i *Installer) StopService(ctx context.Context, platform system.Platform) {
	for _, m := range serviceMechanisms(i.runner, platform.Family) {
		outcome := m.Stop(ctx, i.service)
		if outcome.Success() {
			i.log.Infof("service %s stopped with %s", i.service, m.Name())
			return
		}
		i.log.Debugf("failed to stop service %s with %s: %s", i.service, m.Name(), outcome.ErrorText())
	}
	i.log.Infof("service %s could not be stopped, it may not be running", i.service)
}

// ServiceStatus queries the primary mechanism, then the legacy one. When both queries
// fail the service is reported as not found
func (i *Installer) ServiceStatus(ctx context.Context, platform system.Platform) ServiceState {
	for _, m := range serviceMechanisms(i.runner, platform.Family) {
		outcome := m.Status(ctx, i.service)
		if outcome.Success() {
			state := m.Classify(outcome.Stdout)
			i.log.Debugf("service %s is %s according to %s", i.service, state, m.Name())
			return state
		}
		i.log.Debugf("status query with %s failed: %s", m.Name(), outcome.ErrorText())
	}
	return ServiceNotFound
}

type systemdManager struct {
	runner process.Runner
}

func (m *systemdManager) Name() string { return "systemctl" }

func (m *systemdManager) Start(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "systemctl", "start", service)
}

func (m *systemdManager) Stop(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "systemctl", "stop", service)
}

func (m *systemdManager) Status(ctx context.Context, service string) process.Outcome {
	return m.runner.Run(ctx, "systemctl", "show", service, "--property=LoadState,ActiveState")
}

func (m *systemdManager) Classify(output string) ServiceState {
	switch {
	case strings.Contains(output, "LoadState=not-found"):
		return ServiceNotFound
	case strings.Contains(output, "ActiveState=activating"):
		return ServiceStarting
	case strings.Contains(output, "ActiveState=deactivating"):
		return ServiceStopping
	case strings.Contains(output, "ActiveState=active"), strings.Contains(output, "ActiveState=reloading"):
		return ServiceRunning
	case strings.Contains(output, "ActiveState=inactive"), strings.Contains(output, "ActiveState=failed"):
		return ServiceStopped
	default:
		return ServiceUnknown
	}
}

type sysvManager struct {
	runner process.Runner
}

func (m *sysvManager) Name() string { return "service" }

func (m *sysvManager) Start(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "service", service, "start")
}

func (m *sysvManager) Stop(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "service", service, "stop")
}

func (m *sysvManager) Status(ctx context.Context, service string) process.Outcome {
	return m.runner.Run(ctx, "service", service, "status")
}

func (m *sysvManager) Classify(output string) ServiceState {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "unrecognized service"), strings.Contains(lower, "could not be found"):
		return ServiceNotFound
	case strings.Contains(lower, "not running"), strings.Contains(lower, "stopped"), strings.Contains(lower, "inactive"):
		return ServiceStopped
	case strings.Contains(lower, "running"), strings.Contains(lower, "active"):
		return ServiceRunning
	default:
		return ServiceUnknown
	}
}

type scManager struct {
	runner process.Runner
}

func (m *scManager) Name() string { return "sc" }

func (m *scManager) Start(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "sc", "start", service)
}

func (m *scManager) Stop(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "sc", "stop", service)
}

func (m *scManager) Status(ctx context.Context, service string) process.Outcome {
	return m.runner.Run(ctx, "sc", "query", service)
}

func (m *scManager) Classify(output string) ServiceState {
	switch {
	case strings.Contains(output, "START_PENDING"):
		return ServiceStarting
	case strings.Contains(output, "STOP_PENDING"):
		return ServiceStopping
	case strings.Contains(output, "RUNNING"):
		return ServiceRunning
	case strings.Contains(output, "STOPPED"):
		return ServiceStopped
	case strings.Contains(output, "1060"):
		return ServiceNotFound
	default:
		return ServiceUnknown
	}
}

// netManager is the legacy Windows mechanism: net start/stop and Get-Service
type netManager struct {
	runner process.Runner
}

func (m *netManager) Name() string { return "net" }

func (m *netManager) Start(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "net", "start", service)
}

func (m *netManager) Stop(ctx context.Context, service string) process.Outcome {
	return m.runner.RunElevated(ctx, "net", "stop", service)
}

func (m *netManager) Status(ctx context.Context, service string) process.Outcome {
	return m.runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command",
		fmt.Sprintf("(Get-Service -Name '%s' -ErrorAction Stop).Status", service))
}

func (m *netManager) Classify(output string) ServiceState {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "startpending"):
		return ServiceStarting
	case strings.Contains(lower, "stoppending"):
		return ServiceStopping
	case strings.Contains(lower, "running"):
		return ServiceRunning
	case strings.Contains(lower, "stopped"):
		return ServiceStopped
	default:
		return ServiceUnknown
	}
}
