package installer

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/system"
)

const defaultMinionBinary = "/usr/bin/salt-minion"

// CreateService registers the managed service. Every step is best-effort: failures are
// logged and the next step runs
func (i *Installer) CreateService(ctx context.Context, platform system.Platform) {
	if platform.Family.IsWindows() {
		i.createWindowsService(ctx)
		return
	}
	i.createSystemdService(ctx)
}

func (i *Installer) createSystemdService(ctx context.Context) {
	l := layout.For(system.FamilyLinux)
	unitFile := i.service + ".service"

	if vendorUnit, ok := i.vendorUnit(l); ok {
		i.log.Infof("using service unit %s shipped by the package", vendorUnit)
	} else {
		bin, ok := l.InstalledBinary(i.fs)
		if !ok {
			bin = defaultMinionBinary
		}
		if err := i.writeUnit(l.UnitPath(i.service), bin); err != nil {
			i.log.Warnf("failed to write service unit: %v", err)
		}
	}

	if outcome := i.runner.RunElevated(ctx, "systemctl", "daemon-reload"); !outcome.Success() {
		i.log.Warnf("failed to reload systemd: %s", outcome.ErrorText())
	}
	if outcome := i.runner.RunElevated(ctx, "systemctl", "enable", unitFile); !outcome.Success() {
		i.log.Warnf("failed to enable service %s: %s", unitFile, outcome.ErrorText())
	}
}

func (i *Installer) vendorUnit(l layout.Layout) (string, bool) {
	for _, dir := range l.VendorUnitDirs {
		p := path.Join(dir, i.service+".service")
		if i.fs.Exists(p) {
			return p, true
		}
	}
	return "", false
}

func (i *Installer) writeUnit(unitPath, binary string) error {
	options := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "The Salt Minion"),
		unit.NewUnitOption("Unit", "Documentation", "man:salt-minion(1) https://docs.saltproject.io/"),
		unit.NewUnitOption("Unit", "After", "network.target"),
		unit.NewUnitOption("Service", "KillMode", "process"),
		unit.NewUnitOption("Service", "Type", "notify"),
		unit.NewUnitOption("Service", "NotifyAccess", "all"),
		unit.NewUnitOption("Service", "LimitNOFILE", "8192"),
		unit.NewUnitOption("Service", "ExecStart", binary),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}

	content, err := io.ReadAll(unit.Serialize(options))
	if err != nil {
		return fmt.Errorf("serialize unit: %w", err)
	}

	if err := i.fs.WriteFile(unitPath, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", unitPath, err)
	}
	i.log.Infof("wrote service unit %s", unitPath)
	return nil
}

func (i *Installer) createWindowsService(ctx context.Context) {
	if outcome := i.runner.Run(ctx, "sc", "query", i.service); outcome.Success() {
		i.log.Infof("service %s is registered", i.service)
		return
	}

	bin, ok := layout.For(system.FamilyWindows).InstalledBinary(i.fs)
	if !ok {
		i.log.Warnf("service %s is not registered and no minion binary was found", i.service)
		return
	}

	if err := i.registrar.Install(i.service, "Salt Minion", bin); err != nil {
		i.log.Warnf("failed to register service %s: %v", i.service, err)
		return
	}
	i.log.Infof("registered service %s for %s", i.service, bin)
}

// RemoveService stops, disables and unregisters the managed service. Failures are only logged
func (i *Installer) RemoveService(ctx context.Context, platform system.Platform) {
	i.StopService(ctx, platform)

	if platform.Family.IsWindows() {
		if outcome := i.runner.RunElevated(ctx, "sc", "delete", i.service); outcome.Success() {
			return
		}
		if err := i.registrar.Uninstall(i.service); err != nil {
			i.log.Debugf("failed to unregister service %s: %v", i.service, err)
		}
		return
	}

	unitFile := i.service + ".service"
	if outcome := i.runner.RunElevated(ctx, "systemctl", "disable", unitFile); !outcome.Success() {
		i.log.Debugf("failed to disable %s: %s", unitFile, outcome.ErrorText())
	}

	unitPath := layout.For(system.FamilyLinux).UnitPath(i.service)
	if i.fs.Exists(unitPath) {
		if err := i.fs.RemoveAll(unitPath); err != nil {
			i.log.Warnf("failed to remove %s: %v", unitPath, err)
		}
	}

	if outcome := i.runner.RunElevated(ctx, "systemctl", "daemon-reload"); !outcome.Success() {
		i.log.Debugf("failed to reload systemd: %s", outcome.ErrorText())
	}
}
