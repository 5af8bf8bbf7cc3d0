package orchestrator

import (
	"context"
	"strings"

	"github.com/netbirdio/minion-installer/client/errors"
)

// Uninstall stops and removes the service, then removes the installation. Running it
// on a host without a minion succeeds
func (o *Orchestrator) Uninstall(ctx context.Context) error {
	o.log.Info("starting uninstallation")

	platform, err := o.detect(ctx)
	if err != nil {
		return err
	}

	o.println("Uninstalling Salt minion...")
	o.deps.Installer.RemoveService(ctx, platform)

	if err := o.deps.Installer.RemoveInstallation(ctx, platform); err != nil {
		if errors.IsFatal(err) {
			return err
		}
		o.log.Warnf("uninstall finished with leftovers: %v", err)
	}

	o.println("Salt minion uninstalled")
	return nil
}

// Check prints the installation status, the minion configuration and the local network
func (o *Orchestrator) Check(ctx context.Context) error {
	platform, err := o.detect(ctx)
	if err != nil {
		return err
	}

	if !o.deps.Installer.IsInstalled(ctx, platform) {
		o.println("Salt minion is not installed")
		return nil
	}

	o.println("Salt minion status:")
	o.println("  Installed: yes")
	o.printf("  Version: %s\n", orUnknown(o.deps.Installer.InstalledVersion(ctx, platform)))
	o.printf("  Service status: %s\n", o.deps.Installer.ServiceStatus(ctx, platform))

	cfg, err := o.deps.Config.Read(ctx, platform)
	if err != nil {
		o.log.Warnf("failed to read the minion configuration: %v", err)
		o.println("  Master: not configured")
		o.println("  Minion ID: not configured")
	} else {
		o.printf("  Master: %s:%d\n", cfg.Master, cfg.MasterPort)
		o.printf("  Minion ID: %s\n", cfg.ID)
	}

	network := o.deps.NewNetwork(platform.Family).Configuration(ctx)
	o.println("Network:")
	for _, iface := range network.Interfaces {
		o.printf("  %s: %s\n", iface.Name, strings.Join(iface.Addresses, ", "))
	}
	if network.Gateway != "" {
		o.printf("  Gateway: %s\n", network.Gateway)
	}
	if len(network.DNS) > 0 {
		o.printf("  DNS: %s\n", strings.Join(network.DNS, ", "))
	}
	return nil
}
