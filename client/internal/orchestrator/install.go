package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/catalog"
	"github.com/netbirdio/minion-installer/client/internal/installer"
	"github.com/netbirdio/minion-installer/client/internal/netprobe"
	"github.com/netbirdio/minion-installer/client/system"
	"github.com/netbirdio/minion-installer/version"
)

const maxPromptAttempts = 3

// Interactive installs the minion with the answers collected by the prompter
func (o *Orchestrator) Interactive(ctx context.Context) error {
	o.log.Info("starting interactive installation")
	return o.install(ctx, o.deps.Prompter, nil)
}

// Silent installs the minion without prompting. Empty request fields take their defaults,
// an existing installation is backed up and overwritten and an unreachable master is ignored
func (o *Orchestrator) Silent(ctx context.Context, req installer.Request) error {
	o.log.Info("starting silent installation")
	if req.MasterPort != 0 && !netprobe.ValidPort(strconv.Itoa(req.MasterPort)) {
		return errors.Fatalf("invalid master port %d", req.MasterPort)
	}
	return o.install(ctx, UnattendedPrompter{}, &req)
}

func (o *Orchestrator) install(ctx context.Context, prompter Prompter, preset *installer.Request) error {
	o.state = StateStart

	platform, err := o.detect(ctx)
	if err != nil {
		return err
	}

	o.transition(StateExistingInstallCheck)
	installedVersion := ""
	if o.deps.Installer.IsInstalled(ctx, platform) {
		installedVersion = o.deps.Installer.InstalledVersion(ctx, platform)
		question := fmt.Sprintf("Salt minion %s is already installed. Back up and overwrite it?", orUnknown(installedVersion))
		if !prompter.Confirm(question, false) {
			o.println("Installation cancelled.")
			o.transition(StateStart)
			return nil
		}
		o.transition(StateBackup)
		o.backup(ctx, platform)
	}

	req, err := o.collect(ctx, prompter, preset, platform)
	if err != nil {
		return err
	}
	o.transition(StateConfigCollected)

	if err := o.validateMaster(ctx, prompter, platform, req); err != nil {
		return err
	}

	artifact, err := o.deps.Catalog.Resolve(ctx, req.Version, platform)
	if err != nil {
		return errors.NewFatal("resolve release", err)
	}
	req.Version = artifact.Version
	if installedVersion != "" {
		o.log.Infof("replacing installed version %s with %s (%s)", installedVersion, artifact.Version,
			version.Compare(installedVersion, artifact.Version))
	}

	pkg, err := o.download(ctx, platform, artifact)
	if err != nil {
		return err
	}
	o.transition(StateDownloaded)

	o.println("Installing...")
	if err := o.deps.Installer.Install(ctx, pkg, req); err != nil {
		return err
	}
	o.transition(StateInstalled)
	o.removeDownload(pkg)

	o.println("Configuring the minion...")
	if err := o.deps.Config.Write(ctx, platform, req); err != nil {
		return err
	}
	o.transition(StateConfigured)

	o.println("Starting the minion service...")
	o.deps.Installer.CreateService(ctx, platform)
	if err := o.deps.Installer.StartService(ctx, platform); err != nil {
		return err
	}
	o.transition(StateServiceStarted)

	status, err := o.verify(ctx, platform)
	if err != nil {
		return err
	}
	o.transition(StateDone)

	o.println("Salt minion installation completed successfully!")
	o.printf("Minion ID: %s\n", req.MinionID)
	o.printf("Master: %s:%d\n", req.Master, req.MasterPort)
	o.printf("Service status: %s\n", status)
	return nil
}

func (o *Orchestrator) detect(ctx context.Context) (system.Platform, error) {
	platform := o.deps.Detector.Detect(ctx)
	o.transition(StatePlatformDetected)
	o.printf("Detected platform: %s %s (%s)\n", platform.Name, platform.Version, platform.Arch)

	if !platform.Supported() {
		return platform, errors.Fatalf("platform %s is not supported", platform.Name)
	}
	if !platform.Elevated {
		o.log.Warn("not running with administrative privileges, privileged commands will be elevated")
	}
	return platform, nil
}

func (o *Orchestrator) backup(ctx context.Context, platform system.Platform) {
	o.println("Creating a backup of the existing installation...")
	dir, err := o.deps.Installer.Backup(ctx, platform)
	if err != nil {
		o.log.Warnf("backup incomplete: %v", err)
	}
	o.printf("Backup stored in %s\n", dir)
}

// collect returns the preset request with defaults applied, or prompts for every field
func (o *Orchestrator) collect(ctx context.Context, prompter Prompter, preset *installer.Request, platform system.Platform) (installer.Request, error) {
	defaultID := fmt.Sprintf("%s-%d", platform.Hostname, o.now().Unix())

	if preset != nil {
		req := *preset
		if req.Version == "" {
			req.Version = catalog.Latest
		}
		if req.Master == "" {
			req.Master = DefaultMaster
		}
		if req.MasterPort == 0 {
			req.MasterPort = DefaultMasterPort
		}
		if req.MinionID == "" {
			req.MinionID = defaultID
		}
		return req, nil
	}

	versions := o.deps.Catalog.ListAvailableVersions(ctx)
	defaultVersion := catalog.Latest
	if len(versions) > 0 {
		defaultVersion = versions[0]
		o.printf("Available versions: %s\n", strings.Join(versions, ", "))
	}

	var req installer.Request
	req.Version = prompter.Ask("Select version", defaultVersion)

	master, err := o.askValid(prompter, "Salt master IP address", DefaultMaster, netprobe.ValidIPAddress)
	if err != nil {
		return req, err
	}
	req.Master = master

	port, err := o.askValid(prompter, "Salt master port", strconv.Itoa(DefaultMasterPort), netprobe.ValidPort)
	if err != nil {
		return req, err
	}
	req.MasterPort, _ = strconv.Atoi(port)

	req.MinionID = prompter.Ask("Minion ID", defaultID)
	return req, nil
}

func (o *Orchestrator) askValid(prompter Prompter, question, def string, valid func(string) bool) (string, error) {
	var answer string
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		answer = prompter.Ask(question, def)
		if valid(answer) {
			return answer, nil
		}
		o.printf("Invalid value %q\n", answer)
	}
	return "", errors.Fatalf("invalid answer %q to %q", answer, question)
}

func (o *Orchestrator) validateMaster(ctx context.Context, prompter Prompter, platform system.Platform, req installer.Request) error {
	probe := o.deps.NewNetwork(platform.Family)
	if probe.ValidateReachability(ctx, req.Master, req.MasterPort) {
		o.transition(StateNetworkValidated)
		return nil
	}

	o.log.Warnf("master %s:%d is not reachable", req.Master, req.MasterPort)
	if !prompter.Confirm("Cannot validate the master connection. Continue anyway?", false) {
		return errors.Fatalf("cannot connect to the master at %s:%d", req.Master, req.MasterPort)
	}
	o.transition(StateUserOverride)
	return nil
}

func (o *Orchestrator) download(ctx context.Context, platform system.Platform, artifact catalog.Artifact) (string, error) {
	o.printf("Downloading Salt minion %s...\n", artifact.Version)

	dst := filepath.Join(o.cfg.DownloadDir, artifact.FileName())
	if !o.deps.NewDownloader(platform.Family).DownloadWithChecksum(ctx, artifact.URL, dst, artifact.Checksum) {
		return "", errors.Fatalf("failed to download %s", artifact.URL)
	}
	return dst, nil
}

func (o *Orchestrator) removeDownload(pkg string) {
	if err := os.Remove(pkg); err != nil && !os.IsNotExist(err) {
		o.log.Debugf("failed to remove %s: %v", pkg, err)
	}
}

// verify waits for the service to settle and reports its status. A service that is not
// running is only a warning: the start call already succeeded
func (o *Orchestrator) verify(ctx context.Context, platform system.Platform) (installer.ServiceState, error) {
	if err := o.sleep(ctx, o.cfg.SettleDelay); err != nil {
		return installer.ServiceUnknown, err
	}

	status := o.deps.Installer.ServiceStatus(ctx, platform)
	if status != installer.ServiceRunning {
		o.log.Warnf("service %s may not have started correctly, status: %s", o.deps.Installer.ServiceName(), status)
		return status, nil
	}

	o.transition(StateVerified)
	o.println("Service started successfully")
	return status, nil
}

func (o *Orchestrator) println(s string) {
	fmt.Fprintln(o.deps.Out, s)
}

func (o *Orchestrator) printf(format string, a ...any) {
	fmt.Fprintf(o.deps.Out, format, a...)
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown version)"
	}
	return s
}
