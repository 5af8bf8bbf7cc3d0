package installer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
)

// Strategy installs one package format
type Strategy interface {
	Install(ctx context.Context, pkg string, req Request) error
}

// Install installs the downloaded artifact with the strategy of its file extension
func (i *Installer) Install(ctx context.Context, pkg string, req Request) error {
	format, err := FormatByFileExtension(pkg)
	if err != nil {
		return errors.NewFatal("install", err)
	}

	i.log.Infof("installing %s package %s", format, pkg)
	if err := i.strategy(format).Install(ctx, pkg, req); err != nil {
		return errors.NewFatal(fmt.Sprintf("install %s package", format), err)
	}

	i.log.Infof("package %s installed", pkg)
	return nil
}

func (i *Installer) strategy(format Format) Strategy {
	switch format {
	case FormatDeb:
		return &debStrategy{i: i}
	case FormatRPM:
		return &rpmStrategy{i: i}
	case FormatTarball:
		return &tarballStrategy{i: i}
	case FormatExe:
		return &exeStrategy{i: i}
	default:
		return &msiStrategy{i: i}
	}
}

// debStrategy refreshes the index, installs with dpkg, and on failure repairs dependencies
// and retries exactly once
type debStrategy struct {
	i *Installer
}

func (s *debStrategy) Install(ctx context.Context, pkg string, _ Request) error {
	runner := s.i.runner

	if outcome := runner.RunElevated(ctx, "apt-get", "update"); !outcome.Success() {
		s.i.log.Warnf("failed to refresh the package index: %s", outcome.ErrorText())
	}

	install := process.Command{Name: "dpkg", Args: []string{"-i", pkg}, Elevated: true}
	outcome := install.Exec(ctx, runner)
	if outcome.Success() {
		return nil
	}
	s.i.log.Warnf("dpkg install failed, repairing dependencies: %s", outcome.ErrorText())

	if repair := runner.RunElevated(ctx, "apt-get", "install", "-f", "-y"); !repair.Success() {
		s.i.log.Warnf("dependency repair failed: %s", repair.ErrorText())
	}

	outcome = install.Exec(ctx, runner)
	if !outcome.Success() {
		return fmt.Errorf("dpkg install failed after dependency repair: %s", outcome.ErrorText())
	}
	return nil
}

// rpmStrategy tries the rpm package managers in order
type rpmStrategy struct {
	i *Installer
}

func (s *rpmStrategy) Install(ctx context.Context, pkg string, _ Request) error {
	_, err := process.FirstSuccess(ctx, s.i.runner, s.i.log,
		process.Command{Name: "dnf", Args: []string{"localinstall", "-y", pkg}, Elevated: true},
		process.Command{Name: "yum", Args: []string{"localinstall", "-y", pkg}, Elevated: true},
		process.Command{Name: "zypper", Args: []string{"--non-interactive", "install", "--allow-unsigned-rpm", pkg}, Elevated: true},
		process.Command{Name: "rpm", Args: []string{"-Uvh", pkg}, Elevated: true},
	)
	if err != nil {
		return fmt.Errorf("all package managers failed: %w", err)
	}
	return nil
}

// tarballStrategy extracts the source distribution and installs it with pip or setup.py
type tarballStrategy struct {
	i *Installer
}

func (s *tarballStrategy) Install(ctx context.Context, pkg string, _ Request) error {
	l := layout.For(system.FamilyLinux)
	workDir := l.Join(l.TempDir, "salt-install-"+strconv.FormatInt(s.i.now().Unix(), 10))
	if err := s.i.fs.MkdirAll(workDir, 0750); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}
	defer func() {
		if err := s.i.fs.RemoveAll(workDir); err != nil {
			s.i.log.Warnf("failed to clean up %s: %v", workDir, err)
		}
	}()

	hostDir := s.i.fs.Path(workDir)
	if outcome := s.i.runner.Run(ctx, "tar", "-xzf", pkg, "-C", hostDir); !outcome.Success() {
		return fmt.Errorf("extract %s: %s", pkg, outcome.ErrorText())
	}

	srcDir := hostDir
	if names, err := s.i.fs.List(workDir); err == nil && len(names) == 1 {
		srcDir = s.i.fs.Path(l.Join(workDir, names[0]))
	}

	_, err := process.FirstSuccess(ctx, s.i.runner, s.i.log,
		process.Command{Name: "pip3", Args: []string{"install", srcDir}, Elevated: true},
		process.Command{Name: "python3", Args: []string{"-m", "pip", "install", srcDir}, Elevated: true},
		process.Command{Name: "sh", Args: []string{"-c", fmt.Sprintf("cd '%s' && python3 setup.py install", srcDir)}, Elevated: true},
	)
	if err != nil {
		return fmt.Errorf("install from source: %w", err)
	}
	return nil
}

// exeStrategy runs the silent NSIS installer and waits for the minion binary
type exeStrategy struct {
	i *Installer
}

func (s *exeStrategy) Install(ctx context.Context, pkg string, req Request) error {
	outcome := s.i.runner.RunElevated(ctx, pkg,
		"/S",
		"/master="+req.Master,
		"/minion-name="+req.MinionID,
		"/start-service=1",
	)
	if !outcome.Success() {
		return fmt.Errorf("installer exited with code %d: %s", outcome.ExitCode, outcome.ErrorText())
	}
	return s.i.waitForBinary(ctx, layout.For(system.FamilyWindows))
}

// msiStrategy installs with msiexec
type msiStrategy struct {
	i *Installer
}

func (s *msiStrategy) Install(ctx context.Context, pkg string, req Request) error {
	l := layout.For(system.FamilyWindows)
	logPath := l.Join(l.TempDir, "salt-minion-msi.log")

	outcome := s.i.runner.RunElevated(ctx, "msiexec",
		"/i", pkg,
		"/quiet", "/norestart",
		"MASTER="+req.Master,
		"MINION_ID="+req.MinionID,
		"START_MINION=1",
		"/l*v", logPath,
	)
	if !outcome.Success() {
		return fmt.Errorf("msiexec exited with code %d, see %s: %s", outcome.ExitCode, logPath, outcome.ErrorText())
	}
	return s.i.waitForBinary(ctx, l)
}
