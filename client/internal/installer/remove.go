package installer

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/netbirdio/minion-installer/client/errors"
	"github.com/netbirdio/minion-installer/client/internal/layout"
	"github.com/netbirdio/minion-installer/client/internal/process"
	"github.com/netbirdio/minion-installer/client/system"
)

const uninstallProductScript = "Get-WmiObject -Class Win32_Product -Filter \"Name LIKE 'Salt Minion%'\" | ForEach-Object { $_.Uninstall() | Out-Null }"

// RemoveInstallation removes the minion package with the first working uninstall mechanism,
// then deletes the known installation directories. It never aborts half way: the returned
// error only reports directories that could not be deleted
func (i *Installer) RemoveInstallation(ctx context.Context, platform system.Platform) error {
	l := layout.For(platform.Family)

	if _, err := process.FirstSuccess(ctx, i.runner, i.log, i.removalChain(platform, l)...); err != nil {
		i.log.Warnf("no uninstall mechanism succeeded, removing files manually: %v", err)
	}

	var merr *multierror.Error
	for _, p := range l.RemovalPaths {
		if !i.fs.Exists(p) {
			continue
		}
		if err := i.fs.RemoveAll(p); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("remove %s: %w", p, err))
			continue
		}
		i.log.Debugf("removed %s", p)
	}

	return errors.Collect(errors.BestEffort, "manual cleanup incomplete", merr)
}

func (i *Installer) removalChain(platform system.Platform, l layout.Layout) []process.Command {
	if platform.Family.IsWindows() {
		var cmds []process.Command
		for _, u := range l.Uninstallers {
			if i.fs.Exists(u) {
				cmds = append(cmds, process.Command{Name: u, Args: []string{"/S"}, Elevated: true})
			}
		}
		return append(cmds, process.Command{
			Name:     "powershell",
			Args:     []string{"-NoProfile", "-NonInteractive", "-Command", uninstallProductScript},
			Elevated: true,
		})
	}

	return []process.Command{
		{Name: "apt-get", Args: []string{"remove", "--purge", "-y", packageName}, Elevated: true},
		{Name: "dnf", Args: []string{"remove", "-y", packageName}, Elevated: true},
		{Name: "yum", Args: []string{"remove", "-y", packageName}, Elevated: true},
		{Name: "zypper", Args: []string{"--non-interactive", "remove", packageName}, Elevated: true},
	}
}

type backupSource struct {
	path   string
	target string
}

// Backup copies the configuration, log and cache directories into a timestamped directory.
// Missing sources are skipped. The returned error only reports sources that failed to copy
func (i *Installer) Backup(ctx context.Context, platform system.Platform) (string, error) {
	l := layout.For(platform.Family)
	dirs := l.Resolve(i.fs)
	backupDir := l.Join(l.TempDir, fmt.Sprintf("salt-backup-%d", i.now().Unix()))

	var sources []backupSource
	if platform.Family.IsWindows() {
		sources = []backupSource{
			{dirs.Config, "conf"},
			{dirs.Log, "logs"},
		}
	} else {
		sources = []backupSource{
			{dirs.Config, "etc-salt"},
			{dirs.Log, "var-log-salt"},
			{dirs.Cache, "var-cache-salt"},
		}
	}

	var merr *multierror.Error
	for _, src := range sources {
		if ctx.Err() != nil {
			merr = multierror.Append(merr, ctx.Err())
			break
		}
		if !i.fs.Exists(src.path) {
			i.log.Debugf("skipping backup of missing %s", src.path)
			continue
		}
		dst := l.Join(backupDir, src.target)
		if err := i.fs.Copy(src.path, dst); err != nil {
			i.log.Warnf("failed to back up %s: %v", src.path, err)
			merr = multierror.Append(merr, fmt.Errorf("back up %s: %w", src.path, err))
			continue
		}
		i.log.Infof("backed up %s to %s", src.path, dst)
	}

	return backupDir, errors.Collect(errors.BestEffort, "backup incomplete", merr)
}
