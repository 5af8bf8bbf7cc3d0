package installer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/netbirdio/minion-installer/client/internal/layout"
)

const binaryPollInterval = 500 * time.Millisecond

// waitForBinary blocks until one of the known minion binaries exists, the wait
// times out or the context is cancelled
func (i *Installer) waitForBinary(ctx context.Context, l layout.Layout) error {
	if bin, ok := l.InstalledBinary(i.fs); ok {
		i.log.Infof("minion binary found at %s", bin)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.binaryWait)
	defer cancel()

	var events chan fsnotify.Event
	var watchErrors chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		i.log.Debugf("failed to create filesystem watcher, polling only: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				i.log.Warnf("failed to close watcher: %v", err)
			}
		}()
		for _, bin := range l.Binaries {
			dir := parentDir(bin)
			if !i.fs.Exists(dir) {
				continue
			}
			if err := watcher.Add(i.fs.Path(dir)); err != nil {
				i.log.Debugf("failed to watch %s: %v", dir, err)
			}
		}
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	ticker := time.NewTicker(binaryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("minion binary did not appear after installation: %w", ctx.Err())
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			i.log.Debugf("watcher error: %v", err)
			continue
		case <-ticker.C:
		}

		if bin, ok := l.InstalledBinary(i.fs); ok {
			i.log.Infof("minion binary found at %s", bin)
			return nil
		}
	}
}

func parentDir(p string) string {
	if idx := strings.LastIndex(p, `\`); idx > 0 {
		return p[:idx]
	}
	return path.Dir(p)
}
