package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called once per burst of changes to the watched file.
type ChangeCallback func(path string)

// settleDelay coalesces the write/rename bursts editors produce on save.
const settleDelay = 200 * time.Millisecond

// Watch observes the catalog file at path until ctx is cancelled and calls
// cb when it changes on disk. The loaded catalog is not refreshed: changes
// only take effect after a restart, and Watch reports them so operators
// (and connected pages) know the served catalog is behind the file.
//
// The parent directory is watched rather than the file itself so that
// atomic replace-by-rename saves are still seen.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ChangeCallback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", abs))

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			logger.Warn("watcher: catalog resource changed; restart to serve the new version",
				slog.String("path", abs))
			if cb != nil {
				cb(abs)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: event", slog.String("path", abs), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
