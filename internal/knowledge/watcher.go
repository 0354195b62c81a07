package knowledge

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

const watchedOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// StartWatcher invalidates the cache whenever the knowledge base file is
// written, replaced or removed. The watch runs until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// which save by rename are still observed.
func (l *FileLoader) StartWatcher(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer func() {
			if closeErr := w.Close(); closeErr != nil {
				l.logger.Warn("Failed to close knowledge base watcher", "error", closeErr)
			}
		}()
		l.logger.Info("Knowledge base watcher started", "path", l.path)

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != l.path || !ev.Has(watchedOps) {
					continue
				}
				l.logger.Debug("Knowledge base changed, invalidating cache", "op", ev.Op.String())
				l.Invalidate()
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("Knowledge base watcher error", "error", werr)
			case <-ctx.Done():
				l.logger.Info("Knowledge base watcher shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return nil
}
