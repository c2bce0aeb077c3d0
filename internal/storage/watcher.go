package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits after the last write before
// reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the search snapshot when the database file changes on disk,
// e.g. after an ingestion run.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   func(context.Context) error
	logger   *zap.Logger
}

// NewWatcher creates a watcher for the SQLite file at path. reload is called
// once per burst of writes.
func NewWatcher(path string, debounce time.Duration, reload func(context.Context) error, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: path, debounce: debounce, reload: reload, logger: logger}
}

// Run watches until ctx is cancelled. It watches the directory rather than the
// file so the -wal and -journal siblings and file replacement are seen.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch database directory: %w", err)
	}

	base := filepath.Base(w.path)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(base, event) {
				continue
			}
			timer.Reset(w.debounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(werr))
		case <-timer.C:
			if rerr := w.reload(ctx); rerr != nil {
				w.logger.Error("Snapshot reload failed", zap.String("path", w.path), zap.Error(rerr))
				continue
			}
			w.logger.Info("Snapshot reloaded", zap.String("path", w.path))
		}
	}
}

// relevant reports whether the event touches the database file or its WAL.
func (w *Watcher) relevant(base string, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return name == base || name == base+"-wal"
}
