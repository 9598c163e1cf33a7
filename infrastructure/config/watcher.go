package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the bursts of events editors produce on save
const DefaultDebounce = 200 * time.Millisecond

// FileWatcher calls back when one file changes. It watches the parent
// directory so that editors which replace the file on save are handled.
type FileWatcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

// NewFileWatcher creates a watcher for path. A non-positive debounce uses
// DefaultDebounce.
func NewFileWatcher(path string, debounce time.Duration, logger *zap.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{path: abs, debounce: debounce, logger: logger}, nil
}

// Run blocks until ctx is done, calling onChange after each settled burst
// of writes to the file. onChange calls never overlap.
func (w *FileWatcher) Run(ctx context.Context, onChange func()) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.logger.Debug("Watching file", zap.String("path", w.path))

	var (
		mu            sync.Mutex
		debounceTimer *time.Timer
		running       sync.Mutex
	)
	defer func() {
		mu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("File changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)

			mu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				running.Lock()
				defer running.Unlock()
				onChange()
			})
			mu.Unlock()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}
