// Package watch reports debounced batches of file changes under a project
// root, so that caches derived from the tree can be invalidated.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"symfind/internal/logging"
	"symfind/internal/walk"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// maxWatches limits directory watches to avoid file descriptor exhaustion.
const maxWatches = 1000

// ChangeFunc receives the sorted relative paths changed during one burst.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher watches the project directories of a walk.Walker.
type Watcher struct {
	walker   *walk.Walker
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
	watches  int
}

// New creates a Watcher over root. onChange runs on the Run goroutine.
func New(root string, excludes []string, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Watcher{
		walker:   walk.New(root, excludes),
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run adds the watches and delivers change batches until ctx is done. It
// closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.walker.Dirs(w.add); err != nil {
		return fmt.Errorf("watching %s: %w", w.walker.Root(), err)
	}
	w.logger.Debug("added watches", "count", w.watches, "root", w.walker.Root())

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if rel, ok := w.handle(event); ok {
				pending[rel] = struct{}{}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			w.logger.Debug("files changed", "count", len(paths))
			w.onChange(ctx, paths)
		}
	}
}

func (w *Watcher) add(path string) error {
	if w.watches >= maxWatches {
		if w.watches == maxWatches {
			w.logger.Warn("reached max watches limit", "limit", maxWatches, "root", w.walker.Root())
			w.watches++
		}
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Debug("watch failed", "path", path, "error", err)
		return nil
	}
	w.watches++
	return nil
}

// handle returns the relative path of a relevant event.
func (w *Watcher) handle(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	rel, ok := w.walker.Rel(event.Name)
	if !ok {
		return "", false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.walker.SkipDir(rel) {
				return "", false
			}
			// Watch the new subtree; files created in it before the watch
			// was added are reported through the directory event itself.
			_ = w.walker.SubDirs(event.Name, w.add)
			return rel, true
		}
	}

	if w.walker.SkipFile(rel) {
		return "", false
	}
	return rel, true
}
