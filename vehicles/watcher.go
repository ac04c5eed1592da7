package vehicles

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a Set loaded from a CSV manifest and reloads it when the
// file changes. A failed reload keeps the previous set.
type Watcher struct {
	path     string
	column   string
	current  atomic.Pointer[Set]
	onReload func(*Set)
}

// NewWatcher loads the manifest once. It fails if that first load does.
func NewWatcher(path, column string) (*Watcher, error) {
	w := &Watcher{path: filepath.Clean(path), column: column}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// OnReload registers fn to be called with each newly loaded set. Call
// before Run.
func (w *Watcher) OnReload(fn func(*Set)) { w.onReload = fn }

// Current returns the set loaded last. Callers should take it once per
// batch so a run sees a single snapshot.
func (w *Watcher) Current() *Set { return w.current.Load() }

func (w *Watcher) reload() error {
	s, skipped, err := LoadCSV(w.path, w.column)
	if err != nil {
		return err
	}
	w.current.Store(s)
	slog.Info("vehicle manifest loaded", "path", w.path, "count", s.Len(), "skipped", skipped)
	if w.onReload != nil {
		w.onReload(s)
	}
	return nil
}

// Run watches the manifest's directory until ctx is done. Editors and
// deploy tools often replace the file rather than write it, so the
// directory is watched and events are filtered by name.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				slog.Warn("vehicle manifest reload failed, keeping previous set", "path", w.path, "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)
		}
	}
}
