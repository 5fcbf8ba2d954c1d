package cli

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long the inputs must stay quiet before a pass is
// triggered.
const defaultDebounce = 500 * time.Millisecond

// inputWatcher reports changes to the catalog tree and the events file.
// Bursts of file events are collapsed into one notification per debounce
// interval.
type inputWatcher struct {
	watcher  *fsnotify.Watcher
	catalog  string
	events   string
	debounce time.Duration
}

func newInputWatcher(catalogDir, eventsFile string, debounce time.Duration) (*inputWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &inputWatcher{watcher: fsw, catalog: filepath.Clean(catalogDir), debounce: debounce}
	if eventsFile != "" {
		w.events = filepath.Clean(eventsFile)
	}

	if err := w.addRecursive(w.catalog); err != nil {
		fsw.Close()
		return nil, err
	}
	if w.events != "" {
		// Editors replace files on save; watching the directory survives that.
		if err := fsw.Add(filepath.Dir(w.events)); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *inputWatcher) Close() error {
	return w.watcher.Close()
}

func (w *inputWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if base := d.Name(); strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		slog.Debug("watching directory", "path", path)
		return w.watcher.Add(path)
	})
}

// relevant reports whether a change to path can alter the inputs.
func (w *inputWatcher) relevant(path string) bool {
	path = filepath.Clean(path)
	if w.events != "" && path == w.events {
		return true
	}
	rel, err := filepath.Rel(w.catalog, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	ok, _ := doublestar.Match("**/*.{yaml,yml}", filepath.ToSlash(rel))
	return ok
}

// Run calls onChange after every quiet period that follows a relevant
// change, until ctx is cancelled or onChange fails.
func (w *inputWatcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var (
		pending bool
		last    time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						slog.Warn("failed to watch directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			slog.Debug("input changed", "path", ev.Name, "op", ev.Op.String())
			pending = true
			last = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)

		case <-ticker.C:
			if !pending || time.Since(last) < w.debounce {
				continue
			}
			pending = false
			if err := onChange(ctx); err != nil {
				return err
			}
		}
	}
}
