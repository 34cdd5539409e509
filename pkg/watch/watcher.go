// Package watch regenerates a library model when its inputs change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultDebounce is the quiet period after the last change before a rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors an input tree and calls back with the changed files once
// the tree has been quiet for the debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	path      string
	supports  func(path string) bool
	exclude   []string
	callback  func(paths []string)

	mu      sync.Mutex
	pending map[string]time.Time

	// runMu serializes callbacks so two regenerations never overlap.
	runMu sync.Mutex
}

// NewWatcher creates a watcher over path. supports selects the files whose
// changes matter; a nil supports accepts every file. Directories named in
// exclude are neither watched nor reported.
func NewWatcher(path string, debounce time.Duration, supports func(string) bool, exclude ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if supports == nil {
		supports = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		debounce:  debounce,
		path:      path,
		supports:  supports,
		exclude:   exclude,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function called with each batch of changed files.
func (w *Watcher) SetCallback(cb func(paths []string)) {
	w.callback = cb
}

// Start watches until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.path); err != nil {
		return err
	}

	color.Cyan("Watching for changes in %s...", w.path)
	color.Cyan("Press Ctrl+C to stop")
	fmt.Println()

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) excluded(name string) bool {
	return strings.HasPrefix(name, ".") || slices.Contains(w.exclude, name)
}

func (w *Watcher) excludedPath(path string) bool {
	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		return false
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(dir, string(filepath.Separator)) {
		if part != ".." && w.excluded(part) {
			return true
		}
	}
	return false
}

// handleEvent records a change. New directories are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name
	if w.excludedPath(path) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excluded(info.Name()) {
				if err := w.addTree(path); err != nil {
					log.WithError(err).WithField("dir", path).Warn("cannot watch directory")
				}
			}
			return
		}
	}

	if !w.supports(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending fires one callback for every pending file once the newest
// change is older than the debounce period.
func (w *Watcher) processPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return
	}
	now := time.Now()
	for _, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			return
		}
	}

	ready := make([]string, 0, len(w.pending))
	for path := range w.pending {
		ready = append(ready, path)
	}
	slices.Sort(ready)
	clear(w.pending)

	if w.callback != nil {
		go w.runCallback(ready)
	}
}

func (w *Watcher) runCallback(paths []string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	for _, path := range paths {
		rel, err := filepath.Rel(w.path, path)
		if err != nil {
			rel = path
		}
		color.Yellow("Changed: %s", rel)
	}
	fmt.Println(strings.Repeat("-", 40))

	w.callback(paths)

	fmt.Println()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the watched directories.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}
