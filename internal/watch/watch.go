// Package watch re-runs scripts when their files change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher reports debounced changes to a fixed set of files.
// Parent directories are watched rather than the files themselves so that
// editors which save by rename are still seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	exclude   []glob.Glob
	targets   map[string]bool
	dirs      map[string]bool
	onChange  func([]string)
	logger    *slog.Logger

	callbackMu sync.Mutex
	pending    map[string]time.Time
	pendingMu  sync.Mutex
	timer      *time.Timer
}

// New creates a watcher. exclude holds glob patterns matched against base
// names; matching files never trigger onChange.
func New(debounce time.Duration, exclude []string, logger *slog.Logger, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]glob.Glob, 0, len(exclude))
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		exclude:   compiled,
		targets:   make(map[string]bool),
		dirs:      make(map[string]bool),
		onChange:  onChange,
		logger:    logger,
		pending:   make(map[string]time.Time),
	}, nil
}

// Add starts watching files.
func (w *Watcher) Add(files ...string) error {
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		w.targets[abs] = true

		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	return nil
}

// Run dispatches events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.relevant(event.Name) {
		return
	}
	w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
	w.scheduleChange(event.Name)
}

func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil || !w.targets[abs] {
		return false
	}
	base := filepath.Base(abs)
	for _, g := range w.exclude {
		if g.Match(base) {
			return false
		}
	}
	return true
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// Close stops the watcher and any pending debounce timer.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
