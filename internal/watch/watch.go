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
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Change describes a modified, created or removed file.
type Change struct {
	Path    string
	Removed bool
}

// Config configures a Watcher.
type Config struct {
	// Paths are the files to watch. Their directories must exist; the files
	// need not.
	Paths []string

	// Debounce is how long a file must stay quiet before it is reported.
	Debounce time.Duration

	// Logger defaults to slog.Default().With("component", "watch").
	Logger *slog.Logger
}

// Watcher reports changes to the configured paths.
type Watcher struct {
	config   Config
	logger   *slog.Logger
	mu       sync.Mutex
	onChange func(Change)
	running  bool
}

// New creates a watcher. Call Run to start watching.
func New(config Config) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "watch")
	}
	return &Watcher{config: config, logger: logger}
}

// OnChange sets the callback for changes. It runs on the Run goroutine.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Running reports whether Run is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Run watches until ctx is done and returns ctx.Err(). It fails early if a
// directory cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// targets maps the absolute path fsnotify reports to the path as given.
	targets := make(map[string]string, len(w.config.Paths))
	dirs := make(map[string]bool)
	for _, p := range w.config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = p
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return err
		}
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return ctx.Err()
			}
			path, watched := targets[filepath.Clean(event.Name)]
			if !watched || event.Op == fsnotify.Chmod {
				continue
			}
			pending[path] = true
			timer.Reset(w.config.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return ctx.Err()
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.flush(pending)
		}
	}
}

// flush reports every pending path, in order, and clears the set.
func (w *Watcher) flush(pending map[string]bool) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
		delete(pending, p)
	}
	sort.Strings(paths)

	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn == nil {
		return
	}
	for _, p := range paths {
		_, err := os.Stat(p)
		fn(Change{Path: p, Removed: os.IsNotExist(err)})
	}
}
