// Package watch triggers a callback when files below a set of directories
// change. Bursts of events are collapsed into one call after a quiet period.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/soapbox/simon/internal/clog"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Paths are the directories watched recursively.
	Paths []string
	// Ignore holds base-name glob patterns; matching files and directories
	// (and everything below them) never trigger OnChange.
	Ignore []string
	// Debounce is the quiet period after the last event before OnChange runs.
	Debounce time.Duration
	// OnChange receives the sorted, de-duplicated paths that changed. It is
	// called on the watcher goroutine and should not block.
	OnChange func(changed []string)
}

// Watcher watches directory trees. It satisfies the executor's Process
// interface so that it can be cancelled with the running commands.
type Watcher struct {
	opts Options
	fsw  *fsnotify.Watcher

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.Mutex
	failed  bool
	pending map[string]struct{}
}

// New creates a Watcher and registers every directory below opts.Paths.
// Call Start to begin delivering events.
func New(opts Options) (*Watcher, error) {
	if len(opts.Paths) == 0 {
		return nil, errors.New("watch: no paths configured")
	}
	if opts.OnChange == nil {
		return nil, errors.New("watch: nil OnChange")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	for _, pattern := range opts.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("watch: ignore pattern %q: %w", pattern, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		opts:    opts,
		fsw:     fsw,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
	}

	for _, root := range opts.Paths {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start runs the event loop on a new goroutine.
func (w *Watcher) Start() {
	clog.Info("watch: watching %v", w.opts.Paths)
	go w.run()
}

// Done is closed once the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// ExitCode is 0 after Cancel and 1 if the watcher stopped on its own
// because the underlying event stream failed.
func (w *Watcher) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed {
		return 1
	}
	return 0
}

// Cancel stops the watcher. Pending changes are discarded.
func (w *Watcher) Cancel() error {
	w.stopOnce.Do(func() { close(w.stop) })
	return nil
}

// Watched returns the directories currently registered, sorted.
func (w *Watcher) Watched() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.Ignore {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		clog.Debug("watch: added %s", path)
		return nil
	})
}

// underIgnored reports whether path, or a directory between it and its
// watched root, is ignored.
func (w *Watcher) underIgnored(path string) bool {
	for _, root := range w.opts.Paths {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if w.ignored(part) {
				return true
			}
		}
		return false
	}
	return w.ignored(path)
}

func (w *Watcher) run() {
	defer close(w.done)
	defer func() { _ = w.fsw.Close() }()

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			clog.Info("watch: stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.fail("event channel closed")
				return
			}
			if w.handle(event) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.fail("error channel closed")
				return
			}
			clog.Warn("watch: %v", err)

		case <-timer.C:
			w.flush()
		}
	}
}

// handle records event and reports whether it counts as a change.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod || w.underIgnored(event.Name) {
		return false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				clog.Warn("%v", err)
			}
		}
	}

	clog.Debug("watch: %s %s", event.Op, event.Name)
	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
	return true
}

func (w *Watcher) flush() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	clog.Info("watch: %d path(s) changed", len(changed))
	w.opts.OnChange(changed)
}

func (w *Watcher) fail(reason string) {
	clog.Error("watch: %s", reason)
	w.mu.Lock()
	w.failed = true
	w.mu.Unlock()
}
