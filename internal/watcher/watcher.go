package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a change to a file in the watched directory.
type EventKind string

const (
	Created  EventKind = "CREATED"
	Removed  EventKind = "REMOVED"
	Modified EventKind = "MODIFIED"
)

// Event is one debounced change. Time records delivery, not the moment
// the underlying filesystem change happened.
type Event struct {
	Path string
	Kind EventKind
	Time time.Time
}

// DefaultDebounce is how long a path must stay quiet before its change is
// delivered. Half a second absorbs browsers finishing writes and renaming
// partial downloads into place.
const DefaultDebounce = 500 * time.Millisecond

// Config contains watcher settings.
type Config struct {
	Dir      string        // directory to watch
	Debounce time.Duration // quiet period before delivery (default: DefaultDebounce)
	Filter   *FileFilter   // entry filter (default: NewFileFilter(nil))
}

// Watcher monitors a single directory and delivers debounced change
// events on a channel. Start and Stop are idempotent, and a stopped
// watcher can be started again.
type Watcher struct {
	dir      string
	debounce time.Duration
	filter   *FileFilter
	events   chan Event

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	done      chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// New creates a Watcher for cfg.Dir. The events channel is created once,
// survives restarts, and is never closed.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watcher: no directory configured")
	}

	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, err
	}

	filter := cfg.Filter
	if filter == nil {
		filter, err = NewFileFilter(nil)
		if err != nil {
			return nil, err
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:      abs,
		debounce: debounce,
		filter:   filter,
		events:   make(chan Event, 64),
	}, nil
}

// Events returns the channel on which debounced changes are delivered.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start subscribes to filesystem notifications for the configured
// directory. Calling Start on a running watcher is a no-op. An error
// means no events will ever be delivered; callers may log it and treat
// the directory as empty.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.fsWatcher = fsw
	w.done = make(chan struct{})
	w.debouncer = NewDebouncer(w.debounce, w.emit)
	w.running = true

	w.wg.Add(1)
	go w.processEvents(fsw, w.done)

	return nil
}

// Stop releases the filesystem subscription and discards pending
// debounced changes. Safe to call repeatedly and without a prior Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	done := w.done
	fsw := w.fsWatcher
	deb := w.debouncer
	w.running = false
	w.mu.Unlock()

	close(done)
	fsw.Close()
	w.wg.Wait()
	deb.CancelAll()
}

// IsRunning reports whether the watcher currently holds a subscription.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents drains fsnotify until the watcher stops.
func (w *Watcher) processEvents(fsw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are not actionable for consumers; keep going.
		}
	}
}

// handleFsEvent maps one raw notification onto the debouncer.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	kind, ok := mapOp(event.Op)
	if !ok {
		return
	}
	if w.filter.ShouldIgnore(event.Name) {
		return
	}
	// Directories are never tracked. A removed path cannot be checked,
	// but untracked paths are ignored downstream anyway.
	if kind != Removed {
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
	}

	w.mu.Lock()
	deb := w.debouncer
	w.mu.Unlock()
	if deb != nil {
		deb.Add(event.Name, kind)
	}
}

// mapOp translates an fsnotify operation. Chmod-only events carry no
// content change and are dropped. A rename out of the directory looks
// the same as a removal to consumers.
func mapOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return Created, true
	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Removed, true
	case op&fsnotify.Write != 0:
		return Modified, true
	default:
		return "", false
	}
}

// emit delivers a debounced change. Delivery drops rather than blocks
// when the consumer has fallen far behind; the periodic reconciliation
// pass downstream catches anything missed.
func (w *Watcher) emit(path string, kind EventKind) {
	select {
	case w.events <- Event{Path: path, Kind: kind, Time: time.Now()}:
	default:
	}
}
