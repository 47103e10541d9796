package watcher

import (
	"sync"
	"time"
)

// pendingChange tracks the timer and coalesced kind for one path.
type pendingChange struct {
	timer *time.Timer
	kind  EventKind
}

// Debouncer delays event delivery until activity on a path settles.
// Rapid events for the same path are coalesced into a single callback
// carrying the effective change kind.
type Debouncer struct {
	delay    time.Duration
	pending  map[string]*pendingChange
	callback func(path string, kind EventKind)
	mu       sync.Mutex
}

// NewDebouncer creates a Debouncer with the specified delay and callback.
// The callback is invoked once per path after the delay expires, provided
// no new events for that path arrived in the meantime.
func NewDebouncer(delay time.Duration, callback func(path string, kind EventKind)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		pending:  make(map[string]*pendingChange),
		callback: callback,
	}
}

// Add schedules delivery of a change after the debounce delay. A pending
// change for the same path has its timer reset and its kind merged:
// creations and removals overwrite whatever was pending, while a
// modification never downgrades a pending creation or removal.
func (d *Debouncer) Add(path string, kind EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, exists := d.pending[path]; exists {
		p.timer.Stop()
		kind = mergeKinds(p.kind, kind)
	}

	d.pending[path] = &pendingChange{
		kind: kind,
		timer: time.AfterFunc(d.delay, func() {
			d.mu.Lock()
			p, ok := d.pending[path]
			if ok {
				delete(d.pending, path)
			}
			d.mu.Unlock()

			// Invoke the callback outside the lock to avoid deadlocks.
			if ok && d.callback != nil {
				d.callback(path, p.kind)
			}
		}),
	}
}

// mergeKinds resolves the effective kind when a new event lands on a path
// with a pending one. A modification carries no lifecycle information, so
// it keeps whatever was already pending.
func mergeKinds(prev, next EventKind) EventKind {
	if next == Modified {
		return prev
	}
	return next
}

// Cancel removes a pending change without delivering it.
// If the path is not pending, this is a no-op.
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, exists := d.pending[path]; exists {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

// CancelAll cancels all pending changes. Useful during shutdown to
// prevent callbacks from firing.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

// PendingCount returns the number of paths currently awaiting delivery.
// This is primarily useful for testing.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// IsPending returns true if the specified path is awaiting delivery.
// This is primarily useful for testing.
func (d *Debouncer) IsPending(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.pending[path]
	return exists
}

// GetDelay returns the configured debounce delay.
func (d *Debouncer) GetDelay() time.Duration {
	return d.delay
}
