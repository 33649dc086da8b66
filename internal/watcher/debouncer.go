package watcher

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounceWindow coalesces rapid events for the same path so edit
// bursts do not trigger an embedding storm.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer coalesces repeated events per path within a fixed window.
//
// Coalescing rules:
//   - added then deleted cancels (the file never really existed)
//   - deleted then added becomes modified (replace-style saves)
//   - added absorbs later modifications (still a new file)
//   - anything else keeps the latest event type
type Debouncer struct {
	window time.Duration
	out    chan FileEvent

	mu      sync.Mutex
	pending map[string]*pendingEvent
	closed  bool
}

type pendingEvent struct {
	event FileEvent
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given window. A non-positive
// window falls back to the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:  window,
		out:     make(chan FileEvent, 64),
		pending: make(map[string]*pendingEvent),
	}
}

// Events is the stream of debounced events.
func (d *Debouncer) Events() <-chan FileEvent {
	return d.out
}

// Add records an event, restarting the path's window.
func (d *Debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	existing, ok := d.pending[ev.FilePath]
	if !ok {
		p := &pendingEvent{event: ev}
		p.timer = time.AfterFunc(d.window, func() { d.flush(ev.FilePath) })
		d.pending[ev.FilePath] = p
		return
	}

	merged, keep := coalesce(existing.event.Type, ev.Type)
	if !keep {
		existing.timer.Stop()
		delete(d.pending, ev.FilePath)
		return
	}

	existing.event.Type = merged
	existing.event.Timestamp = ev.Timestamp
	existing.timer.Reset(d.window)
}

// Run forwards watcher events into the debouncer until the input closes or
// ctx is cancelled, then closes the output.
func (d *Debouncer) Run(ctx context.Context, in <-chan FileEvent) {
	defer d.close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			d.Add(ev)
		}
	}
}

// flush emits a path's pending event after its window elapses.
func (d *Debouncer) flush(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[path]
	if !ok || d.closed {
		return
	}
	delete(d.pending, path)
	d.out <- p.event
}

// close stops all timers and closes the output stream.
func (d *Debouncer) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	close(d.out)
}

// coalesce merges a pending event type with a newer one. keep=false means
// the pair cancels out entirely.
func coalesce(old, new EventType) (merged EventType, keep bool) {
	switch {
	case old == EventAdded && new == EventDeleted:
		return "", false
	case old == EventDeleted && new == EventAdded:
		return EventModified, true
	case old == EventAdded:
		return EventAdded, true
	default:
		return new, true
	}
}
