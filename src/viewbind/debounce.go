package viewbind

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Debouncer coalesces bursts of change notifications. Keys accumulate for one
// window; when it elapses the flush callback receives the deduplicated set.
// Because the binder re-reads current state at flush time, the latest value
// per key always wins regardless of how many updates landed in the window.
// -----------------------------------------------------------------------------

type Debouncer struct {
	Window time.Duration
	Flush  func(keys []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// -----------------------------------------------------------------------------

func NewDebouncer(window time.Duration, flush func(keys []string)) *Debouncer {
	return &Debouncer{
		Window:  window,
		Flush:   flush,
		pending: make(map[string]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Add queues keys for the next flush. The first key in an idle window arms
// the timer; later keys ride the same window.
func (d *Debouncer) Add(keys ...string) {
	if len(keys) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	for _, k := range keys {
		d.pending[k] = struct{}{}
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.Window, d.fire)
	}
}

// -----------------------------------------------------------------------------

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	if len(d.pending) == 0 || d.stopped {
		d.mu.Unlock()
		return
	}
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	d.Flush(keys)
}

// -----------------------------------------------------------------------------

// Stop cancels any armed timer and discards pending keys.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
}
