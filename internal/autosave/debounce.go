// Package autosave coalesces bursts of edits into one deferred write per note.
package autosave

import (
	"sync"
	"time"
)

// Debouncer defers actions by a quiet interval, keyed by id. Scheduling an id
// that already has a pending action cancels it and starts the interval over.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	idle    *sync.Cond
	pending map[string]*pendingAction
	running map[string]int
	stopped bool
}

type pendingAction struct {
	timer *time.Timer
	fn    func()
}

// NewDebouncer returns a debouncer with the given quiet interval.
func NewDebouncer(delay time.Duration) *Debouncer {
	d := &Debouncer{
		delay:   delay,
		pending: make(map[string]*pendingAction),
		running: make(map[string]int),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Schedule replaces any pending action for id with fn. Reports false once the
// debouncer has been stopped.
func (d *Debouncer) Schedule(id string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	if p, ok := d.pending[id]; ok {
		p.timer.Stop()
	}

	p := &pendingAction{fn: fn}
	p.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A newer Schedule or Flush may already own this id.
		if d.pending[id] != p {
			d.mu.Unlock()
			return
		}
		delete(d.pending, id)
		d.running[id]++
		d.mu.Unlock()
		d.run(id, fn)
	})
	d.pending[id] = p
	return true
}

// Pending reports whether an action is waiting for id.
func (d *Debouncer) Pending(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[id]
	return ok
}

// Busy reports whether an action for id is waiting or running.
func (d *Debouncer) Busy(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[id]
	return ok || d.running[id] > 0
}

// Cancel drops the pending action for id without running it, then waits for
// an action for id that already started. It must not be called from inside
// an action for the same id.
func (d *Debouncer) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[id]; ok {
		p.timer.Stop()
		delete(d.pending, id)
	}
	for d.running[id] > 0 {
		d.idle.Wait()
	}
}

// Flush runs every pending action now, on the calling goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.pending))
	fns := make([]func(), 0, len(d.pending))
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
		d.running[id]++
		ids = append(ids, id)
		fns = append(fns, p.fn)
	}
	d.mu.Unlock()

	for i, fn := range fns {
		d.run(ids[i], fn)
	}
}

func (d *Debouncer) run(id string, fn func()) {
	defer func() {
		d.mu.Lock()
		if d.running[id]--; d.running[id] <= 0 {
			delete(d.running, id)
		}
		d.idle.Broadcast()
		d.mu.Unlock()
	}()
	fn()
}

// Stop cancels every pending action. Later calls to Schedule are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
	d.stopped = true
}
