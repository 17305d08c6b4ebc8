package guard

import (
	"sync"
	"time"
)

// Debouncer groups rapid successive triggers into a single call after a
// quiet period. Each trigger replaces the pending function, so the callback
// that ultimately runs is the one from the last trigger.
//
// Thread-safety: all methods are safe for concurrent use. The callback is
// never invoked concurrently with itself by the debouncer.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending bool
	seq     uint64 // sequence number to detect stale timer callbacks
	fn      func()
}

// NewDebouncer creates a debouncer with the specified quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// SetDelay changes the quiet period used by subsequent triggers. A timer
// already scheduled keeps the delay it was armed with.
func (d *Debouncer) SetDelay(delay time.Duration) {
	d.mu.Lock()
	d.delay = delay
	d.mu.Unlock()
}

// Trigger schedules fn to run after the debounce delay. If called again
// within the delay, the previous schedule is cancelled and fn is replaced.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.fn = fn
	d.seq++
	currentSeq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// Only fire if this is still the current schedule.
		if d.pending && d.seq == currentSeq && d.fn != nil {
			run := d.fn
			d.pending = false
			d.fn = nil
			d.mu.Unlock()
			run()
			return
		}
		d.mu.Unlock()
	})
}

// Flush runs the pending function immediately, cancelling the scheduled
// timer. It is a no-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if d.pending && d.fn != nil {
		run := d.fn
		d.pending = false
		d.fn = nil
		d.mu.Unlock()
		run()
		return
	}
	d.mu.Unlock()
}

// Cancel drops any pending trigger without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
	d.fn = nil
}

// IsPending reports whether a trigger is waiting to fire.
func (d *Debouncer) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
