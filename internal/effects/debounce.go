package effects

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once the delay has
// passed without another trigger. Earlier functions are dropped.
type Debouncer struct {
	sched  Scheduler
	delay  time.Duration
	locker sync.Locker

	mu    sync.Mutex
	timer Timer
	fn    func()
	gen   uint64
}

// NewDebouncer creates a Debouncer. A nil scheduler means Clock.
func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	if sched == nil {
		sched = Clock{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

// SetLocker makes timer-driven runs hold l. Flush does not take it; its
// caller is expected to hold it already.
func (d *Debouncer) SetLocker(l sync.Locker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locker = l
}

// Delay returns the debounce interval.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger schedules fn, replacing any pending function.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	l := d.locker
	d.mu.Unlock()
	if l != nil {
		l.Lock()
		defer l.Unlock()
	}
	if fn := d.take(gen); fn != nil {
		fn()
	}
}

// take claims the pending function if gen is still current.
func (d *Debouncer) take(gen uint64) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || d.fn == nil {
		return nil
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	return fn
}

// Cancel drops the pending function. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	pending := d.fn != nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.fn = nil
	d.timer = nil
	return pending
}

// Flush runs the pending function now, on the caller's goroutine. It
// reports whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.fn
	d.gen++
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
