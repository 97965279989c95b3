package search

import (
	"sync"
	"time"
)

// Timer is a scheduled action that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Scheduler creates timers. The default uses time.AfterFunc; tests inject a
// manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer owns a single cancelable delay timer. Scheduling always cancels
// the previous timer first, and a timer that was canceled after it started
// firing is dropped by its generation check, so only the most recently
// scheduled action can ever run.
//
// A fired query stays claimable until the next Schedule or Cancel. Callers
// that receive the query asynchronously must Claim it before acting on it.
type Debouncer struct {
	mu         sync.Mutex
	delay      time.Duration
	scheduler  Scheduler
	pending    Timer
	gen        uint64
	fired      bool
	firedQuery string
	fire       func(query string)
}

// NewDebouncer returns a Debouncer that calls fire with the last scheduled
// query once delay has passed without another Schedule or Cancel.
func NewDebouncer(delay time.Duration, scheduler Scheduler, fire func(query string)) *Debouncer {
	if scheduler == nil {
		scheduler = clockScheduler{}
	}
	return &Debouncer{
		delay:     delay,
		scheduler: scheduler,
		fire:      fire,
	}
}

// Schedule cancels any pending timer and starts a new one for query.
func (d *Debouncer) Schedule(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	gen := d.gen
	d.pending = d.scheduler.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.fired = true
		d.firedQuery = query
		d.mu.Unlock()

		d.fire(query)
	})
}

// Cancel stops the pending timer, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Claim reports whether query is the result of the latest fire and nothing
// was scheduled or canceled since. A query can be claimed once.
func (d *Debouncer) Claim(query string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	ok := d.fired && d.firedQuery == query
	d.fired = false
	d.firedQuery = ""
	return ok
}

// Pending reports whether a timer is scheduled and has not fired.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	d.fired = false
	d.firedQuery = ""
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
