package search

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// manualScheduler is a fake clock: timers fire only when Advance passes
// their deadline.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s        *manualScheduler
	deadline time.Duration
	f        func()
	stopped  bool
	fired    bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, deadline: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward and fires due timers in deadline order.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.deadline <= s.now {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].deadline < due[j].deadline })
	for _, t := range due {
		t.f()
	}
}

// Active returns the number of timers that are neither stopped nor fired.
func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func TestDebouncerFiresOnceAfterQuietPeriod(t *testing.T) {
	sched := &manualScheduler{}
	var fired []string
	d := NewDebouncer(time.Second, sched, func(q string) { fired = append(fired, q) })

	d.Schedule("o")
	sched.Advance(300 * time.Millisecond)
	d.Schedule("oc")
	sched.Advance(300 * time.Millisecond)
	d.Schedule("octo")

	assert.Empty(t, fired, "typing within the window must not fire")
	assert.Equal(t, 1, sched.Active(), "only one timer may be live")
	assert.True(t, d.Pending())

	sched.Advance(999 * time.Millisecond)
	assert.Empty(t, fired)

	sched.Advance(time.Millisecond)
	assert.Equal(t, []string{"octo"}, fired)
	assert.False(t, d.Pending())

	sched.Advance(10 * time.Second)
	assert.Equal(t, []string{"octo"}, fired, "a quiescent period fires exactly once")
}

func TestDebouncerCancel(t *testing.T) {
	sched := &manualScheduler{}
	fired := 0
	d := NewDebouncer(time.Second, sched, func(string) { fired++ })

	d.Schedule("octo")
	d.Cancel()
	sched.Advance(5 * time.Second)

	assert.Equal(t, 0, fired)
	assert.False(t, d.Pending())
	assert.Equal(t, 0, sched.Active())
}

func TestDebouncerDropsTimerCanceledWhileFiring(t *testing.T) {
	sched := &manualScheduler{}
	var fired []string
	d := NewDebouncer(time.Second, sched, func(q string) { fired = append(fired, q) })

	d.Schedule("old")
	sched.mu.Lock()
	stale := sched.timers[0]
	sched.mu.Unlock()

	// The old timer's callback was already dispatched when a new schedule
	// cancels it: Stop cannot prevent it, the generation check must.
	d.Schedule("new")
	stale.f()
	assert.Empty(t, fired)

	sched.Advance(time.Second)
	assert.Equal(t, []string{"new"}, fired)
}

func TestDebouncerClaim(t *testing.T) {
	sched := &manualScheduler{}
	d := NewDebouncer(time.Second, sched, func(string) {})

	assert.False(t, d.Claim("octo"), "nothing fired yet")

	d.Schedule("octo")
	sched.Advance(time.Second)
	assert.False(t, d.Claim("other"))

	d.Schedule("octo")
	sched.Advance(time.Second)
	d.Cancel()
	assert.False(t, d.Claim("octo"), "cancel after fire voids the query")

	d.Schedule("octo")
	sched.Advance(time.Second)
	assert.True(t, d.Claim("octo"))
	assert.False(t, d.Claim("octo"))
}

func TestDebouncerRealClock(t *testing.T) {
	done := make(chan string, 1)
	d := NewDebouncer(10*time.Millisecond, nil, func(q string) { done <- q })

	d.Schedule("a")
	d.Schedule("ab")

	select {
	case q := <-done:
		assert.Equal(t, "ab", q)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
}
