package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock access so retry scheduling is testable
// without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Real returns a Clock backed by the system clock.
func Real() Clock {
	return realClock{}
}

// Fake is a manually advanced Clock for tests. Timers created with
// After fire when Advance moves the fake time past their deadline.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer
}

type fakeTimer struct {
	at time.Time
	ch chan time.Time
}

// NewFake returns a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	at := f.now.Add(d)
	if d <= 0 {
		ch <- at
		return ch
	}
	f.timers = append(f.timers, fakeTimer{at: at, ch: ch})
	return ch
}

// Advance moves the fake time forward and fires any elapsed timers.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	remaining := f.timers[:0]
	for _, t := range f.timers {
		if !t.at.After(f.now) {
			t.ch <- f.now
		} else {
			remaining = append(remaining, t)
		}
	}
	f.timers = remaining
}
