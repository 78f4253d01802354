// Package clock abstracts the wall clock so narration delays can run on
// simulated time.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Clock is the time source used by the sequencer.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Sleep blocks for d on c or until ctx is done.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	ch := c.After(d)
	select {
	case <-ctx.Done():
		if s, ok := c.(stopper); ok {
			s.stop(ch)
		}
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// stopper is implemented by clocks that track pending timers.
type stopper interface {
	stop(ch <-chan time.Time)
}

// Real is backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

type waiter struct {
	until time.Time
	ch    chan time.Time
}

// Fake is a manually driven clock. In auto mode every After call advances
// the clock by its duration and fires immediately.
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	auto    bool
	waiters []waiter
}

// NewFake returns a manual clock starting at start.
func NewFake(start time.Time) *Fake {
	f := &Fake{now: start}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// NewAuto returns a clock that never blocks and accumulates simulated time.
func NewAuto(start time.Time) *Fake {
	f := NewFake(start)
	f.auto = true
	return f
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
	if f.auto {
		if d > 0 {
			f.now = f.now.Add(d)
		}
		ch <- f.now
		return ch
	}
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, waiter{until: f.now.Add(d), ch: ch})
	f.cond.Broadcast()
	return ch
}

// Advance moves the clock forward and fires every waiter that is due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	sort.SliceStable(f.waiters, func(i, j int) bool {
		return f.waiters[i].until.Before(f.waiters[j].until)
	})
	pending := f.waiters[:0]
	for _, w := range f.waiters {
		if w.until.After(f.now) {
			pending = append(pending, w)
			continue
		}
		w.ch <- f.now
	}
	f.waiters = pending
}

// stop drops the waiter behind ch so an abandoned Sleep is no longer counted.
func (f *Fake) stop(ch <-chan time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := f.waiters[:0]
	for _, w := range f.waiters {
		if (<-chan time.Time)(w.ch) == ch {
			continue
		}
		pending = append(pending, w)
	}
	f.waiters = pending
}

// BlockUntil waits until at least n goroutines are parked in After.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.waiters) < n {
		f.cond.Wait()
	}
}

// Waiters reports how many After calls have not fired yet.
func (f *Fake) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}
