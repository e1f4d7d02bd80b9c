package tick

import (
	"sort"
	"sync"
	"time"
)

// FakeScheduler is a deterministic Scheduler for tests. Time only moves when
// Advance or Jump is called, and callbacks run synchronously inside Advance.
type FakeScheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*fakeTimer
}

type fakeTimer struct {
	scheduler *FakeScheduler
	deadline  time.Time
	seq       uint64
	f         func()
}

// NewFakeScheduler creates a fake scheduler whose clock reads start
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{now: start}
}

// Now returns the fake current time
func (f *FakeScheduler) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run once the fake time reaches now+d
func (f *FakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTimer{scheduler: f, deadline: f.now.Add(d), seq: f.seq, f: fn}
	f.pending = append(f.pending, t)

	return t
}

// Pending returns the number of armed, unfired timers
func (f *FakeScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Advance moves time forward by d, firing every timer that falls due on the
// way in deadline order. Timers armed by a callback fire too if they fall
// due before the target time.
func (f *FakeScheduler) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		if t.deadline.After(f.now) {
			f.now = t.deadline
		}

		f.mu.Unlock()
		t.f()
		f.mu.Lock()
	}

	if target.After(f.now) {
		f.now = target
	}
	f.mu.Unlock()
}

// Jump moves time forward by d without firing anything, as if the host had
// been too busy to wake anybody up. The overdue timers fire on the next
// Advance.
func (f *FakeScheduler) Jump(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// nextDue pops the earliest timer due at or before target. Must be called
// with mu held.
func (f *FakeScheduler) nextDue(target time.Time) *fakeTimer {
	if len(f.pending) == 0 {
		return nil
	}

	sort.Slice(f.pending, func(i, j int) bool {
		a, b := f.pending[i], f.pending[j]
		if a.deadline.Equal(b.deadline) {
			return a.seq < b.seq
		}
		return a.deadline.Before(b.deadline)
	})

	t := f.pending[0]
	if t.deadline.After(target) {
		return nil
	}
	f.pending = f.pending[1:]

	return t
}

func (t *fakeTimer) Stop() bool {
	f := t.scheduler
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, p := range f.pending {
		if p == t {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return true
		}
	}

	return false
}
