package tick

import (
	"sync"
	"time"
)

// DefaultInterval is the nominal wake-up interval
const DefaultInterval = 50 * time.Millisecond

// Source arms repeating wake-ups and reports the real time elapsed between
// them, in whole milliseconds.
//
// A Source does no locking of its own. Its owner guards Start and Stop with
// the Locker handed to NewSource, and every wake-up takes the same lock
// before it touches the Source or calls deliver. deliver therefore runs with
// the lock held.
type Source struct {
	scheduler Scheduler
	interval  time.Duration
	lock      sync.Locker
	deliver   func(elapsed time.Duration)

	timer Timer
	last  time.Time
	gen   uint64 // bumped on every Start/Stop, stale wake-ups compare against it
	armed bool
}

// NewSource creates a stopped Source. A non-positive interval selects
// DefaultInterval.
func NewSource(
	scheduler Scheduler,
	interval time.Duration,
	lock sync.Locker,
	deliver func(elapsed time.Duration),
) *Source {
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Source{
		scheduler: scheduler,
		interval:  interval,
		lock:      lock,
		deliver:   deliver,
	}
}

// Interval returns the nominal wake-up interval
func (s *Source) Interval() time.Duration {
	return s.interval
}

// Armed reports whether a wake-up is pending
func (s *Source) Armed() bool {
	return s.armed
}

// Start resets the time reference to now and arms the first wake-up,
// cancelling any wake-up that is already pending.
func (s *Source) Start() {
	s.Stop()

	s.last = s.scheduler.Now()
	s.armed = true
	s.arm()
}

// Stop cancels the pending wake-up. Calling it on a stopped Source is a
// no-op. A wake-up already waiting for the lock is discarded once it gets it.
func (s *Source) Stop() {
	if !s.armed {
		return
	}

	s.armed = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Source) arm() {
	gen := s.gen
	s.timer = s.scheduler.AfterFunc(s.interval, func() {
		s.wake(gen)
	})
}

func (s *Source) wake(gen uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.armed || gen != s.gen {
		return
	}

	// only whole milliseconds are delivered, the remainder stays in the
	// reference so nothing is lost across wake-ups
	elapsed := s.scheduler.Now().Sub(s.last).Truncate(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}
	s.last = s.last.Add(elapsed)

	s.arm()
	s.deliver(elapsed)
}
