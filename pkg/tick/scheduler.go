// Package tick delivers the actual time elapsed between periodic wake-ups
package tick

import "time"

// Timer represents a pending wake-up that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler is the host facility a Source arms its wake-ups with.
// Now must be monotonic.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// SystemScheduler is the default Scheduler, backed by the time package.
var SystemScheduler Scheduler = systemScheduler{}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (systemScheduler) Now() time.Time {
	return time.Now()
}
