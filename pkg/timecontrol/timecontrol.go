// Package timecontrol holds the accounting rules of the supported time controls
package timecontrol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned for time controls that cannot be configured
var ErrInvalidArgument = errors.New("invalid argument")

// None marks the absence of a player index, e.g. the "old" player of the very
// first turn switch
const None = -1

// Method identifies one of the supported time controls
type Method string

// All the time controls a clock can run
const (
	CountUp          Method = "count_up"
	SuddenDeath      Method = "sudden_death"
	HourGlass        Method = "hourglass"
	PerMove          Method = "per_move"
	SimpleDelay      Method = "simple_delay"
	BronsteinDelay   Method = "bronstein"
	FischerIncrement Method = "fischer"
)

// Methods lists every supported method in a stable order
var Methods = []Method{
	CountUp,
	SuddenDeath,
	HourGlass,
	PerMove,
	SimpleDelay,
	BronsteinDelay,
	FischerIncrement,
}

// ParseMethod resolves a method name. Matching ignores case and treats '-'
// and ' ' like '_'.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)

	for _, m := range Methods {
		if string(m) == name {
			return m, nil
		}
	}

	switch name {
	case "countup", "stopwatch":
		return CountUp, nil
	case "suddendeath":
		return SuddenDeath, nil
	case "permove", "per_move_reset":
		return PerMove, nil
	case "delay", "us_delay":
		return SimpleDelay, nil
	case "bronstein_delay":
		return BronsteinDelay, nil
	case "increment", "fischer_increment":
		return FischerIncrement, nil
	}

	return "", fmt.Errorf("unknown time control method %q: %w", s, ErrInvalidArgument)
}

// UsesDelay reports whether the method reads the per-player delay value
func (m Method) UsesDelay() bool {
	switch m {
	case SimpleDelay, BronsteinDelay, FischerIncrement:
		return true
	}
	return false
}

// TimeControl defines the time settings of a clock. Values are milliseconds,
// index 0 is white and index 1 is black.
type TimeControl struct {
	Method Method
	Time   [2]int64
	Delay  [2]*int64 // delay or increment, nil when unused
}

// Validate checks the method and rejects negative initial values
func (tc TimeControl) Validate() error {
	if _, err := New(tc.Method); err != nil {
		return err
	}

	return ValidateValues(tc.Time, tc.Delay)
}

// ValidateValues rejects negative initial times and delays
func ValidateValues(times [2]int64, delays [2]*int64) error {
	for i := range times {
		if times[i] < 0 {
			return fmt.Errorf("initial time %d for player %d: %w", times[i], i, ErrInvalidArgument)
		}
		if delays[i] != nil && *delays[i] < 0 {
			return fmt.Errorf("initial delay %d for player %d: %w", *delays[i], i, ErrInvalidArgument)
		}
	}

	return nil
}

// Millis returns a pointer to v, handy for filling TimeControl.Delay
func Millis(v int64) *int64 {
	return &v
}
