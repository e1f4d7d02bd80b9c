package timecontrol

import "fmt"

// Policy applies the accounting rules of one time control. Implementations
// are stateless, all state lives in the Budgets they are handed.
type Policy interface {
	// Method returns the time control this policy implements
	Method() Method

	// Tick charges elapsed milliseconds while player active is on move
	Tick(b *Budgets, active int, elapsed int64)

	// OnTurnSwitch applies end-of-move adjustments. old is None for the
	// switch that starts the game.
	OnTurnSwitch(b *Budgets, old, next int)

	// CanFlag reports whether running out of time ends the game
	CanFlag() bool
}

// New returns the policy for the given method
func New(m Method) (Policy, error) {
	switch m {
	case CountUp:
		return countUp{}, nil
	case SuddenDeath:
		return suddenDeath{}, nil
	case HourGlass:
		return hourGlass{}, nil
	case PerMove:
		return perMove{}, nil
	case SimpleDelay:
		return simpleDelay{}, nil
	case BronsteinDelay:
		return bronsteinDelay{}, nil
	case FischerIncrement:
		return fischerIncrement{}, nil
	}

	return nil, fmt.Errorf("unknown time control method %q: %w", m, ErrInvalidArgument)
}

// countUp works like a stopwatch per player
type countUp struct{}

func (countUp) Method() Method { return CountUp }

func (countUp) Tick(b *Budgets, i int, elapsed int64) {
	b[i].Time += elapsed
}

func (countUp) OnTurnSwitch(*Budgets, int, int) {}

func (countUp) CanFlag() bool { return false }

type suddenDeath struct{}

func (suddenDeath) Method() Method { return SuddenDeath }

func (suddenDeath) Tick(b *Budgets, i int, elapsed int64) {
	b[i].Time -= elapsed
}

func (suddenDeath) OnTurnSwitch(*Budgets, int, int) {}

func (suddenDeath) CanFlag() bool { return true }

// hourGlass moves time from the player on move to the opponent, the sum of
// both clocks never changes
type hourGlass struct{}

func (hourGlass) Method() Method { return HourGlass }

func (hourGlass) Tick(b *Budgets, i int, elapsed int64) {
	b[i].Time -= elapsed
	b[1-i].Time += elapsed
}

func (hourGlass) OnTurnSwitch(*Budgets, int, int) {}

func (hourGlass) CanFlag() bool { return true }

// perMove gives every move the full initial time, nothing carries over
type perMove struct{}

func (perMove) Method() Method { return PerMove }

func (perMove) Tick(b *Budgets, i int, elapsed int64) {
	b[i].Time -= elapsed
}

func (perMove) OnTurnSwitch(b *Budgets, old, _ int) {
	if old == None {
		return
	}
	b[old].Time = b[old].InitialTime
}

func (perMove) CanFlag() bool { return true }

// simpleDelay holds the main clock until the move's delay is used up
type simpleDelay struct{}

func (simpleDelay) Method() Method { return SimpleDelay }

func (simpleDelay) Tick(b *Budgets, i int, elapsed int64) {
	d := b[i].Delay - elapsed
	if d < 0 {
		b[i].Time += d
		b[i].Delay = 0
		return
	}
	b[i].Delay = d
}

func (simpleDelay) OnTurnSwitch(b *Budgets, old, _ int) {
	if old == None {
		return
	}
	b[old].Delay = b[old].InitialDelay
}

func (simpleDelay) CanFlag() bool { return true }

// bronsteinDelay runs the main clock and refunds, at the end of the move,
// whatever was spent inside the delay window
type bronsteinDelay struct{}

func (bronsteinDelay) Method() Method { return BronsteinDelay }

func (bronsteinDelay) Tick(b *Budgets, i int, elapsed int64) {
	runWithDelay(b, i, elapsed)
}

func (bronsteinDelay) OnTurnSwitch(b *Budgets, old, _ int) {
	if old == None {
		return
	}
	if b[old].Delay >= 0 {
		spent := b[old].InitialDelay - b[old].Delay
		b[old].Time += spent
	}
	b[old].Delay = b[old].InitialDelay
}

func (bronsteinDelay) CanFlag() bool { return true }

// fischerIncrement credits the increment to the player who completed the move
type fischerIncrement struct{}

func (fischerIncrement) Method() Method { return FischerIncrement }

func (fischerIncrement) Tick(b *Budgets, i int, elapsed int64) {
	runWithDelay(b, i, elapsed)
}

func (fischerIncrement) OnTurnSwitch(b *Budgets, old, _ int) {
	if old == None {
		return
	}
	b[old].Time += b[old].InitialDelay
	b[old].Delay = b[old].InitialDelay
}

func (fischerIncrement) CanFlag() bool { return true }

// runWithDelay charges the main clock in full and tracks the delay window
// independently, never letting it go below zero
func runWithDelay(b *Budgets, i int, elapsed int64) {
	b[i].Time -= elapsed
	b[i].Delay = max(b[i].Delay-elapsed, 0)
}
