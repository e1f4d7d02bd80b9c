// Package chess defines the game entities
package chess

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/chess-clock/pkg/tick"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

// State is the lifecycle state of a Clock
type State string

// All the states a clock can be in
const (
	StateNew      State = "new"
	StateActive   State = "active"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// Snapshot is a read-only copy of the clock's state. Times are raw and can be
// negative right after flag-fall; clamping is left to the presentation.
type Snapshot struct {
	State  State              `json:"state"`
	Turn   Color              `json:"turn,omitempty"`
	Method timecontrol.Method `json:"method"`
	Time   [2]int64           `json:"time"`
	Delay  [2]*int64          `json:"delay"`
}

// TimeOf returns the remaining time of the given player
func (s Snapshot) TimeOf(c Color) int64 {
	return s.Time[c.Index()]
}

// DelayOf returns the delay of the given player, nil if none is configured
func (s Snapshot) DelayOf(c Color) *int64 {
	return s.Delay[c.Index()]
}

// Flagged returns the player whose flag fell, or NoColor
func (s Snapshot) Flagged() Color {
	if s.State != StateFinished {
		return NoColor
	}
	for i, t := range s.Time {
		if t <= 0 {
			return ColorAt(i)
		}
	}

	return NoColor
}

// Observer receives a snapshot after every tick and every state change. It
// is called with the clock locked and must not call back into the Clock.
type Observer func(Snapshot)

// Option configures a Clock
type Option func(*Clock)

// WithScheduler sets the host scheduler the clock's ticks are armed with
func WithScheduler(s tick.Scheduler) Option {
	return func(c *Clock) { c.scheduler = s }
}

// WithTickInterval sets the nominal interval between ticks
func WithTickInterval(d time.Duration) Option {
	return func(c *Clock) { c.interval = d }
}

// WithObserver registers the snapshot observer
func WithObserver(o Observer) Option {
	return func(c *Clock) { c.observer = o }
}

// WithLogger sets the logger for state transitions
func WithLogger(l *zap.Logger) Option {
	return func(c *Clock) { c.logger = l }
}

// Clock manages the chess clock for both players.
//
// A single mutex serializes ticks and user events; the tick source is
// started and stopped under it and delivers its ticks under it.
type Clock struct {
	mu sync.Mutex

	state State
	turn  Color

	policy       timecontrol.Policy
	initialTime  [2]int64
	initialDelay [2]*int64
	budgets      timecontrol.Budgets

	scheduler tick.Scheduler
	interval  time.Duration
	source    *tick.Source

	observer Observer
	logger   *zap.Logger
}

// NewClock creates a clock in state New configured with the given time
// control
func NewClock(tc timecontrol.TimeControl, opts ...Option) (*Clock, error) {
	policy, err := timecontrol.New(tc.Method)
	if err != nil {
		return nil, err
	}

	c := &Clock{
		state:     StateNew,
		turn:      NoColor,
		policy:    policy,
		scheduler: tick.SystemScheduler,
		interval:  tick.DefaultInterval,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.source = tick.NewSource(c.scheduler, c.interval, &c.mu, c.onSourceTick)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.configure(tc.Time, tc.Delay); err != nil {
		return nil, err
	}

	return c, nil
}

// Configure replaces the initial times and delays. It is only legal before
// the game has started.
func (c *Clock) Configure(times [2]int64, delays [2]*int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return fmt.Errorf("configure while %s: %w", c.state, ErrInvalidState)
	}

	if err := c.configure(times, delays); err != nil {
		return err
	}

	c.notify()
	return nil
}

func (c *Clock) configure(times [2]int64, delays [2]*int64) error {
	if err := timecontrol.ValidateValues(times, delays); err != nil {
		return err
	}

	c.initialTime = times
	for i, d := range delays {
		c.initialDelay[i] = nil
		if d != nil {
			c.initialDelay[i] = timecontrol.Millis(*d)
		}
	}
	c.budgets = timecontrol.NewBudgets(c.initialTime, c.initialDelay)

	return nil
}

// SwitchTurn is pressed by the player who just completed a move. The first
// press starts the game with the opponent on move. Presses by the player who
// is not on move, or while paused or finished, are ignored. It reports
// whether the press was accepted.
func (c *Clock) SwitchTurn(player Color) (bool, error) {
	if !player.Valid() {
		return false, fmt.Errorf("switch turn for %q: %w", string(player), ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateNew:
		c.turn = player.Opp()
		c.state = StateActive
		c.source.Start()
		c.policy.OnTurnSwitch(&c.budgets, timecontrol.None, c.turn.Index())

		c.logger.Info("clock started", zap.Stringer("turn", c.turn))

	case StateActive:
		if player != c.turn {
			return false, nil
		}

		old := c.turn
		c.turn = old.Opp()
		c.policy.OnTurnSwitch(&c.budgets, old.Index(), c.turn.Index())

		c.logger.Debug("turn switched", zap.Stringer("turn", c.turn))

	default:
		return false, nil
	}

	c.notify()
	return true, nil
}

// PauseResume toggles between active and paused and returns the resulting
// state. It does nothing in the other states.
func (c *Clock) PauseResume() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateActive:
		c.source.Stop()
		c.state = StatePaused
	case StatePaused:
		c.state = StateActive
		c.source.Start()
	default:
		return c.state
	}

	c.logger.Debug("clock toggled", zap.String("state", string(c.state)))
	c.notify()

	return c.state
}

// Restart stops the clock and restores the configured times and delays
func (c *Clock) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.source.Stop()
	c.state = StateNew
	c.turn = NoColor
	c.budgets.Reset()

	c.logger.Debug("clock restarted")
	c.notify()
}

// Tick charges elapsed milliseconds to the player on move. Ticks outside
// the active state are ignored and negative values count as zero.
func (c *Clock) Tick(elapsed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick(elapsed)
}

func (c *Clock) onSourceTick(elapsed time.Duration) {
	c.tick(elapsed.Milliseconds())
}

func (c *Clock) tick(elapsed int64) {
	if c.state != StateActive {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}

	c.policy.Tick(&c.budgets, c.turn.Index(), elapsed)

	if c.policy.CanFlag() && c.budgets.Flagged() {
		c.source.Stop()
		c.state = StateFinished
		c.turn = NoColor

		c.logger.Info("flag fell",
			zap.Int64("white_ms", c.budgets[0].Time),
			zap.Int64("black_ms", c.budgets[1].Time),
		)
	}

	c.notify()
}

// Snapshot returns a copy of the current state
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

// State returns the current state
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Turn returns the player on move. There is none before the game starts and
// after it ends.
func (c *Clock) Turn() (Color, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.turn == NoColor {
		return NoColor, fmt.Errorf("no player on move while %s: %w", c.state, ErrInvalidState)
	}

	return c.turn, nil
}

// TimeControl returns the method and the most recently configured values
func (c *Clock) TimeControl() timecontrol.TimeControl {
	c.mu.Lock()
	defer c.mu.Unlock()

	tc := timecontrol.TimeControl{
		Method: c.policy.Method(),
		Time:   c.initialTime,
	}
	for i, d := range c.initialDelay {
		if d != nil {
			tc.Delay[i] = timecontrol.Millis(*d)
		}
	}

	return tc
}

func (c *Clock) snapshot() Snapshot {
	return Snapshot{
		State:  c.state,
		Turn:   c.turn,
		Method: c.policy.Method(),
		Time:   c.budgets.Times(),
		Delay:  c.budgets.Delays(),
	}
}

func (c *Clock) notify() {
	if c.observer != nil {
		c.observer(c.snapshot())
	}
}
