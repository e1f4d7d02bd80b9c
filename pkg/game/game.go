// Package game ties a chess clock to its owner and an optional move record
package game

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/messages"
	"github.com/tecu23/chess-clock/pkg/tick"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

// Notifier receives the messages a game pushes to its owner
type Notifier interface {
	SendJSON(v interface{})
}

// CreateGameParams configures a new game
type CreateGameParams struct {
	GameID       uuid.UUID
	TimeControl  timecontrol.TimeControl
	Scheduler    tick.Scheduler
	TickInterval time.Duration
}

// Game is one clock with its owner and move record
type Game struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID

	Clock *chess.Clock

	mu    sync.Mutex // guards board
	board *chesslib.Game

	// only touched by onClock, which the clock serializes
	lastState chess.State

	closed   atomic.Bool
	notifier Notifier

	Publisher *events.Publisher
	Logger    *zap.Logger
}

// CreateGame creates a game whose clock is in state New
func CreateGame(
	params CreateGameParams,
	connectionID uuid.UUID,
	notifier Notifier,
	publisher *events.Publisher,
	logger *zap.Logger,
) (*Game, error) {
	if params.GameID == uuid.Nil {
		params.GameID = uuid.New()
	}

	g := &Game{
		ID:           params.GameID,
		ConnectionID: connectionID,
		board:        chesslib.NewGame(),
		lastState:    chess.StateNew,
		notifier:     notifier,
		Publisher:    publisher,
		Logger:       logger.With(zap.String("game_id", params.GameID.String())),
	}

	opts := []chess.Option{
		chess.WithObserver(g.onClock),
		chess.WithLogger(g.Logger),
		chess.WithTickInterval(params.TickInterval),
	}
	if params.Scheduler != nil {
		opts = append(opts, chess.WithScheduler(params.Scheduler))
	}

	clock, err := chess.NewClock(params.TimeControl, opts...)
	if err != nil {
		return nil, err
	}
	g.Clock = clock

	return g, nil
}

// SwitchTurn presses player's clock button. A non-empty move is checked
// against the game record first and only recorded if it is legal for the
// player pressing.
func (g *Game) SwitchTurn(player chess.Color, move string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if move == "" {
		return g.Clock.SwitchTurn(player)
	}

	if !player.Valid() {
		return false, fmt.Errorf("switch turn for %q: %w", string(player), chess.ErrInvalidArgument)
	}

	snap := g.Clock.Snapshot()
	switch {
	case snap.State == chess.StateNew:
	case snap.State == chess.StateActive && snap.Turn == player:
	default:
		return false, nil
	}

	pos := g.board.Position()
	if toMove := colorOf(pos.Turn()); toMove != player {
		return false, fmt.Errorf("%s pressed with a move but %s is to move: %w", player, toMove, chess.ErrInvalidArgument)
	}
	if _, err := (chesslib.AlgebraicNotation{}).Decode(pos, move); err != nil {
		return false, fmt.Errorf("move %q: %v: %w", move, err, chess.ErrInvalidArgument)
	}

	// the move is only recorded once the clock has taken the press
	accepted, err := g.Clock.SwitchTurn(player)
	if err != nil || !accepted {
		return false, err
	}
	if err := g.board.PushMove(move, nil); err != nil {
		return true, fmt.Errorf("record move %q: %w", move, err)
	}

	g.Logger.Debug("processed move", zap.String("move", move), zap.Stringer("player", player))
	return accepted, nil
}

// Configure replaces the clock's initial values before the game starts
func (g *Game) Configure(times [2]int64, delays [2]*int64) error {
	return g.Clock.Configure(times, delays)
}

// PauseResume toggles the clock between active and paused
func (g *Game) PauseResume() chess.State {
	return g.Clock.PauseResume()
}

// Restart resets the clock and clears the move record
func (g *Game) Restart() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Clock.Restart()
	g.board = chesslib.NewGame()
}

// Snapshot returns the clock's current state
func (g *Game) Snapshot() chess.Snapshot {
	return g.Clock.Snapshot()
}

// State returns the full state of the game as sent to clients
func (g *Game) State() messages.ClockStatePayload {
	snap := g.Clock.Snapshot()

	g.mu.Lock()
	defer g.mu.Unlock()

	return messages.ClockStatePayload{
		GameID:    g.ID.String(),
		Clock:     snap,
		Display:   messages.Display(snap),
		FEN:       g.board.FEN(),
		MoveCount: len(g.board.Moves()),
	}
}

// Moves returns the recorded moves in algebraic notation
func (g *Game) Moves() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	notation := chesslib.AlgebraicNotation{}
	positions := g.board.Positions()
	moves := g.board.Moves()

	out := make([]string, 0, len(moves))
	for i, m := range moves {
		out = append(out, notation.Encode(positions[i], m))
	}

	return out
}

// Terminate stops the clock for good. The owner gets no further updates.
func (g *Game) Terminate() {
	if g.closed.Swap(true) {
		return
	}

	g.Clock.Restart()

	g.Publisher.Publish(events.Event{
		Type:   events.EventGameTerminated,
		GameID: g.ID.String(),
		Payload: messages.GamePayload{
			GameID: g.ID.String(),
		},
	})

	g.Logger.Info("game terminated")
}

// onClock runs with the clock locked, it must not call back into it
func (g *Game) onClock(s chess.Snapshot) {
	if g.closed.Load() {
		return
	}

	g.send(messages.TypeClockUpdate, messages.ClockUpdatePayload{
		GameID:  g.ID.String(),
		Clock:   s,
		Display: messages.Display(s),
	})

	if s.State == g.lastState {
		return
	}
	previous := g.lastState
	g.lastState = s.State

	if previous == chess.StateNew && s.State == chess.StateActive {
		g.publish(events.EventClockStarted, s)
	}
	g.publish(events.EventClockUpdated, s)

	if s.State == chess.StateFinished {
		flagged := s.Flagged()

		g.send(messages.TypeFlagFall, messages.FlagFallPayload{
			GameID: g.ID.String(),
			Color:  flagged,
		})
		g.Publisher.Publish(events.Event{
			Type:   events.EventTimeUp,
			GameID: g.ID.String(),
			Payload: messages.FlagFallPayload{
				GameID: g.ID.String(),
				Color:  flagged,
			},
		})

		g.Logger.Info("player time expired", zap.Stringer("color", flagged))
	}
}

func (g *Game) publish(t events.EventType, s chess.Snapshot) {
	g.Publisher.Publish(events.Event{
		Type:   t,
		GameID: g.ID.String(),
		Payload: messages.ClockUpdatePayload{
			GameID:  g.ID.String(),
			Clock:   s,
			Display: messages.Display(s),
		},
	})
}

func (g *Game) send(event string, payload interface{}) {
	if g.notifier == nil {
		return
	}

	g.notifier.SendJSON(messages.OutboundMessage{
		Event:   event,
		Payload: payload,
	})
}

func colorOf(c chesslib.Color) chess.Color {
	switch c {
	case chesslib.White:
		return chess.White
	case chesslib.Black:
		return chess.Black
	}

	return chess.NoColor
}
