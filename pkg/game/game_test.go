package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/messages"
	"github.com/tecu23/chess-clock/pkg/tick"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

type recorder struct {
	mu   sync.Mutex
	msgs []messages.OutboundMessage
}

func (r *recorder) SendJSON(v interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v.(messages.OutboundMessage))
}

func (r *recorder) events(name string) []messages.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []messages.OutboundMessage
	for _, m := range r.msgs {
		if m.Event == name {
			out = append(out, m)
		}
	}
	return out
}

func newTestGame(t *testing.T, tc timecontrol.TimeControl) (*Game, *tick.FakeScheduler, *recorder, *events.Publisher) {
	t.Helper()

	sched := tick.NewFakeScheduler(time.Unix(0, 0))
	rec := &recorder{}
	pub := events.NewPublisher()

	g, err := CreateGame(CreateGameParams{
		TimeControl:  tc,
		Scheduler:    sched,
		TickInterval: 10 * time.Millisecond,
	}, uuid.New(), rec, pub, zaptest.NewLogger(t))
	require.NoError(t, err)

	return g, sched, rec, pub
}

func suddenDeath(ms int64) timecontrol.TimeControl {
	return timecontrol.TimeControl{
		Method: timecontrol.SuddenDeath,
		Time:   [2]int64{ms, ms},
	}
}

func TestCreateGame(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	assert.NotEqual(t, uuid.Nil, g.ID)
	assert.Equal(t, chess.StateNew, g.Snapshot().State)

	state := g.State()
	assert.Equal(t, g.ID.String(), state.GameID)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", state.FEN)
	assert.Equal(t, 0, state.MoveCount)
	assert.Equal(t, [2]string{"01:00", "01:00"}, state.Display)
}

func TestCreateGame_InvalidTimeControl(t *testing.T) {
	_, err := CreateGame(CreateGameParams{
		TimeControl: timecontrol.TimeControl{Method: timecontrol.SuddenDeath, Time: [2]int64{-1, 1000}},
	}, uuid.New(), nil, events.NewPublisher(), zaptest.NewLogger(t))

	assert.ErrorIs(t, err, chess.ErrInvalidArgument)
}

func TestSwitchTurn_WithMoves(t *testing.T) {
	g, sched, _, _ := newTestGame(t, suddenDeath(60000))

	ok, err := g.SwitchTurn(chess.White, "e4")
	require.NoError(t, err)
	require.True(t, ok)

	turn, err := g.Clock.Turn()
	require.NoError(t, err)
	assert.Equal(t, chess.Black, turn)

	sched.Advance(500 * time.Millisecond)

	ok, err = g.SwitchTurn(chess.Black, "e5")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{"e4", "e5"}, g.Moves())
	assert.Equal(t, 2, g.State().MoveCount)
	assert.Equal(t, int64(59500), g.Snapshot().TimeOf(chess.Black))
}

func TestSwitchTurn_IllegalMove(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	ok, err := g.SwitchTurn(chess.White, "e5")
	assert.False(t, ok)
	assert.ErrorIs(t, err, chess.ErrInvalidArgument)
	assert.Equal(t, chess.StateNew, g.Snapshot().State)
	assert.Empty(t, g.Moves())
}

func TestSwitchTurn_MoveOutOfTurn(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	// Black may start the clock, but white is to move on the board
	ok, err := g.SwitchTurn(chess.Black, "e5")
	assert.False(t, ok)
	assert.ErrorIs(t, err, chess.ErrInvalidArgument)
}

func TestSwitchTurn_WrongPlayerIgnored(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	_, err := g.SwitchTurn(chess.White, "e4")
	require.NoError(t, err)

	ok, err := g.SwitchTurn(chess.White, "d4")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"e4"}, g.Moves())
}

func TestSwitchTurn_RefusedPressKeepsRecord(t *testing.T) {
	g, sched, _, _ := newTestGame(t, suddenDeath(1000))

	_, err := g.SwitchTurn(chess.White, "e4")
	require.NoError(t, err)

	require.Equal(t, chess.StatePaused, g.PauseResume())
	ok, err := g.SwitchTurn(chess.Black, "e5")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"e4"}, g.Moves())

	require.Equal(t, chess.StateActive, g.PauseResume())
	sched.Advance(time.Second)
	require.Equal(t, chess.StateFinished, g.Snapshot().State)

	ok, err = g.SwitchTurn(chess.Black, "e5")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"e4"}, g.Moves())
}

func TestSwitchTurn_InvalidPlayer(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	_, err := g.SwitchTurn(chess.NoColor, "e4")
	assert.ErrorIs(t, err, chess.ErrInvalidArgument)

	_, err = g.SwitchTurn(chess.NoColor, "")
	assert.ErrorIs(t, err, chess.ErrInvalidArgument)
}

func TestRestart_ClearsMoves(t *testing.T) {
	g, sched, _, _ := newTestGame(t, suddenDeath(60000))

	_, err := g.SwitchTurn(chess.White, "e4")
	require.NoError(t, err)
	sched.Advance(time.Second)

	g.Restart()

	snap := g.Snapshot()
	assert.Equal(t, chess.StateNew, snap.State)
	assert.Equal(t, [2]int64{60000, 60000}, snap.Time)
	assert.Empty(t, g.Moves())
	assert.Equal(t, 0, sched.Pending())
}

func TestPauseResumeAndConfigure(t *testing.T) {
	g, _, _, _ := newTestGame(t, suddenDeath(60000))

	require.NoError(t, g.Configure([2]int64{30000, 45000}, [2]*int64{}))
	assert.Equal(t, [2]int64{30000, 45000}, g.Snapshot().Time)

	// nothing to pause before the clock starts
	assert.Equal(t, chess.StateNew, g.PauseResume())

	_, err := g.SwitchTurn(chess.White, "")
	require.NoError(t, err)
	assert.Equal(t, chess.StatePaused, g.PauseResume())
	assert.Equal(t, chess.StateActive, g.PauseResume())

	assert.ErrorIs(t, g.Configure([2]int64{1000, 1000}, [2]*int64{}), chess.ErrInvalidState)
}

func TestFlagFall_NotifiesAndPublishes(t *testing.T) {
	g, sched, rec, pub := newTestGame(t, suddenDeath(1000))

	timeUp := make(chan events.Event, 1)
	pub.Subscribe(events.EventTimeUp, func(e events.Event) {
		timeUp <- e
	})

	started := make(chan events.Event, 1)
	pub.Subscribe(events.EventClockStarted, func(e events.Event) {
		started <- e
	})

	_, err := g.SwitchTurn(chess.White, "")
	require.NoError(t, err)

	select {
	case e := <-started:
		assert.Equal(t, g.ID.String(), e.GameID)
	case <-time.After(time.Second):
		t.Fatal("clock start was not published")
	}

	sched.Advance(1000 * time.Millisecond)
	assert.Equal(t, chess.StateFinished, g.Snapshot().State)

	select {
	case e := <-timeUp:
		assert.Equal(t, g.ID.String(), e.GameID)
		payload, ok := e.Payload.(messages.FlagFallPayload)
		require.True(t, ok)
		assert.Equal(t, chess.Black, payload.Color)
	case <-time.After(time.Second):
		t.Fatal("time up was not published")
	}

	flags := rec.events(messages.TypeFlagFall)
	require.Len(t, flags, 1)
	assert.Equal(t, chess.Black, flags[0].Payload.(messages.FlagFallPayload).Color)

	assert.NotEmpty(t, rec.events(messages.TypeClockUpdate))
}

func TestTerminate(t *testing.T) {
	g, sched, rec, pub := newTestGame(t, suddenDeath(60000))

	terminated := make(chan events.Event, 2)
	pub.Subscribe(events.EventGameTerminated, func(e events.Event) {
		terminated <- e
	})

	_, err := g.SwitchTurn(chess.White, "")
	require.NoError(t, err)

	g.Terminate()
	g.Terminate()

	before := len(rec.events(messages.TypeClockUpdate))
	sched.Advance(time.Second)
	assert.Len(t, rec.events(messages.TypeClockUpdate), before)
	assert.Equal(t, 0, sched.Pending())

	select {
	case e := <-terminated:
		assert.Equal(t, g.ID.String(), e.GameID)
	case <-time.After(time.Second):
		t.Fatal("termination was not published")
	}

	select {
	case <-terminated:
		t.Fatal("termination published twice")
	case <-time.After(50 * time.Millisecond):
	}
}
