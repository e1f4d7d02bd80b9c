package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/config"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/manager"
	"github.com/tecu23/chess-clock/pkg/messages"
	"github.com/tecu23/chess-clock/pkg/repository"
	"github.com/tecu23/chess-clock/pkg/tick"
)

type testServer struct {
	hub  *Hub
	repo *repository.InMemoryGameRepository
	url  string
}

func newTestServer(t *testing.T, opts ...HubOption) *testServer {
	t.Helper()

	presets, err := config.LoadPresets("")
	require.NoError(t, err)

	// the pumps outlive the test by a few moments
	logger := zap.NewNop()
	pub := events.NewPublisher()
	repo := repository.NewInMemoryRepository(logger)
	m := manager.NewManager(repo, presets, logger, pub,
		manager.WithScheduler(tick.NewFakeScheduler(time.Unix(0, 0))),
	)

	hub := NewHub(m, pub, logger, opts...)
	go hub.Run()
	t.Cleanup(func() {
		hub.Shutdown()
		hub.Wait()
	})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		conn := NewConnection(ws, hub, pub, logger)
		hub.Register(conn)

		go conn.WritePump()
		go conn.ReadPump()
	}))
	t.Cleanup(srv.Close)

	return &testServer{
		hub:  hub,
		repo: repo,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

type received struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
	id string
}

func (s *testServer) dial(t *testing.T) *client {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	c := &client{t: t, ws: ws}

	var connected messages.ConnectedPayload
	c.expect(messages.TypeConnected, &connected)
	require.NotEmpty(t, connected.ConnectionID)
	c.id = connected.ConnectionID

	return c
}

func (c *client) send(typ string, payload interface{}) {
	c.t.Helper()

	msg := map[string]interface{}{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	require.NoError(c.t, c.ws.WriteJSON(msg))
}

// expect skips messages until one with the given event arrives
func (c *client) expect(event string, v interface{}) {
	c.t.Helper()

	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg received
		require.NoError(c.t, c.ws.ReadJSON(&msg), "waiting for %s", event)

		if msg.Event == event {
			if v != nil {
				require.NoError(c.t, json.Unmarshal(msg.Payload, v))
			}
			return
		}
	}
}

func (c *client) expectError() string {
	c.t.Helper()

	var payload messages.ErrorPayload
	c.expect(messages.TypeError, &payload)
	return payload.Message
}

func TestHub_ClockLifecycle(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	c.send(messages.TypeCreateClock, messages.CreateClockPayload{Preset: "blitz-3+2"})

	var created messages.ClockStatePayload
	c.expect(messages.TypeClockCreated, &created)
	assert.Equal(t, chess.StateNew, created.Clock.State)
	assert.Equal(t, [2]int64{180000, 180000}, created.Clock.Time)
	assert.Equal(t, [2]string{"03:00", "03:00"}, created.Display)
	gameID := created.GameID

	c.send(messages.TypeSwitchTurn, messages.SwitchTurnPayload{GameID: gameID, Player: "white", Move: "e4"})

	var state messages.ClockStatePayload
	c.expect(messages.TypeClockState, &state)
	assert.Equal(t, chess.StateActive, state.Clock.State)
	assert.Equal(t, chess.Black, state.Clock.Turn)
	assert.Equal(t, 1, state.MoveCount)

	c.send(messages.TypePauseResume, messages.GamePayload{GameID: gameID})
	c.expect(messages.TypeClockState, &state)
	assert.Equal(t, chess.StatePaused, state.Clock.State)

	c.send(messages.TypeRestart, messages.GamePayload{GameID: gameID})
	c.expect(messages.TypeClockState, &state)
	assert.Equal(t, chess.StateNew, state.Clock.State)
	assert.Equal(t, 0, state.MoveCount)

	c.send(messages.TypeConfigure, messages.ConfigurePayload{
		GameID: gameID,
		Time:   [2]int64{60000, 30000},
	})
	c.expect(messages.TypeClockState, &state)
	assert.Equal(t, [2]int64{60000, 30000}, state.Clock.Time)

	c.send(messages.TypeCloseClock, messages.GamePayload{GameID: gameID})
	var closed messages.GamePayload
	c.expect(messages.TypeClockClosed, &closed)
	assert.Equal(t, gameID, closed.GameID)

	c.send(messages.TypeGetState, messages.GamePayload{GameID: gameID})
	assert.Contains(t, c.expectError(), "Could not find clock")
}

func TestHub_CreateClockFromValues(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	delay := int64(3000)
	c.send(messages.TypeCreateClock, messages.CreateClockPayload{
		Method: "bronstein",
		Time:   [2]int64{300000, 240000},
		Delay:  [2]*int64{&delay, &delay},
	})

	var created messages.ClockStatePayload
	c.expect(messages.TypeClockCreated, &created)
	assert.Equal(t, [2]int64{300000, 240000}, created.Clock.Time)
	require.NotNil(t, created.Clock.Delay[1])
	assert.Equal(t, int64(3000), *created.Clock.Delay[1])

	c.send(messages.TypeCreateClock, messages.CreateClockPayload{Method: "armageddon"})
	assert.Contains(t, c.expectError(), "armageddon")

	c.send(messages.TypeCreateClock, messages.CreateClockPayload{Method: "fischer", Time: [2]int64{-1, 1000}})
	c.expectError()
}

func TestHub_ListPresets(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	c.send(messages.TypeListPresets, nil)

	var presets []messages.PresetPayload
	c.expect(messages.TypePresets, &presets)
	require.NotEmpty(t, presets)

	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "us-delay-5+5")
}

func TestHub_InvalidMessages(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	assert.Equal(t, "Invalid JSON", c.expectError())

	require.NoError(t, c.ws.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`)))
	assert.Equal(t, "Missing message type", c.expectError())

	c.send("PLAY_BLITZ", nil)
	assert.Contains(t, c.expectError(), "Unknown message type")

	c.send(messages.TypeGetState, nil)
	assert.Contains(t, c.expectError(), "Missing")

	c.send(messages.TypeSwitchTurn, "not an object")
	assert.Contains(t, c.expectError(), "Invalid SWITCH_TURN payload")

	c.send(messages.TypeGetState, messages.GamePayload{GameID: "nope"})
	assert.Contains(t, c.expectError(), "Invalid game id")
}

func TestHub_IllegalMove(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	c.send(messages.TypeCreateClock, messages.CreateClockPayload{Preset: "blitz-5+0"})
	var created messages.ClockStatePayload
	c.expect(messages.TypeClockCreated, &created)

	c.send(messages.TypeSwitchTurn, messages.SwitchTurnPayload{GameID: created.GameID, Player: "white", Move: "Ke2"})
	assert.Contains(t, c.expectError(), "Ke2")

	c.send(messages.TypeSwitchTurn, messages.SwitchTurnPayload{GameID: created.GameID, Player: "purple"})
	assert.Contains(t, c.expectError(), "purple")
}

func TestHub_ClocksArePrivate(t *testing.T) {
	s := newTestServer(t)
	owner := s.dial(t)
	other := s.dial(t)

	owner.send(messages.TypeCreateClock, messages.CreateClockPayload{Preset: "blitz-5+0"})
	var created messages.ClockStatePayload
	owner.expect(messages.TypeClockCreated, &created)

	other.send(messages.TypeSwitchTurn, messages.SwitchTurnPayload{GameID: created.GameID, Player: "white"})
	assert.Contains(t, other.expectError(), "Could not find clock")

	owner.send(messages.TypeGetState, messages.GamePayload{GameID: created.GameID})
	var state messages.ClockStatePayload
	owner.expect(messages.TypeClockState, &state)
	assert.Equal(t, chess.StateNew, state.Clock.State)
}

func TestHub_ClosingConnectionRemovesClocks(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	c.send(messages.TypeCreateClock, messages.CreateClockPayload{Preset: "blitz-5+0"})
	c.expect(messages.TypeClockCreated, nil)

	games, err := s.repo.ListGames()
	require.NoError(t, err)
	require.Len(t, games, 1)

	require.NoError(t, c.ws.Close())

	require.Eventually(t, func() bool {
		games, _ := s.repo.ListGames()
		return len(games) == 0 && s.hub.Connections() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(rate.Every(time.Hour), 1))
	c := s.dial(t)

	c.send(messages.TypeListPresets, nil)
	c.expect(messages.TypePresets, nil)

	c.send(messages.TypeListPresets, nil)
	assert.Equal(t, "Rate limit exceeded", c.expectError())
}

func TestHub_Shutdown(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	s.hub.Shutdown()

	require.NoError(t, c.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			return
		}
	}
}

func TestHub_WaitReturnsAfterShutdown(t *testing.T) {
	logger := zaptest.NewLogger(t)
	m := manager.NewManager(repository.NewInMemoryRepository(logger), nil, logger, events.NewPublisher())
	hub := NewHub(m, events.NewPublisher(), logger)

	go hub.Run()
	hub.Shutdown()

	stopped := make(chan struct{})
	go func() {
		hub.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	// a second shutdown is harmless
	hub.Shutdown()
	hub.Wait()
}
