package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/game"
	"github.com/tecu23/chess-clock/pkg/manager"
	"github.com/tecu23/chess-clock/pkg/messages"
	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

// Default inbound rate per connection
const (
	DefaultRateLimit = rate.Limit(20)
	DefaultRateBurst = 40
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // envelope checked, payload still raw
}

// Hub keeps track of all active connections and is responsible for
// registering and unregistering them. Messages come from the inbound channel
// and are applied to the clocks the sending connection owns.
type Hub struct {
	mu          sync.RWMutex         // Mutex to protect direct access to the connections map.
	connections map[*Connection]bool // Registered connections

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Channel of inbound messages to route

	done     chan struct{}
	stopped  chan struct{} // closed when Run returns
	shutdown sync.Once

	rateLimit rate.Limit
	rateBurst int

	manager   *manager.Manager
	publisher *events.Publisher
	logger    *zap.Logger
}

type HubOption func(*Hub)

// WithRateLimit sets how many messages per second a connection may send
func WithRateLimit(limit rate.Limit, burst int) HubOption {
	return func(h *Hub) {
		h.rateLimit = limit
		h.rateBurst = burst
	}
}

// NewHub creates a new hub
func NewHub(m *manager.Manager, publisher *events.Publisher, logger *zap.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		rateLimit:   DefaultRateLimit,
		rateBurst:   DefaultRateBurst,
		manager:     m,
		publisher:   publisher,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.close()
	}
}

func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Dispatch hands a message to the hub. It reports false once the hub is
// shut down.
func (h *Hub) Dispatch(msg InboundHubMessage) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Shutdown stops the hub and closes every connection
func (h *Hub) Shutdown() {
	h.shutdown.Do(func() {
		close(h.done)
	})
}

// Wait blocks until Run has returned after Shutdown
func (h *Hub) Wait() {
	<-h.stopped
}

// Connections returns the number of registered connections
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	count := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("New connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", count),
	)

	conn.SendJSON(messages.OutboundMessage{
		Event: messages.TypeConnected,
		Payload: messages.ConnectedPayload{
			ConnectionID: conn.ID.String(),
		},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		conn.close()
		h.logger.Info("Connection unregistered",
			zap.String("connection_id", conn.ID.String()),
			zap.Int("connections", len(h.connections)),
		)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		conn.close()
		delete(h.connections, conn)
	}

	h.logger.Info("Hub stopped")
}

// handleInbound decodes the payload and applies the message to the
// connection's clocks
func (h *Hub) handleInbound(msg InboundHubMessage) {
	conn := msg.Conn

	switch msg.Message.Type {
	case messages.TypeCreateClock:
		var payload messages.CreateClockPayload
		if !h.decode(conn, msg.Message, &payload) {
			return
		}
		h.createClock(conn, payload)

	case messages.TypeConfigure:
		var payload messages.ConfigurePayload
		if !h.decode(conn, msg.Message, &payload) {
			return
		}

		g, ok := h.lookupGame(conn, payload.GameID)
		if !ok {
			return
		}
		if err := g.Configure(payload.Time, payload.Delay); err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.sendState(conn, g)

	case messages.TypeSwitchTurn:
		var payload messages.SwitchTurnPayload
		if !h.decode(conn, msg.Message, &payload) {
			return
		}

		g, ok := h.lookupGame(conn, payload.GameID)
		if !ok {
			return
		}
		player, err := chess.ParseColor(payload.Player)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		if _, err := g.SwitchTurn(player, payload.Move); err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.sendState(conn, g)

	case messages.TypePauseResume:
		h.withGame(conn, msg.Message, func(g *game.Game) {
			g.PauseResume()
			h.sendState(conn, g)
		})

	case messages.TypeRestart:
		h.withGame(conn, msg.Message, func(g *game.Game) {
			g.Restart()
			h.sendState(conn, g)
		})

	case messages.TypeGetState:
		h.withGame(conn, msg.Message, func(g *game.Game) {
			h.sendState(conn, g)
		})

	case messages.TypeCloseClock:
		h.withGame(conn, msg.Message, func(g *game.Game) {
			if err := h.manager.RemoveGame(conn.ID, g.ID); err != nil {
				h.sendError(conn, err.Error())
				return
			}
			conn.SendJSON(messages.OutboundMessage{
				Event:   messages.TypeClockClosed,
				Payload: messages.GamePayload{GameID: g.ID.String()},
			})
		})

	case messages.TypeListPresets:
		h.listPresets(conn)

	default:
		h.sendError(conn, fmt.Sprintf("Unknown message type %q", msg.Message.Type))
	}
}

func (h *Hub) createClock(conn *Connection, payload messages.CreateClockPayload) {
	var (
		g   *game.Game
		err error
	)

	if payload.Preset != "" {
		g, err = h.manager.CreateGameFromPreset(conn.ID, payload.Preset, conn)
	} else {
		var method timecontrol.Method
		method, err = timecontrol.ParseMethod(payload.Method)
		if err == nil {
			g, err = h.manager.CreateGame(conn.ID, timecontrol.TimeControl{
				Method: method,
				Time:   payload.Time,
				Delay:  payload.Delay,
			}, conn)
		}
	}
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.TypeClockCreated,
		Payload: g.State(),
	})
}

func (h *Hub) listPresets(conn *Connection) {
	presets := h.manager.Presets()

	out := make([]messages.PresetPayload, 0, len(presets))
	for _, p := range presets {
		tc, err := p.TimeControl()
		if err != nil {
			continue
		}
		out = append(out, messages.PresetPayload{
			Name:   p.Name,
			Method: string(tc.Method),
			Time:   tc.Time,
			Delay:  tc.Delay,
		})
	}

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.TypePresets,
		Payload: out,
	})
}

func (h *Hub) withGame(conn *Connection, msg messages.InboundMessage, fn func(g *game.Game)) {
	var payload messages.GamePayload
	if !h.decode(conn, msg, &payload) {
		return
	}

	g, ok := h.lookupGame(conn, payload.GameID)
	if !ok {
		return
	}

	fn(g)
}

func (h *Hub) decode(conn *Connection, msg messages.InboundMessage, v interface{}) bool {
	if len(msg.Payload) == 0 {
		h.sendError(conn, fmt.Sprintf("Missing %s payload", msg.Type))
		return false
	}

	if err := json.Unmarshal(msg.Payload, v); err != nil {
		h.sendError(conn, fmt.Sprintf("Invalid %s payload", msg.Type))
		return false
	}

	return true
}

func (h *Hub) lookupGame(conn *Connection, rawID string) (*game.Game, bool) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		h.sendError(conn, fmt.Sprintf("Invalid game id %q", rawID))
		return nil, false
	}

	g, err := h.manager.GetGame(conn.ID, id)
	switch {
	case errors.Is(err, manager.ErrGameNotFound), errors.Is(err, manager.ErrNotOwner):
		h.sendError(conn, fmt.Sprintf("Could not find clock with id %s", rawID))
		return nil, false
	case err != nil:
		h.sendError(conn, err.Error())
		return nil, false
	}

	return g, true
}

func (h *Hub) sendState(conn *Connection, g *game.Game) {
	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.TypeClockState,
		Payload: g.State(),
	})
}

func (h *Hub) sendError(conn *Connection, msg string) {
	h.logger.Debug("sending error", zap.String("connection_id", conn.ID.String()), zap.String("error", msg))
	conn.sendError(msg)
}
