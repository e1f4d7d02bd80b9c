package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/messages"
)

const (
	maxMessageSize = 4096
	sendBufferSize = 256
)

type Connection struct {
	ID      uuid.UUID
	ws      *websocket.Conn // The underlying Websocket connection
	hub     *Hub
	writeMu sync.Mutex // Mutex to protect concurrent writes to ws.

	sendMu sync.Mutex // guards send and closed
	send   chan []byte
	closed bool

	limiter *rate.Limiter

	publisher *events.Publisher
	logger    *zap.Logger
}

func NewConnection(
	ws *websocket.Conn,
	hub *Hub,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Connection {
	id := uuid.New()

	return &Connection{
		ID:        id,
		ws:        ws,
		hub:       hub,
		send:      make(chan []byte, sendBufferSize),
		limiter:   rate.NewLimiter(hub.rateLimit, hub.rateBurst),
		publisher: publisher,
		logger:    logger.With(zap.String("connection_id", id.String())),
	}
}

// ReadPump handles inbound messages from the client
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()

		// Publish connection closed event
		c.publisher.Publish(events.Event{
			Type: events.EventConnectionClosed,
			Payload: map[string]string{
				"connection_id": c.ID.String(),
			},
		})
	}()

	c.ws.SetReadLimit(maxMessageSize)

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read error", zap.Error(err))
			}
			break
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		if !c.limiter.Allow() {
			c.sendError("Rate limit exceeded")
			continue
		}

		inbound, ok := c.decode(msg)
		if !ok {
			continue
		}

		if !c.hub.Dispatch(InboundHubMessage{Conn: c, Message: inbound}) {
			break
		}
	}
}

// decode checks the message envelope, the payload is left for the handler
func (c *Connection) decode(msg []byte) (messages.InboundMessage, bool) {
	if !gjson.ValidBytes(msg) {
		c.logger.Debug("Failed to parse inbound JSON")
		c.sendError("Invalid JSON")
		return messages.InboundMessage{}, false
	}

	typ := gjson.GetBytes(msg, "type")
	if typ.Type != gjson.String || typ.Str == "" {
		c.sendError("Missing message type")
		return messages.InboundMessage{}, false
	}

	inbound := messages.InboundMessage{Type: typ.Str}
	if payload := gjson.GetBytes(msg, "payload"); payload.Exists() {
		inbound.Payload = json.RawMessage(payload.Raw)
	}

	return inbound, true
}

// WritePump handles outbound messages to the client
func (c *Connection) WritePump() {
	defer func() {
		c.ws.Close()
	}()

	for message := range c.send {
		c.writeMu.Lock()
		err := c.ws.WriteMessage(websocket.TextMessage, message)
		c.writeMu.Unlock()
		if err != nil {
			c.logger.Error("write error", zap.Error(err))
			return
		}
	}

	c.logger.Info("Send channel closed for connection")
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
}

// SendJSON is a helper for sending JSON to this connection. It never blocks,
// messages for a closed or backed up connection are dropped.
func (c *Connection) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Error marshaling JSON", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message")
	}
}

func (c *Connection) sendError(msg string) {
	c.SendJSON(messages.OutboundMessage{
		Event: messages.TypeError,
		Payload: messages.ErrorPayload{
			Message: msg,
		},
	})
}

// close stops the write pump once the buffered messages are written
func (c *Connection) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
