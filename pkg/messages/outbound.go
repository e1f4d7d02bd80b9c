package messages

import (
	"github.com/tecu23/chess-clock/pkg/chess"
)

// Outbound message types
const (
	TypeConnected    = "CONNECTED"
	TypeClockCreated = "CLOCK_CREATED"
	TypeClockState   = "CLOCK_STATE"
	TypeClockUpdate  = "CLOCK_UPDATE"
	TypeFlagFall     = "FLAG_FALL"
	TypePresets      = "PRESETS"
	TypeClockClosed  = "CLOCK_CLOSED"
	TypeError        = "ERROR"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// ClockStatePayload describes a clock and its game record
type ClockStatePayload struct {
	GameID    string         `json:"game_id"`
	Clock     chess.Snapshot `json:"clock"`
	Display   [2]string      `json:"display"`
	FEN       string         `json:"fen"`
	MoveCount int            `json:"move_count"`
}

// ClockUpdatePayload contains information about the current state of the clock
type ClockUpdatePayload struct {
	GameID  string         `json:"game_id"`
	Clock   chess.Snapshot `json:"clock"`
	Display [2]string      `json:"display"`
}

// FlagFallPayload contains information about which player ran out of time
type FlagFallPayload struct {
	GameID string      `json:"game_id"`
	Color  chess.Color `json:"color"`
}

// PresetPayload describes one time control preset
type PresetPayload struct {
	Name   string    `json:"name"`
	Method string    `json:"method"`
	Time   [2]int64  `json:"time"`
	Delay  [2]*int64 `json:"delay"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Display formats both players' times of a snapshot
func Display(s chess.Snapshot) [2]string {
	return [2]string{
		chess.FormatClockTime(s.Time[0]),
		chess.FormatClockTime(s.Time[1]),
	}
}
