package messages

import "encoding/json"

// Inbound message types
const (
	TypeCreateClock = "CREATE_CLOCK"
	TypeConfigure   = "CONFIGURE"
	TypeSwitchTurn  = "SWITCH_TURN"
	TypePauseResume = "PAUSE_RESUME"
	TypeRestart     = "RESTART"
	TypeGetState    = "GET_STATE"
	TypeListPresets = "LIST_PRESETS"
	TypeCloseClock  = "CLOSE_CLOCK"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CreateClockPayload creates a clock either from a named preset or from
// explicit values in milliseconds
type CreateClockPayload struct {
	Preset string    `json:"preset,omitempty"`
	Method string    `json:"method,omitempty"`
	Time   [2]int64  `json:"time"`
	Delay  [2]*int64 `json:"delay"`
}

// ConfigurePayload replaces the initial values of a clock that has not
// started yet
type ConfigurePayload struct {
	GameID string    `json:"game_id"`
	Time   [2]int64  `json:"time"`
	Delay  [2]*int64 `json:"delay"`
}

// SwitchTurnPayload is sent when a player presses their clock button. Move
// optionally carries the move just played, in algebraic notation.
type SwitchTurnPayload struct {
	GameID string `json:"game_id"`
	Player string `json:"player"`
	Move   string `json:"move,omitempty"`
}

// GamePayload addresses a single clock
type GamePayload struct {
	GameID string `json:"game_id"`
}
