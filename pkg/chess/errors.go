package chess

import (
	"errors"

	"github.com/tecu23/chess-clock/pkg/timecontrol"
)

// Errors reported by the Clock. Both point at a sequencing bug on the
// caller's side, retrying will not help.
var (
	ErrInvalidState    = errors.New("invalid clock state")
	ErrInvalidArgument = timecontrol.ErrInvalidArgument
)
