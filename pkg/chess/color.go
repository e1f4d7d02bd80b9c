package chess

import (
	"fmt"
	"strings"
)

// Color identifies a player by the side they play
type Color string

// Possible color variations in a chess game
const (
	White Color = "w"
	Black Color = "b"

	// NoColor is used where no player is on move
	NoColor Color = ""
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == White {
		return Black
	}

	return White
}

// Index returns the budget index of the color, 0 for white and 1 for black
func (c Color) Index() int {
	if c == Black {
		return 1
	}

	return 0
}

// Valid reports whether c is White or Black
func (c Color) Valid() bool {
	return c == White || c == Black
}

// String returns the long name of the color
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}

	return "none"
}

// ColorAt returns the color owning budget index i
func ColorAt(i int) Color {
	if i == 1 {
		return Black
	}

	return White
}

// ParseColor accepts "w", "white", "b" and "black" in any case
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return White, nil
	case "b", "black":
		return Black, nil
	}

	return NoColor, fmt.Errorf("unknown color %q: %w", s, ErrInvalidArgument)
}
