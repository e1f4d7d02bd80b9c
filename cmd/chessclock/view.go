package main

import (
	"fmt"
	"strings"

	"github.com/tecu23/chess-clock/internal/locale"
	"github.com/tecu23/chess-clock/pkg/chess"
)

// render draws one status line for the snapshot
func render(s chess.Snapshot, tr *locale.Translator) string {
	var b strings.Builder

	for i, c := range []chess.Color{chess.White, chess.Black} {
		if i > 0 {
			b.WriteString("  |  ")
		}

		marker := " "
		if s.Turn == c {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s %s", marker, name(c, tr), chess.FormatClockTime(s.TimeOf(c)))

		if d := chess.FormatDelay(s.DelayOf(c)); d != "" && s.Method.UsesDelay() {
			fmt.Fprintf(&b, " (%s %s)", tr.Msg(locale.KeyDelay), d)
		}
	}

	b.WriteString("  ")
	switch s.State {
	case chess.StateNew:
		b.WriteString(tr.Msg(locale.KeyReady))
	case chess.StateActive:
		b.WriteString(tr.Msg(locale.KeyRunning))
	case chess.StatePaused:
		b.WriteString(tr.Msg(locale.KeyPaused))
	case chess.StateFinished:
		b.WriteString(tr.Msgf(locale.KeyFlagFell, map[string]interface{}{
			"Player": name(s.Flagged(), tr),
		}))
	}

	return b.String()
}

func name(c chess.Color, tr *locale.Translator) string {
	switch c {
	case chess.White:
		return tr.Msg(locale.KeyWhite)
	case chess.Black:
		return tr.Msg(locale.KeyBlack)
	}

	return ""
}
