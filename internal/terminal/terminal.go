// Package terminal is a small wrapper around "github.com/pkg/term/termios"
// for reading single key presses and redrawing a status line
package terminal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// ANSI sequences used when redrawing
const (
	ClearLine  = "\r\033[K"
	HideCursor = "\033[?25l"
	ShowCursor = "\033[?25h"
)

// ErrNotTerminal is returned when the input is not a terminal
var ErrNotTerminal = errors.New("input is not a terminal")

// Terminal switches a posix terminal between canonical and cbreak mode
type Terminal struct {
	input  *os.File
	output *os.File

	canAttr    unix.Termios
	cbreakAttr unix.Termios

	mu sync.Mutex // serializes writes to output
}

// New prepares the terminal attributes for the given files. The terminal is
// left in canonical mode.
func New(input, output *os.File) (*Terminal, error) {
	if input == nil || output == nil {
		return nil, fmt.Errorf("terminal requires an input and an output file")
	}

	t := &Terminal{
		input:  input,
		output: output,
	}

	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTerminal, err)
	}

	t.cbreakAttr = t.canAttr
	termios.Cfmakecbreak(&t.cbreakAttr)

	return t, nil
}

// CBreakMode delivers key presses as they happen, without echo
func (t *Terminal) CBreakMode() error {
	return termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.cbreakAttr)
}

// CanonicalMode puts the terminal back into normal, line based mode
func (t *Terminal) CanonicalMode() error {
	return termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr)
}

// ReadKey blocks until a key is pressed
func (t *Terminal) ReadKey() (byte, error) {
	var buf [1]byte
	for {
		n, err := t.input.Read(buf[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return buf[0], nil
		}
	}
}

// Print writes the formatted string to the output file
func (t *Terminal) Print(s string, a ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.output, s, a...)
}

// Redraw replaces the current line with the formatted string
func (t *Terminal) Redraw(s string, a ...interface{}) {
	t.Print(ClearLine+s, a...)
}
