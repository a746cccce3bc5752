package terminal

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrInterrupt is returned by ReadLine on Ctrl-C.
var ErrInterrupt = errors.New("interrupt")

// Control keys recognised by the editor.
const (
	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyCtrlL     = 0x0c
	keyCtrlU     = 0x15
	keyBackspace = 0x7f
	keyCtrlH     = 0x08
	keyEscape    = 0x1b
)

// Editor is a minimal line editor for a terminal in raw mode. It supports
// printable input, backspace, Ctrl-U, history navigation with the arrow
// keys, Ctrl-L (returned as the clear command) and Ctrl-D on an empty line.
type Editor struct {
	in   *bufio.Reader
	out  io.Writer
	hist *History
}

// NewEditor reads keys from in, echoes to out and navigates hist.
func NewEditor(in io.Reader, out io.Writer, hist *History) *Editor {
	return &Editor{in: bufio.NewReader(in), out: out, hist: hist}
}

// ReadLine reads one line after writing prompt. It returns io.EOF on
// Ctrl-D with an empty line and ErrInterrupt on Ctrl-C.
func (e *Editor) ReadLine(prompt string) (string, error) {
	var line []rune
	e.redraw(prompt, line)
	for {
		r, _, err := e.in.ReadRune()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				e.write("\r\n")
				return string(line), nil
			}
			return "", err
		}
		switch r {
		case '\r', '\n':
			e.write("\r\n")
			return string(line), nil
		case keyCtrlC:
			e.write("^C\r\n")
			return "", ErrInterrupt
		case keyCtrlD:
			if len(line) == 0 {
				e.write("\r\n")
				return "", io.EOF
			}
		case keyCtrlL:
			e.write("\r\n")
			return ClearCommand, nil
		case keyCtrlU:
			line = line[:0]
			e.redraw(prompt, line)
		case keyBackspace, keyCtrlH:
			if len(line) > 0 {
				line = line[:len(line)-1]
				e.redraw(prompt, line)
			}
		case keyEscape:
			if next, ok := e.arrow(string(line)); ok {
				line = []rune(next)
				e.redraw(prompt, line)
			}
		default:
			if r >= 0x20 && r != utf8.RuneError {
				line = append(line, r)
				e.write(string(r))
			}
		}
	}
}

// arrow consumes the rest of an escape sequence and applies up/down to the
// history. Other sequences are swallowed.
func (e *Editor) arrow(current string) (string, bool) {
	b1, err := e.in.ReadByte()
	if err != nil || (b1 != '[' && b1 != 'O') {
		return "", false
	}
	b2, err := e.in.ReadByte()
	if err != nil || e.hist == nil {
		return "", false
	}
	switch b2 {
	case 'A':
		return e.hist.Prev(current)
	case 'B':
		return e.hist.Next()
	}
	return "", false
}

func (e *Editor) redraw(prompt string, line []rune) {
	e.write("\r\x1b[K" + prompt + " " + string(line))
}

func (e *Editor) write(s string) {
	io.WriteString(e.out, s)
}
