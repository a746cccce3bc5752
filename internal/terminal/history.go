package terminal

import "strings"

// DefaultHistorySize is the number of commands kept.
const DefaultHistorySize = 200

// History is the command history with shell-style navigation. While
// navigating, the line being typed before navigation began is held aside
// and restored when the user steps past the newest entry.
type History struct {
	max     int
	entries []string
	idx     int // -1 when not navigating
	pending string
}

// NewHistory creates a history holding at most max entries (default 200).
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max, idx: -1}
}

// Add records a submitted command and ends navigation. Blank commands and
// repeats of the newest entry are not stored.
func (h *History) Add(cmd string) {
	h.idx, h.pending = -1, ""
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Prev steps to the previous entry. current is the line being edited; it is
// saved when navigation starts. ok is false when there is no history.
func (h *History) Prev(current string) (line string, ok bool) {
	if len(h.entries) == 0 {
		return current, false
	}
	switch {
	case h.idx == -1:
		h.pending = current
		h.idx = len(h.entries) - 1
	case h.idx > 0:
		h.idx--
	}
	return h.entries[h.idx], true
}

// Next steps to the following entry, or back to the saved line after the
// newest one. ok is false when not navigating.
func (h *History) Next() (line string, ok bool) {
	if h.idx == -1 {
		return "", false
	}
	h.idx++
	if h.idx >= len(h.entries) {
		h.idx = -1
		return h.pending, true
	}
	return h.entries[h.idx], true
}

// Navigating reports whether a Prev is in effect.
func (h *History) Navigating() bool { return h.idx != -1 }

// Entries returns a copy of the stored commands, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
