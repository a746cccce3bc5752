// Package util provides shared utilities: day-date parsing, placeholder
// formatting and error aggregation.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Placeholder is rendered wherever a reading is unavailable. It is never
// replaced by "0" or "NaN" so missing data stays visible.
const Placeholder = "--"

// ─── Date Parsing ─────────────────────────────────────────────────────────────

const dmyLayout = "02/01/2006"

// ParseDMY parses a DD/MM/YYYY string into a calendar day (UTC midnight).
// Single-digit day and month components are accepted.
func ParseDMY(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DD/MM/YYYY", s)
	}
	d, errD := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	y, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q: expected DD/MM/YYYY", s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDMY formats a day as DD/MM/YYYY. The zero time formats as "".
func FormatDMY(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dmyLayout)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ─── Value Formatting ─────────────────────────────────────────────────────────

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatFixed formats v with the given decimals followed by suffix,
// or the placeholder followed by suffix when v is not finite.
func FormatFixed(v float64, decimals int, suffix string) string {
	if !Finite(v) {
		return Placeholder + suffix
	}
	return strconv.FormatFloat(v, 'f', decimals, 64) + suffix
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is / errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// ─── Timestamps ───────────────────────────────────────────────────────────────

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp formats the backend emits
// (ISO-8601 with or without zone, or "YYYY-MM-DD HH:MM:SS" local time).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
