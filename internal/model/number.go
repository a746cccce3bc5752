package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient numeric field. The backend shells out for several
// readings and sends them as numbers, numeric strings, or placeholders such
// as "N/A". Anything that does not parse decodes to NaN (missing).
type Number float64

// Missing returns a Number that represents an unavailable reading.
func Missing() Number { return Number(math.NaN()) }

// Float returns the value as float64 (NaN when missing).
func (n Number) Float() float64 { return float64(n) }

// Valid reports whether the value is finite.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Ptr returns a pointer to the value, or nil when it is not finite.
// Series buffers use nil to mean "no sample this tick".
func (n Number) Ptr() *float64 {
	if !n.Valid() {
		return nil
	}
	f := float64(n)
	return &f
}

// UnmarshalJSON accepts numbers, numeric strings, null and placeholders.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Missing()
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Missing()
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}
	if b[0] == 't' || b[0] == 'f' {
		*n = Missing()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*n = Missing()
		return nil
	}
	*n = Number(f)
	return nil
}

// MarshalJSON writes missing values as null; encoding/json rejects NaN.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

// ParseNumber parses a backend reading string. Empty strings and
// placeholders ("N/A", "--", ".") are missing.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing()
	}
	return Number(f)
}
