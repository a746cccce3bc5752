package view

import (
	"math"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/util"
)

// Due-date classes.
const (
	DueOverdue = "overdue"
	DueSoon    = "soon"
)

const dueDisplayLayout = "Jan 2, 2006"

// parseDue accepts a YYYY-MM-DD date (UTC midnight, as date inputs submit
// it) or any timestamp the backend emits.
func parseDue(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := util.ParseTimestamp(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func daysUntil(due, now time.Time) float64 {
	return due.Sub(now).Hours() / 24
}

// DueClass classifies a due date: overdue when it has passed, soon when it
// is less than two days away, otherwise "". Empty or invalid dates have no
// class.
func DueClass(due string, now time.Time) string {
	t, ok := parseDue(due)
	if !ok {
		return ""
	}
	switch d := daysUntil(t, now); {
	case d < 0:
		return DueOverdue
	case d < 2:
		return DueSoon
	}
	return ""
}

// DueText renders the due-date badge.
func DueText(due string, now time.Time) string {
	t, ok := parseDue(due)
	if !ok {
		return ""
	}
	switch d := math.Floor(daysUntil(t, now)); {
	case d < 0:
		return "Overdue (" + t.Format(dueDisplayLayout) + ")"
	case d == 0:
		return "Due today"
	case d == 1:
		return "Due tomorrow"
	}
	return "Due " + t.Format(dueDisplayLayout)
}
