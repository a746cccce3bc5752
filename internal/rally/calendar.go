package rally

import (
	"time"

	"github.com/derickschaefer/pocketdash/internal/util"
)

// Calendar is the date-range picker. Clicks edit the pending selection;
// only Apply moves it into the applied window that filters routes.
type Calendar struct {
	Year  int
	Month time.Month

	pendingStart time.Time
	pendingEnd   time.Time
	appliedStart time.Time
	appliedEnd   time.Time
}

// NewCalendar creates a calendar viewing the month of now.
func NewCalendar(now time.Time) *Calendar {
	return &Calendar{Year: now.Year(), Month: now.Month()}
}

// ShiftMonth moves the viewed month by delta, wrapping years.
func (c *Calendar) ShiftMonth(delta int) {
	m := int(c.Month) - 1 + delta
	c.Year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		c.Year--
	}
	c.Month = time.Month(m + 1)
}

// Click handles a day click. The first click (or any click after a complete
// range) starts a new range; the second completes it, swapping the ends if
// the day precedes the start.
func (c *Calendar) Click(day time.Time) {
	day = util.Day(day)
	switch {
	case c.pendingStart.IsZero() || !c.pendingEnd.IsZero():
		c.pendingStart, c.pendingEnd = day, time.Time{}
	case day.Before(c.pendingStart):
		c.pendingStart, c.pendingEnd = day, c.pendingStart
	default:
		c.pendingEnd = day
	}
}

// Apply copies the pending selection into the applied window.
func (c *Calendar) Apply() {
	c.appliedStart, c.appliedEnd = c.pendingStart, c.pendingEnd
}

// Clear resets the pending selection only.
func (c *Calendar) Clear() {
	c.pendingStart, c.pendingEnd = time.Time{}, time.Time{}
}

// Reset clears both the pending and the applied selection.
func (c *Calendar) Reset() {
	c.Clear()
	c.appliedStart, c.appliedEnd = time.Time{}, time.Time{}
}

// Pending returns the pending selection (zero for unset ends).
func (c *Calendar) Pending() (start, end time.Time) { return c.pendingStart, c.pendingEnd }

// Applied returns the applied window (zero for unset ends).
func (c *Calendar) Applied() (start, end time.Time) { return c.appliedStart, c.appliedEnd }

// Label describes the applied window.
func (c *Calendar) Label() string {
	switch {
	case !c.appliedStart.IsZero() && !c.appliedEnd.IsZero():
		return util.FormatDMY(c.appliedStart) + " → " + util.FormatDMY(c.appliedEnd)
	case !c.appliedStart.IsZero():
		return "From " + util.FormatDMY(c.appliedStart)
	}
	return "Any date"
}

// SelectionText describes the pending selection.
func (c *Calendar) SelectionText() string {
	switch {
	case !c.pendingStart.IsZero() && !c.pendingEnd.IsZero():
		return util.FormatDMY(c.pendingStart) + " → " + util.FormatDMY(c.pendingEnd)
	case !c.pendingStart.IsZero():
		return util.FormatDMY(c.pendingStart) + " → pick end"
	}
	return ""
}

// Cell is one day slot in the month grid. Blank cells pad the first week.
type Cell struct {
	Blank   bool
	Date    time.Time
	Day     int
	Past    bool
	Start   bool
	End     bool
	InRange bool
}

// Grid lays out the viewed month in Monday-first weeks of seven cells.
// today marks past days.
func (c *Calendar) Grid(today time.Time) [][]Cell {
	today = util.Day(today)
	first := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	days := first.AddDate(0, 1, -1).Day()

	cells := make([]Cell, 0, offset+days)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	s, e := c.pendingStart, c.pendingEnd
	for d := 1; d <= days; d++ {
		date := time.Date(c.Year, c.Month, d, 0, 0, 0, 0, time.UTC)
		cell := Cell{Date: date, Day: d, Past: date.Before(today)}
		if !s.IsZero() && date.Equal(s) {
			cell.Start = true
			if e.IsZero() {
				cell.End = true
			}
		}
		if !e.IsZero() && date.Equal(e) {
			cell.End = true
		}
		if !s.IsZero() && !e.IsZero() && date.After(s) && date.Before(e) {
			cell.InRange = true
		}
		cells = append(cells, cell)
	}

	var weeks [][]Cell
	for len(cells) > 0 {
		n := 7
		if len(cells) < n {
			n = len(cells)
		}
		weeks = append(weeks, cells[:n])
		cells = cells[n:]
	}
	return weeks
}
