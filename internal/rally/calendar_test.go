package rally_test

import (
	"testing"
	"time"

	"github.com/derickschaefer/pocketdash/internal/rally"
)

func TestCalendarClickSequence(t *testing.T) {
	c := rally.NewCalendar(day("01/06/2026"))
	c.Click(day("15/06/2026"))
	if got := c.SelectionText(); got != "15/06/2026 → pick end" {
		t.Errorf("after first click: %q", got)
	}
	c.Click(day("10/06/2026"))
	s, e := c.Pending()
	if !s.Equal(day("10/06/2026")) || !e.Equal(day("15/06/2026")) {
		t.Errorf("earlier second click should swap: %v → %v", s, e)
	}
	c.Click(day("20/06/2026"))
	s, e = c.Pending()
	if !s.Equal(day("20/06/2026")) || !e.IsZero() {
		t.Errorf("third click should restart: %v → %v", s, e)
	}
}

func TestCalendarApplyClearReset(t *testing.T) {
	c := rally.NewCalendar(day("01/06/2026"))
	if c.Label() != "Any date" {
		t.Errorf("initial label: %q", c.Label())
	}
	c.Click(day("10/06/2026"))
	if c.Label() != "Any date" {
		t.Error("pending clicks must not change the applied label")
	}
	c.Apply()
	if c.Label() != "From 10/06/2026" {
		t.Errorf("open-ended label: %q", c.Label())
	}
	c.Click(day("12/06/2026"))
	c.Apply()
	if c.Label() != "10/06/2026 → 12/06/2026" {
		t.Errorf("range label: %q", c.Label())
	}

	c.Clear()
	if s, _ := c.Pending(); !s.IsZero() {
		t.Error("Clear should reset pending")
	}
	if s, _ := c.Applied(); s.IsZero() {
		t.Error("Clear must not touch the applied window")
	}
	c.Reset()
	if c.Label() != "Any date" {
		t.Errorf("after Reset: %q", c.Label())
	}
}

func TestCalendarShiftMonthWraps(t *testing.T) {
	c := rally.NewCalendar(day("15/12/2026"))
	c.ShiftMonth(1)
	if c.Year != 2027 || c.Month != time.January {
		t.Errorf("forward wrap: %d-%v", c.Year, c.Month)
	}
	c.ShiftMonth(-2)
	if c.Year != 2026 || c.Month != time.November {
		t.Errorf("backward wrap: %d-%v", c.Year, c.Month)
	}
	c.ShiftMonth(-11)
	if c.Year != 2025 || c.Month != time.December {
		t.Errorf("long backward wrap: %d-%v", c.Year, c.Month)
	}
}

func TestCalendarGridMondayFirst(t *testing.T) {
	// June 2026 starts on a Monday; March 2026 on a Sunday.
	c := rally.NewCalendar(day("01/06/2026"))
	weeks := c.Grid(day("03/06/2026"))
	if weeks[0][0].Blank || weeks[0][0].Day != 1 {
		t.Errorf("June should start in the first cell, got %+v", weeks[0][0])
	}
	if !weeks[0][0].Past || weeks[0][2].Past {
		t.Error("days before today should be past, today should not")
	}

	c = rally.NewCalendar(day("01/03/2026"))
	weeks = c.Grid(day("01/01/2026"))
	for i := 0; i < 6; i++ {
		if !weeks[0][i].Blank {
			t.Fatalf("cell %d should be blank", i)
		}
	}
	if weeks[0][6].Day != 1 {
		t.Errorf("Sunday 1st should be the seventh cell, got %+v", weeks[0][6])
	}
}

func TestCalendarGridHighlightsRange(t *testing.T) {
	c := rally.NewCalendar(day("01/06/2026"))
	c.Click(day("02/06/2026"))
	c.Click(day("04/06/2026"))
	w := c.Grid(day("01/01/2026"))[0]
	if !w[1].Start || !w[2].InRange || !w[3].End || w[4].InRange {
		t.Errorf("range highlight: %+v", w[:5])
	}
}
