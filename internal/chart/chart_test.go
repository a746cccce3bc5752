package chart_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/derickschaefer/pocketdash/internal/chart"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/series"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// samples labels values "0s", "5s", "10s", ...
func samples(values ...float64) []chart.Sample {
	out := make([]chart.Sample, len(values))
	for i, v := range values {
		out[i] = chart.Sample{Label: fmt.Sprintf("%ds", i*5), Value: v}
	}
	return out
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func init() {
	color.NoColor = true
}

// ─── Samples ──────────────────────────────────────────────────────────────────

func TestSamplesZipShortest(t *testing.T) {
	got := chart.Samples([]string{"a", "b", "c"}, []float64{1, 2})
	if len(got) != 2 || got[1].Label != "b" || got[1].Value != 2 {
		t.Errorf("Samples: %+v", got)
	}
}

// ─── Bar tests ────────────────────────────────────────────────────────────────

func TestBarBasic(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "CPU", samples(3.5, 5.4, 3.7, 4.0), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bar returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "CPU  0s – 15s") {
		t.Errorf("missing header:\n%s", out)
	}
	lines := nonEmptyLines(out)
	if len(lines) != 5 {
		t.Errorf("expected 5 lines (1 header + 4 bars), got %d:\n%s", len(lines), out)
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "█") {
			t.Errorf("bar line missing block character: %q", line)
		}
	}
}

func TestBarAllNaN(t *testing.T) {
	var buf strings.Builder
	err := chart.Bar(&buf, "T", samples(math.NaN(), math.NaN()), chart.BarOptions{Width: 60})
	if err == nil || !strings.Contains(err.Error(), "no non-NaN") {
		t.Fatalf("expected no-data error, got %v", err)
	}
}

func TestBarNaNSkipped(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "T", samples(3.5, math.NaN(), 4.2), chart.BarOptions{Width: 60}); err != nil {
		t.Fatalf("Bar: %v", err)
	}
	if n := len(nonEmptyLines(buf.String())); n != 3 {
		t.Errorf("expected 3 lines, got %d:\n%s", n, buf.String())
	}
}

func TestBarMaxBarsKeepsNewest(t *testing.T) {
	var buf strings.Builder
	chart.Bar(&buf, "T", samples(1, 2, 3, 4, 5, 6), chart.BarOptions{Width: 60, MaxBars: 2})
	lines := nonEmptyLines(buf.String())
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "20s") || !strings.HasPrefix(lines[2], "25s") {
		t.Errorf("MaxBars should keep the newest samples:\n%s", buf.String())
	}
}

func TestBarFixedScale(t *testing.T) {
	var half, full strings.Builder
	chart.Bar(&half, "T", samples(50), chart.BarOptions{Width: 40, Max: 100})
	chart.Bar(&full, "T", samples(50), chart.BarOptions{Width: 40})
	if strings.Count(half.String(), "█") >= strings.Count(full.String(), "█") {
		t.Error("Max=100 should draw 50 shorter than an auto-scaled 50")
	}
}

func TestBarNegativeValues(t *testing.T) {
	var buf strings.Builder
	if err := chart.Bar(&buf, "T", samples(2.9, -3.4, 5.7), chart.BarOptions{Width: 80}); err != nil {
		t.Fatalf("Bar: %v", err)
	}
	if !strings.Contains(buf.String(), "│") {
		t.Error("bidirectional bar missing zero-line")
	}
}

func TestBarDensityWarning(t *testing.T) {
	values := make([]float64, 65)
	for i := range values {
		values[i] = float64(i) + 1
	}
	var buf strings.Builder
	chart.Bar(&buf, "T", samples(values...), chart.BarOptions{Width: 80})
	if !strings.Contains(buf.String(), "⚠") {
		t.Error("expected density warning for 65 samples")
	}
}

// ─── Plot tests ───────────────────────────────────────────────────────────────

func TestPlotBasic(t *testing.T) {
	var buf strings.Builder
	err := chart.Plot(&buf, "CPU", samples(10, 20, 80, 60, 40, 30, 25, 50), chart.PlotOptions{Width: 60, Height: 6, Unit: "%"})
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "CPU (%)  now 50.0  min 10.0  max 80.0") {
		t.Errorf("header:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// header + 6 rows + axis + labels
	if len(lines) != 9 {
		t.Errorf("expected 9 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "└") || !strings.Contains(lines[len(lines)-1], "35s") {
		t.Errorf("axis or end label missing:\n%s", out)
	}
}

func TestPlotNeedsTwoValues(t *testing.T) {
	var buf strings.Builder
	if err := chart.Plot(&buf, "T", samples(1, math.NaN()), chart.PlotOptions{Width: 40}); err == nil {
		t.Error("expected error with a single valid sample")
	}
}

func TestPlotGapsRenderAsBlank(t *testing.T) {
	var buf strings.Builder
	vals := []float64{1, 2, math.NaN(), math.NaN(), 5, 6}
	if err := chart.Plot(&buf, "T", samples(vals...), chart.PlotOptions{Width: 40, Height: 4}); err != nil {
		t.Fatalf("Plot: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	for _, row := range lines[1:5] {
		body := []rune(row)
		// one column per sample; columns 2 and 3 are gaps
		if len(body) >= 4 && (body[len(body)-4] != ' ' || body[len(body)-3] != ' ') {
			t.Errorf("gap columns should be blank: %q", row)
		}
	}
}

func TestPlotFlatSeries(t *testing.T) {
	var buf strings.Builder
	if err := chart.Plot(&buf, "T", samples(5, 5, 5, 5), chart.PlotOptions{Width: 40, Height: 4}); err != nil {
		t.Fatalf("flat series: %v", err)
	}
}

// ─── Gauge ────────────────────────────────────────────────────────────────────

func TestGauge(t *testing.T) {
	tests := []struct {
		pct    float64
		filled int
		text   string
	}{
		{50, 5, "50.0%"},
		{0.5, 1, "0.5%"}, // minimum sliver
		{0, 0, "0.0%"},
		{120, 10, "120.0%"},
		{math.NaN(), 0, "--"},
	}
	for _, tt := range tests {
		var buf strings.Builder
		chart.Gauge(&buf, "Disk", tt.pct, 10)
		out := buf.String()
		if got := strings.Count(out, "█"); got != tt.filled {
			t.Errorf("Gauge(%v): filled %d, want %d (%q)", tt.pct, got, tt.filled, out)
		}
		if !strings.HasSuffix(strings.TrimSpace(out), tt.text) {
			t.Errorf("Gauge(%v): text %q", tt.pct, out)
		}
	}
}

// ─── Strip ────────────────────────────────────────────────────────────────────

func TestStrip(t *testing.T) {
	points := series.Timeline([]model.BatteryHistoryEntry{
		{Timestamp: "2026-03-01 10:00:00", Capacity: 100, Status: "Discharging"},
		{Timestamp: "2026-03-01 10:05:00", Capacity: model.Missing(), Status: "Discharging"},
		{Timestamp: "2026-03-01 10:10:00", Capacity: 10, Status: "Discharging"},
		{Timestamp: "2026-03-01 10:15:00", Capacity: 15, Status: "Charging"},
	})
	var buf strings.Builder
	if err := chart.Strip(&buf, points, 80); err != nil {
		t.Fatalf("Strip: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if got := []rune(lines[0]); len(got) != 4 || got[0] != '█' || got[1] != ' ' {
		t.Errorf("strip row: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Mar 1 10:00") || !strings.HasSuffix(lines[1], "10:15") {
		t.Errorf("strip labels: %q", lines[1])
	}
}

func TestStripEmpty(t *testing.T) {
	var buf strings.Builder
	if err := chart.Strip(&buf, nil, 80); err == nil {
		t.Error("expected error for empty history")
	}
}

func TestFromTimelineKeepsGaps(t *testing.T) {
	points := series.Timeline([]model.BatteryHistoryEntry{
		{Timestamp: "2026-03-01 10:00:00", Capacity: 90, Status: "Discharging"},
		{Timestamp: "2026-03-01 10:05:00", Capacity: model.Missing(), Status: "Discharging"},
	})
	got := chart.FromTimeline(points)
	if len(got) != 2 || got[0].Value != 90 || !math.IsNaN(got[1].Value) || got[1].Label != "10:05" {
		t.Errorf("FromTimeline: %+v", got)
	}
}
