package series_test

import (
	"math"
	"testing"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/series"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// fixedClock returns a clock pinned to 14:03:07 local time.
func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 14, 3, 7, 0, time.Local)
	return func() time.Time { return t }
}

func f(v float64) *float64 { return &v }

// tick pushes one label and one value per series, as the poll loop does.
func tick(b *series.Buffer, cpu, mem float64) {
	b.PushLabel()
	b.PushFloat("cpu", cpu)
	b.PushFloat("mem", mem)
}

// ─── Capacity / FIFO ──────────────────────────────────────────────────────────

func TestBufferNeverExceedsCapacity(t *testing.T) {
	b := series.New(5, 0, fixedClock())
	for i := 0; i < 23; i++ {
		tick(b, float64(i), float64(i*2))
		if b.Len() > 5 {
			t.Fatalf("tick %d: label length %d exceeds capacity", i, b.Len())
		}
		if n := len(b.Values("cpu")); n > 5 {
			t.Fatalf("tick %d: cpu length %d exceeds capacity", i, n)
		}
	}
}

func TestBufferEvictsOldestFirst(t *testing.T) {
	b := series.New(3, 0, fixedClock())
	for i := 1; i <= 5; i++ {
		tick(b, float64(i), 0)
	}
	got := b.Floats("cpu")
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cpu after eviction: got %v, want %v", got, want)
		}
	}
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := series.New(0, 0, fixedClock())
	if b.Capacity() != series.DefaultCapacity {
		t.Errorf("Capacity: expected %d, got %d", series.DefaultCapacity, b.Capacity())
	}
	for i := 0; i < 100; i++ {
		tick(b, 1, 1)
	}
	if b.Len() != 60 {
		t.Errorf("Len: expected 60, got %d", b.Len())
	}
}

// ─── Labels ───────────────────────────────────────────────────────────────────

func TestFirstLabelIsAbsoluteThenRelative(t *testing.T) {
	b := series.New(10, 5*time.Second, fixedClock())
	first := b.PushLabel()
	if first != "14:03:07" {
		t.Errorf("first label: expected 14:03:07, got %q", first)
	}
	if got := b.PushLabel(); got != "5s" {
		t.Errorf("second label: expected 5s, got %q", got)
	}
	if got := b.PushLabel(); got != "10s" {
		t.Errorf("third label: expected 10s, got %q", got)
	}
}

func TestLabelCounterSurvivesEviction(t *testing.T) {
	b := series.New(3, 5*time.Second, fixedClock())
	for i := 0; i < 10; i++ {
		b.PushLabel()
	}
	labels := b.Labels()
	want := []string{"35s", "40s", "45s"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels after eviction: got %v, want %v", labels, want)
		}
	}
	if b.Elapsed() != 45 {
		t.Errorf("Elapsed: expected 45, got %d", b.Elapsed())
	}
}

func TestLabelCounterMonotonic(t *testing.T) {
	b := series.New(4, 5*time.Second, fixedClock())
	b.PushLabel()
	prev := b.Elapsed()
	for i := 0; i < 50; i++ {
		b.PushLabel()
		if b.Elapsed() <= prev {
			t.Fatalf("counter went from %d to %d", prev, b.Elapsed())
		}
		prev = b.Elapsed()
	}
}

// ─── Missing values ───────────────────────────────────────────────────────────

func TestNilValuesArePreserved(t *testing.T) {
	b := series.New(5, 0, fixedClock())
	b.PushLabel()
	b.Push("temp", f(40))
	b.PushLabel()
	b.Push("temp", nil)
	b.PushLabel()
	b.PushFloat("temp", math.NaN())

	vals := b.Values("temp")
	if len(vals) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(vals))
	}
	if vals[1] != nil || vals[2] != nil {
		t.Errorf("missing samples should stay nil, got %v %v", vals[1], vals[2])
	}
	floats := b.Floats("temp")
	if !math.IsNaN(floats[1]) {
		t.Errorf("Floats should expose nil as NaN, got %v", floats[1])
	}
}

func TestValuesReturnsCopy(t *testing.T) {
	b := series.New(5, 0, fixedClock())
	b.PushLabel()
	b.Push("cpu", f(10))
	vals := b.Values("cpu")
	*vals[0] = 99
	if got := b.Floats("cpu")[0]; got != 10 {
		t.Errorf("mutating Values result changed buffer: got %v", got)
	}
}

func TestPointsAlignToNewestLabels(t *testing.T) {
	b := series.New(5, 0, fixedClock())
	b.PushLabel()
	b.PushLabel()
	b.Push("rx", f(1.5))
	pts := b.Points("rx")
	if len(pts) != 1 || pts[0].Label != "5s" {
		t.Fatalf("expected single point on newest label, got %+v", pts)
	}
}

// ─── Replay ───────────────────────────────────────────────────────────────────

func TestReplayClearsAndRelabels(t *testing.T) {
	b := series.New(10, 5*time.Second, fixedClock())
	tick(b, 1, 1)
	tick(b, 2, 2)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	stamps := []time.Time{base, base.Add(5 * time.Second), base.Add(10 * time.Second)}
	b.Replay(stamps, []string{"cpu", "mem"}, map[string][]*float64{
		"cpu": {f(10), f(20), f(30)},
		"mem": {f(50), nil},
	})

	labels := b.Labels()
	want := []string{"09:00:00", "5s", "10s"}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels: got %v, want %v", labels, want)
		}
	}
	mem := b.Values("mem")
	if len(mem) != 3 || mem[2] != nil {
		t.Errorf("short series should be padded with nil, got %v", mem)
	}

	// Live pushes continue the replayed counter.
	if got := b.PushLabel(); got != "15s" {
		t.Errorf("label after replay: expected 15s, got %q", got)
	}
}

func TestReplayRespectsCapacity(t *testing.T) {
	b := series.New(2, 5*time.Second, fixedClock())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	stamps := []time.Time{base, base, base, base}
	b.Replay(stamps, []string{"cpu"}, map[string][]*float64{"cpu": {f(1), f(2), f(3), f(4)}})
	if b.Len() != 2 {
		t.Fatalf("Len after replay: expected 2, got %d", b.Len())
	}
	if got := b.Labels(); got[0] != "10s" || got[1] != "15s" {
		t.Errorf("labels: got %v", got)
	}
}

func TestReplayEmptyRestartsSession(t *testing.T) {
	b := series.New(5, 5*time.Second, fixedClock())
	tick(b, 1, 1)
	tick(b, 1, 1)
	b.Replay(nil, nil, nil)
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d labels", b.Len())
	}
	if got := b.PushLabel(); got != "14:03:07" {
		t.Errorf("first label after empty replay should be absolute, got %q", got)
	}
}

// ─── Timeline ─────────────────────────────────────────────────────────────────

func TestTimelineLabelsAndSegments(t *testing.T) {
	entries := []model.BatteryHistoryEntry{
		{Timestamp: "2026-03-01T08:00:00", Capacity: 80, Status: "Charging"},
		{Timestamp: "2026-03-01T09:30:00", Capacity: 60, Status: "Discharging"},
		{Timestamp: "2026-03-01T10:00:00", Capacity: 15, Status: "Discharging"},
		{Timestamp: "garbage", Capacity: model.Missing(), Status: ""},
	}
	pts := series.Timeline(entries)
	if len(pts) != 4 {
		t.Fatalf("expected 4 points, got %d", len(pts))
	}
	if pts[0].Label != "Mar 1 08:00" {
		t.Errorf("first label: got %q", pts[0].Label)
	}
	if pts[1].Label != "09:30" {
		t.Errorf("second label: got %q", pts[1].Label)
	}
	if pts[3].Label != "garbage" || pts[3].Value != nil {
		t.Errorf("bad entry: got %+v", pts[3])
	}

	wantSeg := []series.Segment{series.SegmentCharging, series.SegmentDischarging, series.SegmentLow, series.SegmentDischarging}
	for i, w := range wantSeg {
		if pts[i].Segment != w {
			t.Errorf("point %d segment: expected %d, got %d", i, w, pts[i].Segment)
		}
	}
}
