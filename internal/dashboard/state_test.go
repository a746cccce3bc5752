package dashboard_test

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/derickschaefer/pocketdash/internal/api"
	"github.com/derickschaefer/pocketdash/internal/dashboard"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/poll"
	"github.com/derickschaefer/pocketdash/internal/series"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

const (
	statusJSON = `{
  "battery": {"capacity": 76, "status": "Discharging"},
  "system": {"hostname": "phone", "cpu_usage": 12.5, "temperature": "N/A",
             "memory": {"percent": 40, "used": 1.5, "total": 3.7},
             "disk": {"percent": 61.4, "used": 30, "total": 50}},
  "network": {"ip_address": "10.0.0.2", "interfaces": {"wlan0": {"bytes_recv": 2048, "bytes_sent": 1024}}},
  "services": {"ssh": "active"},
  "brightness": {"current": 120, "max": 255, "percentage": 47},
  "timestamp": "2026-03-10 12:00:00"
}`
	quickJSON   = `{"battery": {"capacity": 76, "status": "Charging"}, "cpu": 96, "memory": 40, "temperature": 30, "timestamp": "2026-03-10 12:00:00"}`
	historyJSON = `{"timestamps": ["2026-03-10T11:59:50Z", "2026-03-10T11:59:55Z", "2026-03-10T12:00:00Z"],
  "cpu": [10, null, 30], "memory": [40, 41, 42], "temperature": [30, 31, "N/A"],
  "network_rx": [1, 2, 3], "network_tx": [0, 0, 0]}`
	batteryJSON = `[{"timestamp": "2026-03-10 11:00:00", "capacity": 80, "status": "Discharging"},
  {"timestamp": "2026-03-10 11:05:00", "capacity": 79, "status": "Discharging"}]`
	tmuxJSON = `{"total": 1, "sessions": [{"name": "main", "attached": true, "windows": 2, "panes": 3, "uptime": "1h"}]}`
	iptvJSON = `{"success": true, "username": "me", "active_cons": 1, "max_connections": 2, "status": "Active", "exp_date": "2027-01-01"}`
	todosJSON = `[{"id": "b", "title": "second", "order": 1}, {"id": "a", "title": "first", "order": 0}]`
	routesJSON = `{"success": true, "routes": [{"origin": "Munich", "returns": [
  {"destination": "Lyon", "model_name": "Ford Nugget", "available_dates": [{"startDate": "10/06/2026", "endDate": "14/06/2026"}], "roadsurfer_url": "https://x"}]}]}`
)

type fakeBackend struct {
	mu         sync.Mutex
	hits       map[string]int
	fail       map[string]bool
	brightness []string
	todos      string // overrides todosJSON when set
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	failing := f.fail[r.URL.Path]
	if v, ok := strings.CutPrefix(r.URL.Path, "/api/brightness/set/"); ok {
		f.brightness = append(f.brightness, v)
	}
	todos := f.todos
	f.mu.Unlock()
	if todos == "" {
		todos = todosJSON
	}

	if failing {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/status":
		io.WriteString(w, statusJSON)
	case "/api/quick-stats":
		io.WriteString(w, quickJSON)
	case "/api/metrics/history":
		io.WriteString(w, historyJSON)
	case "/api/battery/history":
		io.WriteString(w, batteryJSON)
	case "/api/tmux":
		io.WriteString(w, tmuxJSON)
	case "/api/iptv":
		io.WriteString(w, iptvJSON)
	case "/api/todos":
		io.WriteString(w, todos)
	case "/api/rally-bot/routes":
		io.WriteString(w, routesJSON)
	default:
		io.WriteString(w, `{"success": true}`)
	}
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

type readings struct {
	values  map[string]float64
	updated time.Time
}

func (r *readings) SetReading(name string, v float64) { r.values[name] = v }
func (r *readings) MarkUpdated(at time.Time)          { r.updated = at }

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newState(t *testing.T) (*dashboard.State, *fakeBackend, *readings) {
	t.Helper()
	fb := &fakeBackend{hits: map[string]int{}, fail: map[string]bool{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	rec := &readings{values: map[string]float64{}}
	s := dashboard.New(api.NewClient(srv.URL, 5*time.Second, 100), dashboard.Options{
		BrightnessDebounce: 10 * time.Millisecond,
		Recorder:           rec,
		Now:                func() time.Time { return t0 },
	})
	t.Cleanup(s.Close)
	return s, fb, rec
}

// ─── Refreshers ───────────────────────────────────────────────────────────────

func TestRefreshQuick(t *testing.T) {
	s, _, rec := newState(t)
	if err := s.RefreshQuick(context.Background()); err != nil {
		t.Fatalf("RefreshQuick: %v", err)
	}
	if !s.Quick.OverallBad {
		t.Error("cpu=96 should mark the quick strip bad")
	}
	if s.Quick.Battery.Arrow != "↑" {
		t.Errorf("arrow: %q", s.Quick.Battery.Arrow)
	}
	if rec.values["cpu"] != 96 || rec.values["battery"] != 76 {
		t.Errorf("readings: %v", rec.values)
	}
}

func TestRefreshDisk(t *testing.T) {
	s, _, rec := newState(t)
	if err := s.RefreshDisk(context.Background()); err != nil {
		t.Fatalf("RefreshDisk: %v", err)
	}
	if s.QuickDisk != "61%" {
		t.Errorf("QuickDisk = %q, want 61%%", s.QuickDisk)
	}
	if rec.values["disk"] != 61.4 {
		t.Errorf("disk reading: %v", rec.values["disk"])
	}
}

func TestRefreshStatusPushesOneSamplePerSeries(t *testing.T) {
	s, _, rec := newState(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.RefreshStatus(ctx); err != nil {
			t.Fatalf("RefreshStatus: %v", err)
		}
	}
	if s.Status == nil || s.Status.Host != "phone" {
		t.Fatalf("status not mapped: %+v", s.Status)
	}
	if s.Series.Len() != 2 {
		t.Fatalf("labels: %d", s.Series.Len())
	}
	for _, id := range dashboard.SeriesIDs {
		if n := len(s.Series.Values(id)); n != 2 {
			t.Errorf("series %s has %d values, want 2", id, n)
		}
	}
	if v := s.Series.Values(dashboard.SeriesTemp)[0]; v != nil {
		t.Errorf("missing temperature should push nil, got %v", *v)
	}
	if got := s.Brightness.Value(); got != 47 {
		t.Errorf("brightness synced to %d, want 47", got)
	}
	if !rec.updated.Equal(t0) {
		t.Errorf("MarkUpdated not called: %v", rec.updated)
	}
}

func TestRefreshFailureKeepsPreviousState(t *testing.T) {
	s, fb, _ := newState(t)
	ctx := context.Background()
	if err := s.RefreshTmux(ctx); err != nil {
		t.Fatalf("RefreshTmux: %v", err)
	}
	prev := s.Tmux

	fb.mu.Lock()
	fb.fail["/api/tmux"] = true
	fb.mu.Unlock()

	if err := s.RefreshTmux(ctx); err == nil {
		t.Fatal("expected error")
	}
	if s.Tmux != prev {
		t.Error("failed refresh should keep the previous panel")
	}
	if s.Errors["tmux"] == nil {
		t.Error("failure not recorded")
	}

	fb.mu.Lock()
	fb.fail["/api/tmux"] = false
	fb.mu.Unlock()
	if err := s.RefreshTmux(ctx); err != nil {
		t.Fatalf("RefreshTmux: %v", err)
	}
	if _, ok := s.Errors["tmux"]; ok {
		t.Error("success should clear the recorded error")
	}
}

func TestRefreshIPTVAndBatteryHistory(t *testing.T) {
	s, _, _ := newState(t)
	ctx := context.Background()
	if err := s.RefreshIPTV(ctx); err != nil {
		t.Fatalf("RefreshIPTV: %v", err)
	}
	if s.IPTV == nil || !bool(s.IPTV.OK) {
		t.Errorf("iptv: %+v", s.IPTV)
	}
	if err := s.RefreshBatteryHistory(ctx); err != nil {
		t.Fatalf("RefreshBatteryHistory: %v", err)
	}
	if len(s.Timeline) != 2 || s.Timeline[0].Segment != series.SegmentDischarging {
		t.Errorf("timeline: %+v", s.Timeline)
	}
}

// ─── History ──────────────────────────────────────────────────────────────────

func TestLoadHistoryReplaysSeries(t *testing.T) {
	s, _, _ := newState(t)
	s.Series.PushLabel()
	s.Series.PushFloat(dashboard.SeriesCPU, 99)

	if err := s.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	labels := s.Series.Labels()
	if len(labels) != 3 || labels[1] != "5s" || labels[2] != "10s" {
		t.Errorf("labels: %v", labels)
	}
	cpu := s.Series.Values(dashboard.SeriesCPU)
	if cpu[0] == nil || *cpu[0] != 10 || cpu[1] != nil {
		t.Errorf("cpu: %v", cpu)
	}
	if temp := s.Series.Values(dashboard.SeriesTemp); temp[2] != nil {
		t.Errorf("N/A temperature should replay as nil")
	}
	if got := s.Series.PushLabel(); got != "15s" {
		t.Errorf("live labels should continue the replayed counter, got %q", got)
	}
}

func TestReplayNil(t *testing.T) {
	if err := dashboard.Replay(series.New(0, 0, nil), nil); err == nil {
		t.Error("expected error for nil history")
	}
}

func TestReplayPadsShortSeries(t *testing.T) {
	buf := series.New(0, 0, nil)
	h := &model.MetricsHistory{
		Timestamps: []string{"2026-03-10T12:00:00Z", "2026-03-10T12:00:05Z"},
		CPU:        []model.Number{1},
	}
	if err := dashboard.Replay(buf, h); err != nil {
		t.Fatal(err)
	}
	cpu := buf.Values(dashboard.SeriesCPU)
	if len(cpu) != 2 || cpu[1] != nil {
		t.Errorf("short slice should pad with nil: %v", cpu)
	}
	if f := buf.Floats(dashboard.SeriesRx); len(f) != 2 || !math.IsNaN(f[0]) {
		t.Errorf("absent series should be all gaps: %v", f)
	}
}

func TestTailHistoryStartsAtOldestKept(t *testing.T) {
	h := &model.MetricsHistory{
		Timestamps: []string{"2026-03-10T12:00:00Z", "2026-03-10T12:00:05Z", "2026-03-10T12:00:10Z"},
		CPU:        []model.Number{1, 2, 3},
		Memory:     []model.Number{4},
	}
	buf := series.New(0, 0, nil)
	if err := dashboard.Replay(buf, dashboard.TailHistory(h, 2)); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(buf.Labels(), ","); got != "12:00:05,5s" {
		t.Errorf("labels: got %q", got)
	}
	if cpu := buf.Floats(dashboard.SeriesCPU); len(cpu) != 2 || cpu[0] != 2 || cpu[1] != 3 {
		t.Errorf("cpu: got %v", cpu)
	}
	if mem := buf.Values(dashboard.SeriesMem); len(mem) != 2 || mem[0] != nil {
		t.Errorf("memory past its end should be gaps: %v", mem)
	}
	if dashboard.TailHistory(h, 0) != h || dashboard.TailHistory(h, 5) != h {
		t.Error("n <= 0 or n >= len should return h unchanged")
	}
}

// ─── Scheduling ───────────────────────────────────────────────────────────────

func TestRegisterRunsViewRefreshers(t *testing.T) {
	s, fb, _ := newState(t)
	sc := poll.New(time.Hour, time.Hour)
	s.Register(sc)
	ctx := context.Background()

	if err := sc.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	// quick strip disk + metrics view status
	if fb.count("/api/status") != 2 || fb.count("/api/quick-stats") != 1 || fb.count("/api/tmux") != 0 {
		t.Errorf("metrics tick hits: %v", fb.hits)
	}

	if err := sc.SwitchView(ctx, poll.ViewTmux); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if fb.count("/api/tmux") != 1 {
		t.Errorf("switching to tmux should refresh it at once")
	}
	if err := sc.SwitchView(ctx, poll.ViewTodo); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	before := fb.count("/api/status")
	if err := sc.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if fb.count("/api/status") != before+1 {
		t.Error("todo view should only refresh the always-visible strip")
	}
	if fb.count("/api/todos") != 1 {
		t.Errorf("todos load on entry only, got %d requests", fb.count("/api/todos"))
	}

	if err := sc.SlowTick(ctx); err != nil {
		t.Fatalf("SlowTick: %v", err)
	}
	if fb.count("/api/battery/history") != 1 {
		t.Error("slow tick should load battery history")
	}
}

func TestTodoViewReloadsOnEveryEntry(t *testing.T) {
	s, fb, _ := newState(t)
	sc := poll.New(time.Hour, time.Hour)
	s.Register(sc)
	ctx := context.Background()

	fb.mu.Lock()
	fb.todos = `[{"id": "a", "title": "first", "order": 0}]`
	fb.mu.Unlock()
	if err := sc.SwitchView(ctx, poll.ViewTodo); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if n := len(s.Todos.Open()); n != 1 {
		t.Fatalf("first entry: got %d todos, want 1", n)
	}

	// added elsewhere while another view is shown
	fb.mu.Lock()
	fb.todos = todosJSON
	fb.mu.Unlock()
	if err := sc.SwitchView(ctx, poll.ViewMetrics); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if err := sc.SwitchView(ctx, poll.ViewTodo); err != nil {
		t.Fatalf("SwitchView: %v", err)
	}
	if fb.count("/api/todos") != 2 {
		t.Errorf("todos requests: got %d, want 2", fb.count("/api/todos"))
	}
	if open := s.Todos.Open(); len(open) != 2 || open[0].Title != "first" {
		t.Errorf("second entry should show the changed list, got %+v", open)
	}

	// rally stays load-once
	for i := 0; i < 2; i++ {
		if err := sc.SwitchView(ctx, poll.ViewRally); err != nil {
			t.Fatalf("SwitchView: %v", err)
		}
		if err := sc.SwitchView(ctx, poll.ViewMetrics); err != nil {
			t.Fatalf("SwitchView: %v", err)
		}
	}
	if fb.count("/api/rally-bot/routes") != 1 {
		t.Errorf("rally routes requests: got %d, want 1", fb.count("/api/rally-bot/routes"))
	}
}

// ─── Brightness ───────────────────────────────────────────────────────────────

func TestBrightnessInputIsDebounced(t *testing.T) {
	s, fb, _ := newState(t)
	s.Brightness.Input(10)
	s.Brightness.Input(20)
	s.Brightness.Input(30)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		fb.mu.Lock()
		n := len(fb.brightness)
		fb.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.brightness) != 1 || fb.brightness[0] != "30" {
		t.Errorf("brightness sends: %v", fb.brightness)
	}
}

func TestStartRestoresNothingWithoutStore(t *testing.T) {
	s, fb, _ := newState(t)
	s.Start(context.Background())
	if fb.count("/api/metrics/history") != 1 {
		t.Error("Start should backfill metrics history")
	}
	if fb.count("/api/terminal/exec") != 0 {
		t.Error("no stored token means no validation request")
	}
	if s.Term.State().String() != "logged out" {
		t.Errorf("state: %v", s.Term.State())
	}
}
