// Package dashboard holds the state of one watch session and the refreshers
// that keep it current. The watch loop goroutine owns State; nothing here is
// safe for concurrent use except the brightness control.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/derickschaefer/pocketdash/internal/metrics"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/poll"
	"github.com/derickschaefer/pocketdash/internal/rally"
	"github.com/derickschaefer/pocketdash/internal/series"
	"github.com/derickschaefer/pocketdash/internal/terminal"
	"github.com/derickschaefer/pocketdash/internal/todo"
	"github.com/derickschaefer/pocketdash/internal/util"
	"github.com/derickschaefer/pocketdash/internal/view"
)

// Series ids of the rolling metrics charts.
const (
	SeriesCPU  = "cpu"
	SeriesMem  = "memory"
	SeriesTemp = "temperature"
	SeriesRx   = "rx"
	SeriesTx   = "tx"
)

// SeriesIDs is the chart order.
var SeriesIDs = []string{SeriesCPU, SeriesMem, SeriesTemp, SeriesRx, SeriesTx}

// Backend is every endpoint the dashboard reads or writes.
type Backend interface {
	Status(ctx context.Context) (*model.Snapshot, error)
	QuickStats(ctx context.Context) (*model.QuickStats, error)
	MetricsHistory(ctx context.Context) (*model.MetricsHistory, error)
	BatteryHistory(ctx context.Context) ([]model.BatteryHistoryEntry, error)
	SetBrightness(ctx context.Context, value int) error
	Tmux(ctx context.Context) (*model.TmuxStatus, error)
	IPTV(ctx context.Context) (*model.IPTVStatus, error)
	rally.Source
	todo.Backend
	terminal.Backend
}

// Recorder receives the latest readings. *metrics.Metrics satisfies it.
type Recorder interface {
	SetReading(name string, v float64)
	MarkUpdated(at time.Time)
}

// Options tunes a State. Zero values select the defaults.
type Options struct {
	MaxPoints          int
	Step               time.Duration
	BrightnessDebounce time.Duration
	Excluded           []string
	Store              terminal.Store
	Recorder           Recorder
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// State is everything one watch session shows.
type State struct {
	backend  Backend
	recorder Recorder
	now      func() time.Time

	Mapper   *view.Mapper
	Series   *series.Buffer
	Timeline []series.TimelinePoint

	Quick     view.QuickDisplay
	QuickDisk string
	Status    *view.Display
	Tmux      *view.TmuxSummary
	IPTV      *view.IPTVView

	Brightness *view.Brightness
	Rally      *rally.Engine
	Calendar   *rally.Calendar
	Todos      *todo.List
	Term       *terminal.Session

	// Errors holds the last failure per widget; a successful refresh clears it.
	Errors map[string]error

	// todosLoaded is set after the first successful todo load.
	todosLoaded bool
}

// New builds a State around b. Brightness input is forwarded to b after the
// debounce delay.
func New(b Backend, opts Options) *State {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := view.NewMapper()
	if opts.Excluded != nil {
		m.Excluded = append([]string(nil), opts.Excluded...)
	}
	s := &State{
		backend:  b,
		recorder: opts.Recorder,
		now:      now,
		Mapper:   m,
		Series:   series.New(opts.MaxPoints, opts.Step, now),
		Rally:    rally.NewEngine(b),
		Calendar: rally.NewCalendar(now()),
		Todos:    todo.New(b),
		Term:     terminal.NewSession(b, opts.Store),
		Errors:   make(map[string]error),
	}
	s.Brightness = view.NewBrightness(opts.BrightnessDebounce, func(v int) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.SetBrightness(ctx, v); err != nil {
			slog.Warn("brightness: set failed", "value", v, "error", err)
		}
	})
	return s
}

// Register wires the refreshers into sc: quick stats and disk on every tick,
// the full status for the metrics and controls views, tmux for its view and
// battery history on the slow tick. The rally and todo views load when they
// are entered, not on ticks: rally only the first time, todos every time.
func (s *State) Register(sc *poll.Scheduler) {
	sc.Always("quick", s.RefreshQuick)
	sc.Always("disk", s.RefreshDisk)
	sc.OnView(poll.ViewMetrics, "status", s.RefreshStatus)
	sc.OnView(poll.ViewControls, "status", s.RefreshStatus)
	sc.OnView(poll.ViewMetrics, "iptv", s.RefreshIPTV)
	sc.OnView(poll.ViewControls, "iptv", s.RefreshIPTV)
	sc.OnView(poll.ViewTmux, "tmux", s.RefreshTmux)
	sc.OnEnter(poll.ViewRally, "rally", s.LoadRally)
	sc.OnEnter(poll.ViewTodo, "todos", s.LoadTodos)
	sc.Slow("battery_history", s.RefreshBatteryHistory)
}

// Start runs the one-off startup work: metrics history backfill and
// restoring a persisted terminal session. Failures are logged only.
func (s *State) Start(ctx context.Context) {
	if err := s.LoadHistory(ctx); err != nil {
		slog.Warn("dashboard: metrics history backfill failed", "error", err)
	}
	if s.Term.Restore(ctx) {
		slog.Info("dashboard: terminal session restored", "cwd", s.Term.Cwd())
	}
}

// Close stops pending brightness sends.
func (s *State) Close() {
	s.Brightness.Stop()
}

// ─── Refreshers ───────────────────────────────────────────────────────────────

// RefreshQuick updates the always-visible summary strip.
func (s *State) RefreshQuick(ctx context.Context) error {
	q, err := s.backend.QuickStats(ctx)
	if s.fail("quick", err) {
		return err
	}
	s.Quick = s.Mapper.Quick(*q)
	if s.QuickDisk != "" {
		s.Quick.Disk = s.QuickDisk
	}
	s.record(map[string]model.Number{
		metrics.ReadingCPU:     q.CPU,
		metrics.ReadingMemory:  q.Memory,
		metrics.ReadingTemp:    q.Temperature,
		metrics.ReadingBattery: q.Battery.Capacity,
	})
	return nil
}

// RefreshDisk updates the quick-strip disk figure from the full status.
func (s *State) RefreshDisk(ctx context.Context) error {
	snap, err := s.backend.Status(ctx)
	if s.fail("disk", err) {
		return err
	}
	pct := view.DiskPercent(*snap)
	s.QuickDisk = util.FormatFixed(pct.Float(), 0, "%")
	s.Quick.Disk = s.QuickDisk
	s.record(map[string]model.Number{metrics.ReadingDisk: pct})
	return nil
}

// RefreshStatus maps a full snapshot, syncs brightness and pushes one chart
// sample per series.
func (s *State) RefreshStatus(ctx context.Context) error {
	snap, err := s.backend.Status(ctx)
	if s.fail("status", err) {
		return err
	}
	now := s.now()
	d := s.Mapper.Status(*snap, now)
	s.Status = &d

	if snap.Brightness != nil {
		s.Brightness.Sync(snap.Brightness.Percentage)
	}

	s.Series.PushLabel()
	s.Series.Push(SeriesCPU, d.CPU.Value.Ptr())
	s.Series.Push(SeriesMem, d.Mem.Value.Ptr())
	s.Series.Push(SeriesTemp, d.Temp.Value.Ptr())
	s.Series.PushFloat(SeriesRx, d.RxKBs)
	s.Series.PushFloat(SeriesTx, d.TxKBs)

	if s.recorder != nil {
		s.recorder.SetReading(metrics.ReadingRxKBs, d.RxKBs)
		s.recorder.SetReading(metrics.ReadingTxKBs, d.TxKBs)
		s.recorder.MarkUpdated(now)
	}
	return nil
}

// RefreshIPTV updates the IPTV panel. An unsuccessful response still maps
// to a panel carrying the error.
func (s *State) RefreshIPTV(ctx context.Context) error {
	st, err := s.backend.IPTV(ctx)
	if s.fail("iptv", err) {
		return err
	}
	v := view.MapIPTV(*st)
	s.IPTV = &v
	return nil
}

// RefreshTmux updates the tmux panel.
func (s *State) RefreshTmux(ctx context.Context) error {
	st, err := s.backend.Tmux(ctx)
	if s.fail("tmux", err) {
		return err
	}
	v := view.MapTmux(*st)
	s.Tmux = &v
	return nil
}

// RefreshBatteryHistory reloads the long-horizon battery timeline.
func (s *State) RefreshBatteryHistory(ctx context.Context) error {
	entries, err := s.backend.BatteryHistory(ctx)
	if s.fail("battery_history", err) {
		return err
	}
	s.Timeline = series.Timeline(entries)
	return nil
}

// LoadRally fills the route cache the first time the rally view is shown.
func (s *State) LoadRally(ctx context.Context) error {
	if s.Rally.Loaded() {
		return nil
	}
	_, err := s.Rally.Load(ctx)
	s.fail("rally", err)
	return err
}

// LoadTodos reloads the todo list. A failed reload keeps the previous list.
func (s *State) LoadTodos(ctx context.Context) error {
	err := s.Todos.Load(ctx)
	if !s.fail("todos", err) {
		s.todosLoaded = true
	}
	return err
}

// LoadHistory replaces the rolling charts with the backend's history.
func (s *State) LoadHistory(ctx context.Context) error {
	h, err := s.backend.MetricsHistory(ctx)
	if s.fail("metrics_history", err) {
		return err
	}
	if err := Replay(s.Series, h); err != nil {
		return err
	}
	s.Mapper.Rate.Reset()
	return nil
}

// Replay rebuilds buf from a metrics history payload. Entries whose
// timestamp does not parse keep their position with a zero time.
func Replay(buf *series.Buffer, h *model.MetricsHistory) error {
	if h == nil {
		return fmt.Errorf("metrics history: empty response")
	}
	stamps := make([]time.Time, len(h.Timestamps))
	for i, raw := range h.Timestamps {
		ts, err := util.ParseTimestamp(raw)
		if err != nil {
			slog.Debug("metrics history: bad timestamp", "index", i, "timestamp", raw)
		}
		stamps[i] = ts
	}
	buf.Replay(stamps, SeriesIDs, map[string][]*float64{
		SeriesCPU:  ptrs(h.CPU),
		SeriesMem:  ptrs(h.Memory),
		SeriesTemp: ptrs(h.Temperature),
		SeriesRx:   ptrs(h.NetworkRx),
		SeriesTx:   ptrs(h.NetworkTx),
	})
	return nil
}

// TailHistory returns h cut to its newest n samples, so that a replay of the
// result starts its labels at the oldest kept sample. n <= 0 keeps everything.
func TailHistory(h *model.MetricsHistory, n int) *model.MetricsHistory {
	if h == nil || n <= 0 || len(h.Timestamps) <= n {
		return h
	}
	cut := len(h.Timestamps) - n
	tail := func(ns []model.Number) []model.Number {
		if len(ns) <= cut {
			return nil
		}
		return ns[cut:]
	}
	return &model.MetricsHistory{
		Timestamps:  h.Timestamps[cut:],
		CPU:         tail(h.CPU),
		Memory:      tail(h.Memory),
		Temperature: tail(h.Temperature),
		NetworkRx:   tail(h.NetworkRx),
		NetworkTx:   tail(h.NetworkTx),
	}
}

func ptrs(ns []model.Number) []*float64 {
	out := make([]*float64, len(ns))
	for i, n := range ns {
		out[i] = n.Ptr()
	}
	return out
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// fail records err against widget and reports whether it was non-nil.
func (s *State) fail(widget string, err error) bool {
	if err != nil {
		s.Errors[widget] = err
		return true
	}
	delete(s.Errors, widget)
	return false
}

func (s *State) record(readings map[string]model.Number) {
	if s.recorder == nil {
		return
	}
	for name, v := range readings {
		s.recorder.SetReading(name, v.Float())
	}
}
