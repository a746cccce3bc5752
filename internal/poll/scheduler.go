// Package poll drives periodic refreshes for the watch loop.
//
// A fast tick runs the always-visible refreshers plus the refreshers bound
// to the active view. A slow tick runs the long-horizon history refreshers.
// Everything runs sequentially on the goroutine that calls Run, which is the
// single owner of dashboard state; there is no in-flight cancellation and no
// retry. A failing refresher is logged and counted, and whatever it last
// produced stays in place.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/derickschaefer/pocketdash/internal/util"
)

// Views.
const (
	ViewMetrics  = "metrics"
	ViewControls = "controls"
	ViewTmux     = "tmux"
	ViewRally    = "rally"
	ViewTodo     = "todo"
	ViewTerminal = "terminal"
)

// Views lists every view in display order.
var Views = []string{ViewMetrics, ViewControls, ViewTmux, ViewRally, ViewTodo, ViewTerminal}

const (
	DefaultFast = 5 * time.Second
	DefaultSlow = 5 * time.Minute
)

// Func refreshes one piece of state.
type Func func(ctx context.Context) error

// Refresher is a named refresh function.
type Refresher struct {
	Name string
	Run  Func
}

// Observer receives the outcome of every refresher run.
type Observer interface {
	ObserveRefresh(name string, took time.Duration, err error)
}

// Scheduler owns the refresher registry and the active view.
type Scheduler struct {
	fast time.Duration
	slow time.Duration

	always []Refresher
	views  map[string][]Refresher
	enter  map[string][]Refresher
	hist   []Refresher
	active string
	// entered is the view whose entry refreshers last ran.
	entered string

	switches chan string

	// Observer, if set, is told about every refresher run.
	Observer Observer
	// Redraw, if set, runs after every tick and view switch.
	Redraw func()
}

// New creates a Scheduler with the metrics view active. Non-positive
// intervals select the defaults.
func New(fast, slow time.Duration) *Scheduler {
	if fast <= 0 {
		fast = DefaultFast
	}
	if slow <= 0 {
		slow = DefaultSlow
	}
	return &Scheduler{
		fast:     fast,
		slow:     slow,
		views:    make(map[string][]Refresher),
		enter:    make(map[string][]Refresher),
		active:   ViewMetrics,
		switches: make(chan string, 1),
	}
}

// Always registers a refresher that runs on every fast tick.
func (s *Scheduler) Always(name string, fn Func) {
	s.always = append(s.always, Refresher{Name: name, Run: fn})
}

// OnView registers a refresher that runs on fast ticks while view is active
// and immediately when the view is switched to.
func (s *Scheduler) OnView(view, name string, fn Func) {
	s.views[view] = append(s.views[view], Refresher{Name: name, Run: fn})
}

// OnEnter registers a refresher that runs each time view becomes active,
// but not on the fast ticks while it stays active.
func (s *Scheduler) OnEnter(view, name string, fn Func) {
	s.enter[view] = append(s.enter[view], Refresher{Name: name, Run: fn})
}

// Slow registers a long-horizon refresher.
func (s *Scheduler) Slow(name string, fn Func) {
	s.hist = append(s.hist, Refresher{Name: name, Run: fn})
}

// Active returns the active view.
func (s *Scheduler) Active() string { return s.active }

// Tick runs one fast tick. The active view's entry refreshers run too if
// it was made active by SetView and has not been entered yet.
func (s *Scheduler) Tick(ctx context.Context) error {
	var errs util.MultiError
	errs.Add(s.runAll(ctx, s.always))
	errs.Add(s.runAll(ctx, s.views[s.active]))
	if s.entered != s.active {
		s.entered = s.active
		errs.Add(s.runAll(ctx, s.enter[s.active]))
	}
	return errs.Err()
}

// SlowTick runs the long-horizon refreshers.
func (s *Scheduler) SlowTick(ctx context.Context) error {
	return s.runAll(ctx, s.hist)
}

// SetView makes name the active view without refreshing anything; the next
// Tick loads it. Use it before Run to pick the initial view.
func (s *Scheduler) SetView(name string) error {
	if !validView(name) {
		return fmt.Errorf("unknown view %q (valid: %v)", name, Views)
	}
	s.active = name
	return nil
}

// SwitchView makes name the active view and runs its view and entry
// refreshers at once.
func (s *Scheduler) SwitchView(ctx context.Context, name string) error {
	if !validView(name) {
		return fmt.Errorf("unknown view %q (valid: %v)", name, Views)
	}
	if name != s.active {
		slog.Info("poll: switching view", "from", s.active, "to", name)
	}
	s.active = name
	s.entered = name
	var errs util.MultiError
	errs.Add(s.runAll(ctx, s.views[name]))
	errs.Add(s.runAll(ctx, s.enter[name]))
	return errs.Err()
}

// RequestView asks a running loop to switch view. It is safe to call from
// any goroutine; a request made while another is still queued replaces it.
func (s *Scheduler) RequestView(name string) error {
	if !validView(name) {
		return fmt.Errorf("unknown view %q (valid: %v)", name, Views)
	}
	for {
		select {
		case s.switches <- name:
			return nil
		default:
		}
		select {
		case <-s.switches:
		default:
		}
	}
}

// Run performs an initial slow and fast tick, then ticks until ctx is done.
// Refresher errors are logged, never returned; Run returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.logErr("slow tick", s.SlowTick(ctx))
	s.logErr("tick", s.Tick(ctx))
	s.redraw()

	fast := time.NewTicker(s.fast)
	defer fast.Stop()
	slow := time.NewTicker(s.slow)
	defer slow.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fast.C:
			s.logErr("tick", s.Tick(ctx))
		case <-slow.C:
			s.logErr("slow tick", s.SlowTick(ctx))
		case name := <-s.switches:
			s.logErr("switch view", s.SwitchView(ctx, name))
		}
		s.redraw()
	}
}

func (s *Scheduler) runAll(ctx context.Context, rs []Refresher) error {
	var errs util.MultiError
	for _, r := range rs {
		start := time.Now()
		err := r.Run(ctx)
		took := time.Since(start)
		if s.Observer != nil {
			s.Observer.ObserveRefresh(r.Name, took, err)
		}
		if err != nil {
			errs.Add(fmt.Errorf("%s: %w", r.Name, err))
			continue
		}
		slog.Debug("poll: refreshed", "name", r.Name, "took", took)
	}
	return errs.Err()
}

func (s *Scheduler) logErr(what string, err error) {
	if err != nil {
		slog.Warn("poll: "+what+" failed", "view", s.active, "error", err)
	}
}

func (s *Scheduler) redraw() {
	if s.Redraw != nil {
		s.Redraw()
	}
}

func validView(name string) bool {
	for _, v := range Views {
		if v == name {
			return true
		}
	}
	return false
}
