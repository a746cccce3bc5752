// Package rally filters and groups one-way vehicle relocation offers.
//
// The full route list is fetched once per Engine and cached; every filter
// change re-derives the visible groups from that cache without mutating it.
package rally

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
)

// Source fetches the full route list.
type Source interface {
	RallyRoutes(ctx context.Context) ([]model.Route, error)
}

// Filters selects which offers survive. Empty sets match everything; a zero
// Start or End leaves that side of the window open.
type Filters struct {
	Origins      []string  `json:"origins,omitempty"`
	Destinations []string  `json:"destinations,omitempty"`
	Models       []string  `json:"models,omitempty"`
	Start        time.Time `json:"start,omitempty"`
	End          time.Time `json:"end,omitempty"`
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return len(f.Origins) > 0 || len(f.Destinations) > 0 || len(f.Models) > 0 ||
		!f.Start.IsZero() || !f.End.IsZero()
}

// Options are the selectable filter values.
type Options struct {
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	Models       []string `json:"models"`
}

// Counts are the surviving route and return totals.
type Counts struct {
	Routes  int `json:"routes"`
	Returns int `json:"returns"`
}

// Row is one bookable date range within a group.
type Row struct {
	Model string          `json:"model"`
	Range model.DateRange `json:"range"`
	URL   string          `json:"url"`
}

// Group merges every offer between one origin and one destination.
type Group struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Rows        []Row  `json:"rows"`
}

// Result is one filter pass over the cache.
type Result struct {
	Routes []model.Route `json:"-"`
	Groups []Group       `json:"groups"`
	Counts Counts        `json:"counts"`
}

// Engine holds the route cache and the current filters.
type Engine struct {
	src     Source
	routes  []model.Route
	loaded  bool
	Filters Filters
}

// NewEngine creates an unloaded engine.
func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// Loaded reports whether the cache has been filled.
func (e *Engine) Loaded() bool { return e.loaded }

// Load fills the cache on first use and returns the filtered result. Later
// calls only re-filter. On fetch failure the engine stays unloaded so the
// next call tries again.
func (e *Engine) Load(ctx context.Context) (Result, error) {
	if !e.loaded {
		routes, err := e.src.RallyRoutes(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("loading routes: %w", err)
		}
		e.SetRoutes(routes)
		slog.Debug("rally: routes loaded", "routes", len(routes))
	}
	return e.Apply(), nil
}

// SetRoutes replaces the cache and marks the engine loaded.
func (e *Engine) SetRoutes(routes []model.Route) {
	e.routes = routes
	e.loaded = true
}

// Routes returns the cached routes.
func (e *Engine) Routes() []model.Route { return e.routes }

// Apply filters and groups the cache with the current filters.
func (e *Engine) Apply() Result {
	routes := Filter(e.routes, e.Filters)
	return Result{Routes: routes, Groups: GroupRoutes(routes), Counts: Count(routes)}
}

// Options returns the filter options derived from the full cache, so that
// selecting an origin never hides destinations or models.
func (e *Engine) Options() Options { return BuildOptions(e.routes) }

// ─── Filtering ────────────────────────────────────────────────────────────────

// Filter returns the routes that survive f. Predicates apply in order:
// origin, destination, model (case-insensitive), then date-range overlap
// with the window. Returns left without dates and routes left without
// returns are dropped. The input is not modified.
func Filter(routes []model.Route, f Filters) []model.Route {
	origins := toSet(f.Origins, false)
	dests := toSet(f.Destinations, false)
	models := toSet(f.Models, true)
	windowed := !f.Start.IsZero() || !f.End.IsZero()

	var out []model.Route
	for _, r := range routes {
		if len(origins) > 0 && !origins[r.Origin] {
			continue
		}
		var rets []model.Return
		for _, ret := range r.Returns {
			if len(dests) > 0 && !dests[ret.Destination] {
				continue
			}
			if len(models) > 0 && !models[strings.ToLower(ret.ModelName)] {
				continue
			}
			dates := ret.AvailableDates
			if windowed {
				dates = overlapping(dates, f.Start, f.End)
				if len(dates) == 0 {
					continue
				}
			}
			ret.AvailableDates = dates
			rets = append(rets, ret)
		}
		if len(rets) == 0 {
			continue
		}
		r.Returns = rets
		out = append(out, r)
	}
	return out
}

// overlapping keeps the ranges that intersect [start, end]. Ranges with
// unparseable dates are dropped.
func overlapping(dates []model.DateRange, start, end time.Time) []model.DateRange {
	var out []model.DateRange
	for _, dr := range dates {
		rs, err1 := util.ParseDMY(dr.StartDate)
		re, err2 := util.ParseDMY(dr.EndDate)
		if err1 != nil || err2 != nil {
			slog.Debug("rally: dropping malformed range", "start", dr.StartDate, "end", dr.EndDate)
			continue
		}
		afterStart := start.IsZero() || !re.Before(start)
		beforeEnd := end.IsZero() || !rs.After(end)
		if afterStart && beforeEnd {
			out = append(out, dr)
		}
	}
	return out
}

// Count totals routes and returns.
func Count(routes []model.Route) Counts {
	c := Counts{Routes: len(routes)}
	for _, r := range routes {
		c.Returns += len(r.Returns)
	}
	return c
}

// ─── Grouping ─────────────────────────────────────────────────────────────────

// GroupRoutes merges offers by (origin, destination). Rows within a group
// are ordered by range start; groups by their earliest row. Both sorts are
// stable, and unparseable or missing starts sort last.
func GroupRoutes(routes []model.Route) []Group {
	var groups []*Group
	index := make(map[string]*Group)
	for _, r := range routes {
		for _, ret := range r.Returns {
			key := r.Origin + "||" + ret.Destination
			g, ok := index[key]
			if !ok {
				g = &Group{Origin: r.Origin, Destination: ret.Destination}
				index[key] = g
				groups = append(groups, g)
			}
			name := strings.ToLower(ret.ModelName)
			for _, dr := range ret.AvailableDates {
				g.Rows = append(g.Rows, Row{Model: name, Range: dr, URL: ret.URL})
			}
		}
	}

	for _, g := range groups {
		sort.SliceStable(g.Rows, func(i, j int) bool {
			return startBefore(g.Rows[i].Range.StartDate, g.Rows[j].Range.StartDate)
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return startBefore(firstStart(groups[i]), firstStart(groups[j]))
	})

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}

func firstStart(g *Group) string {
	if len(g.Rows) == 0 {
		return ""
	}
	return g.Rows[0].Range.StartDate
}

// startBefore orders DD/MM/YYYY strings by date, invalid ones last.
func startBefore(a, b string) bool {
	ta, errA := util.ParseDMY(a)
	tb, errB := util.ParseDMY(b)
	switch {
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return ta.Before(tb)
}

// ─── Options ──────────────────────────────────────────────────────────────────

// BuildOptions collects sorted unique origins, destinations and lower-cased
// model names.
func BuildOptions(routes []model.Route) Options {
	origins := map[string]bool{}
	dests := map[string]bool{}
	models := map[string]bool{}
	for _, r := range routes {
		origins[r.Origin] = true
		for _, ret := range r.Returns {
			dests[ret.Destination] = true
			if ret.ModelName != "" {
				models[strings.ToLower(ret.ModelName)] = true
			}
		}
	}
	return Options{
		Origins:      sortedKeys(origins),
		Destinations: sortedKeys(dests),
		Models:       sortedKeys(models),
	}
}

// SelectionLabel summarises a multi-select: the placeholder when empty, the
// value when one is selected, otherwise "N selected".
func SelectionLabel(selected []string, placeholder string) string {
	switch len(selected) {
	case 0:
		return placeholder
	case 1:
		return selected[0]
	}
	return fmt.Sprintf("%d selected", len(selected))
}

func toSet(vals []string, lower bool) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		if lower {
			v = strings.ToLower(v)
		}
		m[v] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
