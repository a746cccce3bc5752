// Package analyze computes summaries and trends over chart series. Values are
// sample pointers where nil means the reading was unavailable. All functions
// are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one series. Statistics over an
// all-missing series are Missing (NaN, rendered as null/--).
type Summary struct {
	SeriesID    string       `json:"series_id"`
	Count       int          `json:"count"`   // total samples
	Missing     int          `json:"missing"` // nil or non-finite samples
	MissingPct  float64      `json:"missing_pct"`
	Mean        model.Number `json:"mean"`
	Min         model.Number `json:"min"`
	Median      model.Number `json:"median"`
	P95         model.Number `json:"p95"`
	Max         model.Number `json:"max"`
	Last        model.Number `json:"last"` // last valid value
	Change      model.Number `json:"change"`
	Trend       string       `json:"trend"` // "up", "down", "flat" or "" when unknown
	SlopePerMin model.Number `json:"slope_per_min"`
}

// Summarize computes statistics over vals, sampled every step.
func Summarize(seriesID string, vals []*float64, step time.Duration) Summary {
	s := Summary{
		SeriesID:    seriesID,
		Count:       len(vals),
		Mean:        model.Missing(),
		Min:         model.Missing(),
		Median:      model.Missing(),
		P95:         model.Missing(),
		Max:         model.Missing(),
		Last:        model.Missing(),
		Change:      model.Missing(),
		SlopePerMin: model.Missing(),
	}

	var valid []float64
	var pts []point
	for i, v := range vals {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			s.Missing++
			continue
		}
		valid = append(valid, *v)
		pts = append(pts, point{float64(i), *v})
	}
	if s.Count > 0 {
		s.MissingPct = float64(s.Missing) / float64(s.Count) * 100
	}
	if len(valid) == 0 {
		return s
	}

	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)
	s.Min = model.Number(sorted[0])
	s.Max = model.Number(sorted[len(sorted)-1])
	s.Median = model.Number(percentile(sorted, 50))
	s.P95 = model.Number(percentile(sorted, 95))
	s.Mean = model.Number(sumF(valid) / float64(len(valid)))
	s.Last = model.Number(valid[len(valid)-1])
	s.Change = model.Number(valid[len(valid)-1] - valid[0])

	if m, err := slope(pts); err == nil && step > 0 {
		perMin := m * float64(time.Minute) / float64(step)
		s.SlopePerMin = model.Number(perMin)
		s.Trend = Direction(perMin, flatEpsilon)
	}
	return s
}

// flatEpsilon is the per-minute slope below which a series counts as flat.
const flatEpsilon = 0.05

// Direction classifies a slope as "up", "down" or "flat".
func Direction(slope, eps float64) string {
	switch {
	case slope > eps:
		return "up"
	case slope < -eps:
		return "down"
	default:
		return "flat"
	}
}

// ─── Trend ────────────────────────────────────────────────────────────────────

type point struct{ x, y float64 }

// slope fits an ordinary least squares line and returns its slope in y units
// per x unit.
func slope(pts []point) (float64, error) {
	if len(pts) < 2 {
		return 0, fmt.Errorf("trend: need at least 2 valid samples, got %d", len(pts))
	}
	m, _ := olsRegress(pts)
	return m, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// percentile uses linear interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var sx, sy, sxy, sxx float64
	for _, p := range pts {
		sx += p.x
		sy += p.y
		sxy += p.x * p.y
		sxx += p.x * p.x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}
