// Package series holds the fixed-capacity rolling buffers that feed the
// time-series charts.
//
// All series in a Buffer share one label axis. Callers must push exactly one
// label and one value per series on every tick; the buffer does not enforce
// this, and skipping a series desynchronises its chart from the axis.
package series

import (
	"math"
	"strconv"
	"time"
)

const (
	// DefaultCapacity is the number of samples kept per series.
	DefaultCapacity = 60
	// DefaultStep is the nominal sampling cadence.
	DefaultStep = 5 * time.Second

	absoluteLayout = "15:04:05"
)

// Point is one sample of a series. A nil Value means the reading was
// unavailable on that tick; it is kept so parallel series stay aligned.
type Point struct {
	Label string
	Value *float64
}

// Buffer is a set of FIFO series sharing a label axis.
type Buffer struct {
	capacity int
	step     int // seconds added to the relative counter per label
	now      func() time.Time

	started bool
	elapsed int
	labels  []string
	series  map[string][]*float64
	ids     []string
}

// New creates a Buffer. capacity <= 0 selects DefaultCapacity, step <= 0
// selects DefaultStep, and a nil clock uses time.Now.
func New(capacity int, step time.Duration, now func() time.Time) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if step <= 0 {
		step = DefaultStep
	}
	if now == nil {
		now = time.Now
	}
	return &Buffer{
		capacity: capacity,
		step:     int(step / time.Second),
		now:      now,
		series:   make(map[string][]*float64),
	}
}

// Capacity returns the maximum number of samples per series.
func (b *Buffer) Capacity() int { return b.capacity }

// PushLabel appends the next axis label and returns it. The first label of a
// session is the absolute wall-clock time; every later one is the elapsed
// seconds counter, which eviction never resets.
func (b *Buffer) PushLabel() string {
	var label string
	if !b.started {
		b.started = true
		b.elapsed = 0
		label = b.now().Format(absoluteLayout)
	} else {
		b.elapsed += b.step
		label = strconv.Itoa(b.elapsed) + "s"
	}
	b.labels = appendCapped(b.labels, label, b.capacity)
	return label
}

// Push appends one sample to series id, evicting the oldest when full.
func (b *Buffer) Push(id string, v *float64) {
	vals, ok := b.series[id]
	if !ok {
		b.ids = append(b.ids, id)
	}
	if v != nil {
		c := *v
		v = &c
	}
	b.series[id] = appendCapped(vals, v, b.capacity)
}

// PushFloat is Push for plain floats; non-finite values become nil.
func (b *Buffer) PushFloat(id string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		b.Push(id, nil)
		return
	}
	b.Push(id, &v)
}

// Reset clears all labels and series and restarts the session clock.
func (b *Buffer) Reset() {
	b.started = false
	b.elapsed = 0
	b.labels = nil
	b.series = make(map[string][]*float64)
	b.ids = nil
}

// Replay clears the buffer and rebuilds it from historical samples. The first
// stamp is labelled with its absolute time and later ones with a counter
// derived from their position, so live pushes continue the sequence.
// values[id][i] belongs to stamps[i]; short slices are padded with nil.
// ids fixes the series order; series present in values but not in ids are
// appended in map order.
func (b *Buffer) Replay(stamps []time.Time, ids []string, values map[string][]*float64) {
	b.Reset()
	for _, id := range ids {
		b.ensure(id)
	}
	for id := range values {
		b.ensure(id)
	}
	for i, ts := range stamps {
		var label string
		if i == 0 {
			b.started = true
			label = ts.Format(absoluteLayout)
		} else {
			b.elapsed = i * b.step
			label = strconv.Itoa(b.elapsed) + "s"
		}
		b.labels = appendCapped(b.labels, label, b.capacity)
		for _, id := range b.ids {
			var v *float64
			if vals := values[id]; i < len(vals) {
				v = vals[i]
			}
			b.Push(id, v)
		}
	}
}

// Len returns the number of labels currently held.
func (b *Buffer) Len() int { return len(b.labels) }

// Elapsed returns the relative seconds counter of the latest label.
func (b *Buffer) Elapsed() int { return b.elapsed }

// IDs returns the series ids in registration order.
func (b *Buffer) IDs() []string {
	out := make([]string, len(b.ids))
	copy(out, b.ids)
	return out
}

// Labels returns a copy of the label axis.
func (b *Buffer) Labels() []string {
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}

// Values returns a copy of series id. Unknown ids return nil.
func (b *Buffer) Values(id string) []*float64 {
	vals, ok := b.series[id]
	if !ok {
		return nil
	}
	out := make([]*float64, len(vals))
	for i, v := range vals {
		if v != nil {
			c := *v
			out[i] = &c
		}
	}
	return out
}

// Floats returns series id with missing samples as NaN.
func (b *Buffer) Floats(id string) []float64 {
	vals := b.series[id]
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out
}

// Points pairs series id with the label axis, aligned from the newest sample
// backwards so a lagging series still lines up with the latest labels.
func (b *Buffer) Points(id string) []Point {
	vals := b.Values(id)
	labels := b.labels
	n := len(vals)
	if len(labels) < n {
		n = len(labels)
	}
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = Point{
			Label: labels[len(labels)-1-i],
			Value: vals[len(vals)-1-i],
		}
	}
	return out
}

// Latest returns the newest sample of series id.
func (b *Buffer) Latest(id string) (*float64, bool) {
	vals := b.series[id]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[len(vals)-1], true
}

func (b *Buffer) ensure(id string) {
	if _, ok := b.series[id]; !ok {
		b.series[id] = nil
		b.ids = append(b.ids, id)
	}
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		// Copy down so the backing array does not grow without bound.
		n := copy(s, s[len(s)-capacity:])
		s = s[:n]
	}
	return s
}

// Table is a serialisable copy of a Buffer's contents.
type Table struct {
	Labels []string              `json:"labels"`
	IDs    []string              `json:"ids"`
	Series map[string][]*float64 `json:"series"`
}

// Table snapshots the buffer for rendering.
func (b *Buffer) Table() Table {
	t := Table{Labels: b.Labels(), IDs: b.IDs(), Series: make(map[string][]*float64, len(b.ids))}
	for _, id := range b.ids {
		t.Series[id] = b.Values(id)
	}
	return t
}
