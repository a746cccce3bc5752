package view

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
)

// DefaultBrightnessDebounce is the quiet period before a brightness change
// is sent to the backend.
const DefaultBrightnessDebounce = 450 * time.Millisecond

// Brightness is one brightness control. Polled values update the KPI text
// always, and the control position only while the user is not dragging.
// User input is debounced: each Input cancels the pending send and starts a
// new quiet period.
type Brightness struct {
	mu       sync.Mutex
	delay    time.Duration
	send     func(int)
	timer    *time.Timer
	pending  int
	seq      uint64
	dragging bool
	value    int
	kpi      string
}

// NewBrightness creates a control that calls send with the final value once
// input has been quiet for delay. send runs on its own goroutine.
func NewBrightness(delay time.Duration, send func(int)) *Brightness {
	if delay <= 0 {
		delay = DefaultBrightnessDebounce
	}
	return &Brightness{delay: delay, send: send, kpi: BrightnessText(model.Missing())}
}

// SetDragging marks whether the user is currently holding the control.
func (b *Brightness) SetDragging(d bool) {
	b.mu.Lock()
	b.dragging = d
	b.mu.Unlock()
}

// Sync applies a polled brightness percentage.
func (b *Brightness) Sync(pct model.Number) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kpi = BrightnessText(pct)
	if !b.dragging && pct.Valid() {
		b.value = clampPercent(pct.Float())
	}
}

// Input applies a user change and schedules the outbound request.
func (b *Brightness) Input(v int) {
	v = clampPercent(float64(v))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
	b.pending = v
	b.kpi = BrightnessText(model.Number(v))
	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.timer = time.AfterFunc(b.delay, func() { b.fire(seq) })
}

// Flush sends a pending change immediately. It reports whether one was sent.
func (b *Brightness) Flush() bool {
	b.mu.Lock()
	if b.timer == nil || !b.timer.Stop() {
		b.mu.Unlock()
		return false
	}
	b.timer = nil
	v := b.pending
	b.mu.Unlock()
	b.deliver(v)
	return true
}

// Stop cancels any pending send.
func (b *Brightness) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Value returns the control position.
func (b *Brightness) Value() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// KPI returns the brightness KPI text.
func (b *Brightness) KPI() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kpi
}

// fire sends the pending value unless a later Input superseded this timer.
func (b *Brightness) fire(seq uint64) {
	b.mu.Lock()
	if seq != b.seq || b.timer == nil {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	v := b.pending
	b.mu.Unlock()
	b.deliver(v)
}

func (b *Brightness) deliver(v int) {
	if b.send == nil {
		return
	}
	slog.Debug("brightness: sending", "value", v)
	b.send(v)
}

func clampPercent(f float64) int {
	return int(math.Round(math.Max(0, math.Min(100, f))))
}
