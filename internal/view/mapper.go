// Package view maps backend snapshots into display values: formatted KPIs,
// health pills, network rates and gauge fills. The mapping functions are
// pure apart from RateState, which carries the previous byte counters.
package view

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
)

// ─── Thresholds ───────────────────────────────────────────────────────────────

// Limits holds the per-metric "over threshold" limits for one severity.
type Limits struct {
	CPU  float64 `json:"cpu" yaml:"cpu"`
	Mem  float64 `json:"mem" yaml:"mem"`
	Disk float64 `json:"disk" yaml:"disk"`
	Temp float64 `json:"temp" yaml:"temp"`
}

// Thresholds pairs the per-metric pill limits with the stricter limits that
// mark the whole device as bad.
type Thresholds struct {
	Pill    Limits `json:"pill" yaml:"pill"`
	Overall Limits `json:"overall" yaml:"overall"`
}

// DefaultThresholds are the limits the dashboard ships with.
var DefaultThresholds = Thresholds{
	Pill:    Limits{CPU: 90, Mem: 85, Disk: 90, Temp: 80},
	Overall: Limits{CPU: 95, Mem: 92, Disk: 95, Temp: 85},
}

// DefaultExcludedInterfaces are omitted from interface lists and rates.
var DefaultExcludedInterfaces = []string{"usb0", "rmnet_ipa0"}

// over reports whether v is finite and strictly above limit. Missing
// readings never count as over.
func over(v, limit float64) bool {
	return util.Finite(v) && v > limit
}

// ─── Display model ────────────────────────────────────────────────────────────

// Pill is an OK/ISSUE indicator.
type Pill bool

// String renders the pill text.
func (p Pill) String() string {
	if p {
		return "OK"
	}
	return "ISSUE"
}

// KPI is one formatted metric.
type KPI struct {
	Value model.Number `json:"value"`
	Text  string       `json:"text"`
	OK    Pill         `json:"ok"`
}

// BatteryView is the battery hero block.
type BatteryView struct {
	Percent      string  `json:"percent"`
	Status       string  `json:"status"`
	Arrow        string  `json:"arrow"`
	Bar          float64 `json:"bar"`
	Estimate     string  `json:"estimate,omitempty"`
	EstimateCard string  `json:"estimate_card,omitempty"`
}

// InterfaceView is one network interface line.
type InterfaceView struct {
	Name string `json:"name"`
	RxMB string `json:"rx_mb"`
	TxMB string `json:"tx_mb"`
}

// ServiceView is one service line.
type ServiceView struct {
	Name  string `json:"name"`
	State string `json:"state"`
	OK    Pill   `json:"ok"`
}

// Display is the full dashboard view of one status snapshot.
type Display struct {
	Timestamp  string          `json:"timestamp"`
	Host       string          `json:"host,omitempty"`
	Battery    BatteryView     `json:"battery"`
	CPU        KPI             `json:"cpu"`
	Mem        KPI             `json:"mem"`
	Disk       KPI             `json:"disk"`
	Temp       KPI             `json:"temp"`
	MemInfo    string          `json:"mem_info"`
	DiskInfo   string          `json:"disk_info"`
	DiskGauge  float64         `json:"disk_gauge"`
	IP         string          `json:"ip"`
	Interfaces []InterfaceView `json:"interfaces"`
	RxKBs      float64         `json:"rx_kbs"`
	TxKBs      float64         `json:"tx_kbs"`
	Services   []ServiceView   `json:"services"`
	ServicesOK Pill            `json:"services_ok"`
	OverallBad bool            `json:"overall_bad"`
	Brightness model.Number    `json:"brightness"`
}

// QuickDisplay is the always-visible summary strip.
type QuickDisplay struct {
	Timestamp  string      `json:"timestamp"`
	Battery    BatteryView `json:"battery"`
	CPU        string      `json:"cpu"`
	Mem        string      `json:"mem"`
	Temp       string      `json:"temp"`
	Disk       string      `json:"disk"`
	OverallBad bool        `json:"overall_bad"`
}

// ─── Mapping ──────────────────────────────────────────────────────────────────

// Mapper converts snapshots into display models. It owns the network rate
// state, so one Mapper should serve one poll loop.
type Mapper struct {
	Thresholds Thresholds
	Excluded   []string
	Rate       RateState
}

// NewMapper returns a Mapper with the default thresholds and exclusions.
func NewMapper() *Mapper {
	return &Mapper{
		Thresholds: DefaultThresholds,
		Excluded:   append([]string(nil), DefaultExcludedInterfaces...),
	}
}

// Status maps a full snapshot using the mapper's settings and rate state.
func (m *Mapper) Status(s model.Snapshot, now time.Time) Display {
	return MapStatus(s, m.Thresholds, m.Excluded, &m.Rate, now)
}

// Quick maps a quick-stats response using the mapper's thresholds.
func (m *Mapper) Quick(q model.QuickStats) QuickDisplay {
	return MapQuick(q, m.Thresholds)
}

// MapStatus maps a full snapshot. Interfaces named in excluded are dropped
// before aggregation; rate is advanced with the aggregated byte totals and
// now. A nil rate yields zero rates.
func MapStatus(s model.Snapshot, th Thresholds, excluded []string, rate *RateState, now time.Time) Display {
	d := Display{
		Timestamp: s.Timestamp,
		Host:      s.System.Hostname,
		Battery:   MapBattery(s.Battery, s.BatteryEstimate),
		IP:        s.Network.IPAddress,
	}
	if d.IP == "" {
		d.IP = util.Placeholder
	}

	cpu := s.System.CPUUsage.Float()
	mem, disk := math.NaN(), math.NaN()
	if s.System.Memory != nil {
		mem = s.System.Memory.Percent.Float()
	}
	if s.System.Disk != nil {
		disk = s.System.Disk.Percent.Float()
	}
	temp := s.System.Temperature.Float()

	d.CPU = KPI{Value: model.Number(cpu), Text: util.FormatFixed(cpu, 0, "%"), OK: Pill(!over(cpu, th.Pill.CPU))}
	d.Mem = KPI{Value: model.Number(mem), Text: util.FormatFixed(mem, 0, "%"), OK: Pill(!over(mem, th.Pill.Mem))}
	d.Disk = KPI{Value: model.Number(disk), Text: util.FormatFixed(disk, 0, "%"), OK: Pill(!over(disk, th.Pill.Disk))}
	d.Temp = KPI{Value: model.Number(temp), Text: util.FormatFixed(temp, 1, "°C"), OK: Pill(!over(temp, th.Pill.Temp))}
	d.DiskGauge = Gauge(disk)
	d.MemInfo = usageInfo(s.System.Memory)
	d.DiskInfo = usageInfo(s.System.Disk)

	var rx, tx float64
	d.Interfaces, rx, tx = interfaces(s.Network.Interfaces, excluded)
	if rate != nil {
		d.RxKBs, d.TxKBs = rate.Observe(rx, tx, now)
	}

	d.Services, d.ServicesOK = services(s.Services)
	d.OverallBad = over(cpu, th.Overall.CPU) ||
		over(mem, th.Overall.Mem) ||
		over(disk, th.Overall.Disk) ||
		over(temp, th.Overall.Temp) ||
		!bool(d.ServicesOK)

	d.Brightness = model.Missing()
	if s.Brightness != nil {
		d.Brightness = s.Brightness.Percentage
	}
	return d
}

// MapQuick maps a quick-stats response. Disk is not part of this endpoint,
// so the overall flag considers cpu, memory and temperature only.
func MapQuick(q model.QuickStats, thresholds Thresholds) QuickDisplay {
	th := thresholds.Overall
	cpu, mem, temp := q.CPU.Float(), q.Memory.Float(), q.Temperature.Float()
	return QuickDisplay{
		Timestamp:  q.Timestamp,
		Battery:    MapBattery(q.Battery, nil),
		CPU:        util.FormatFixed(cpu, 0, "%"),
		Mem:        util.FormatFixed(mem, 0, "%"),
		Temp:       util.FormatFixed(temp, 1, "°C"),
		Disk:       util.FormatFixed(math.NaN(), 0, "%"),
		OverallBad: over(cpu, th.CPU) || over(mem, th.Mem) || over(temp, th.Temp),
	}
}

// DiskPercent returns the snapshot's disk usage percent, NaN when absent.
// The quick strip takes its disk figure from the full status.
func DiskPercent(s model.Snapshot) model.Number {
	if s.System.Disk == nil {
		return model.Missing()
	}
	return s.System.Disk.Percent
}

// interfaces builds the per-interface lines (sorted by name) and the byte
// totals, skipping excluded interfaces before aggregation.
func interfaces(ifaces map[string]model.InterfaceCounters, excluded []string) ([]InterfaceView, float64, float64) {
	names := make([]string, 0, len(ifaces))
	for name := range ifaces {
		if contains(excluded, name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var rx, tx float64
	out := make([]InterfaceView, 0, len(names))
	for _, name := range names {
		c := ifaces[name]
		rb, tb := zeroIfMissing(c.BytesRecv), zeroIfMissing(c.BytesSent)
		rx += rb
		tx += tb
		out = append(out, InterfaceView{
			Name: name,
			RxMB: strconv.FormatFloat(rb/(1024*1024), 'f', 2, 64),
			TxMB: strconv.FormatFloat(tb/(1024*1024), 'f', 2, 64),
		})
	}
	return out, rx, tx
}

func contains(list []string, name string) bool {
	for _, x := range list {
		if x == name {
			return true
		}
	}
	return false
}

func services(states map[string]string) ([]ServiceView, Pill) {
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	allOK := true
	out := make([]ServiceView, 0, len(names))
	for _, name := range names {
		st := states[name]
		ok := st == "active"
		allOK = allOK && ok
		out = append(out, ServiceView{Name: name, State: st, OK: Pill(ok)})
	}
	return out, Pill(allOK)
}

func usageInfo(u *model.Usage) string {
	used, total := util.Placeholder, util.Placeholder
	if u != nil {
		if u.Used.Valid() {
			used = strconv.FormatFloat(u.Used.Float(), 'f', -1, 64)
		}
		if u.Total.Valid() {
			total = strconv.FormatFloat(u.Total.Float(), 'f', -1, 64)
		}
	}
	return fmt.Sprintf("%s GB / %s GB", used, total)
}

func zeroIfMissing(n model.Number) float64 {
	if !n.Valid() {
		return 0
	}
	return n.Float()
}

// ─── Battery ──────────────────────────────────────────────────────────────────

// Battery direction arrows.
const (
	ArrowDown    = "↓"
	ArrowUp      = "↑"
	ArrowNeutral = "•"
)

// BatteryArrow picks the direction arrow from a battery status string.
// "discharg" is checked before "charg" because the former contains the latter.
func BatteryArrow(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case strings.Contains(s, "discharg"):
		return ArrowDown
	case strings.Contains(s, "charg"):
		return ArrowUp
	default:
		return ArrowNeutral
	}
}

// MapBattery builds the battery hero block. est may be nil.
func MapBattery(b model.Battery, est *model.BatteryEstimate) BatteryView {
	capacity := b.Capacity.Float()
	v := BatteryView{
		Percent: util.FormatFixed(capacity, 0, "%"),
		Status:  b.Status,
		Arrow:   BatteryArrow(b.Status),
	}
	if v.Status == "" {
		v.Status = util.Placeholder
	}
	if util.Finite(capacity) {
		v.Bar = math.Max(0, math.Min(100, capacity))
	}
	v.Estimate, v.EstimateCard = EstimateText(est)
	return v
}

// EstimateText renders the short hero estimate and the longer card text.
func EstimateText(est *model.BatteryEstimate) (hero, card string) {
	if est == nil {
		return "", ""
	}
	rate := ""
	if est.RatePerHour.Valid() && est.RatePerHour.Float() != 0 {
		rate = strconv.FormatFloat(est.RatePerHour.Float(), 'f', -1, 64) + "%/h"
	}
	switch {
	case est.Status == "discharging" && est.Estimate != "Stable":
		return "~" + est.Estimate + " left", "⬇ " + rate + " · ~" + est.Estimate + " remaining"
	case est.Status == "charging" && est.Estimate != "Stable":
		return "~" + est.Estimate + " to full", "⬆ " + rate + " · ~" + est.Estimate + " to full"
	case est.Estimate == "Stable":
		return "Stable", "Drain rate: 0%/h"
	}
	return "", ""
}

// ─── Network rate ─────────────────────────────────────────────────────────────

// RateState retains the previous byte totals between snapshots.
type RateState struct {
	RxBytes float64
	TxBytes float64
	At      time.Time
	valid   bool
}

// Observe records new byte totals and returns the KB/s rates since the
// previous observation. The first observation returns zero rates. Elapsed
// time is floored at one second and negative deltas (counter resets) clamp
// to zero.
func (r *RateState) Observe(rx, tx float64, now time.Time) (rxKBs, txKBs float64) {
	if r.valid {
		dt := math.Max(1, now.Sub(r.At).Seconds())
		rxKBs = math.Max(0, (rx-r.RxBytes)/dt/1024)
		txKBs = math.Max(0, (tx-r.TxBytes)/dt/1024)
	}
	r.RxBytes, r.TxBytes, r.At, r.valid = rx, tx, now, true
	return rxKBs, txKBs
}

// Reset forgets the previous observation.
func (r *RateState) Reset() {
	*r = RateState{}
}

// ─── Gauge ────────────────────────────────────────────────────────────────────

// MinSliver is the smallest non-zero gauge fill.
const MinSliver = 2

// Gauge converts a percentage into a display fill: clamped to [0,100],
// non-finite as 0, and any fill between 0 and MinSliver raised to MinSliver
// so it stays visible.
func Gauge(p float64) float64 {
	if !util.Finite(p) {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	if p > 0 && p < MinSliver {
		p = MinSliver
	}
	return p
}
