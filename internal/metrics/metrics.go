// Package metrics exposes watch-mode counters and last-seen device readings
// as Prometheus metrics.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for pocketdash.
// It satisfies both poll.Observer and api.Observer.
type Metrics struct {
	// Refresh loop
	RefreshTotal           *prometheus.CounterVec
	RefreshDurationSeconds *prometheus.HistogramVec

	// Backend API
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	// Last-seen readings
	Reading    *prometheus.GaugeVec
	ActiveView *prometheus.GaugeVec
	LastUpdate prometheus.Gauge

	registry *prometheus.Registry
}

// Reading names used as the "metric" label of pocketdash_device_reading.
const (
	ReadingCPU     = "cpu"
	ReadingMemory  = "memory"
	ReadingDisk    = "disk"
	ReadingTemp    = "temperature"
	ReadingBattery = "battery"
	ReadingRxKBs   = "rx_kbs"
	ReadingTxKBs   = "tx_kbs"
)

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketdash_refresh_total",
				Help: "Total number of refresher runs by outcome",
			},
			[]string{"refresher", "outcome"},
		),
		RefreshDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketdash_refresh_duration_seconds",
				Help:    "Refresher run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"refresher"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketdash_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"endpoint", "code"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketdash_api_request_duration_seconds",
				Help:    "Backend API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Reading: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pocketdash_device_reading",
				Help: "Last valid device reading seen by the dashboard",
			},
			[]string{"metric"},
		),
		ActiveView: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pocketdash_active_view",
				Help: "1 for the currently active dashboard view, 0 otherwise",
			},
			[]string{"view"},
		),
		LastUpdate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketdash_last_update_timestamp_seconds",
				Help: "Unix time of the last successful status snapshot",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RefreshTotal,
		m.RefreshDurationSeconds,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.Reading,
		m.ActiveView,
		m.LastUpdate,
	)

	return m
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRefresh records one refresher run.
func (m *Metrics) ObserveRefresh(name string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RefreshTotal.WithLabelValues(name, outcome).Inc()
	m.RefreshDurationSeconds.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveRequest records one backend request. Transport failures have no
// status code and are labelled "error".
func (m *Metrics) ObserveRequest(endpoint string, status int, took time.Duration, err error) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.APIRequestsTotal.WithLabelValues(endpoint, code).Inc()
	m.APIRequestDurationSeconds.WithLabelValues(endpoint).Observe(took.Seconds())
}

// SetReading stores a device reading. Missing (non-finite) values leave the
// previous reading in place.
func (m *Metrics) SetReading(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	m.Reading.WithLabelValues(name).Set(v)
}

// SetActiveView marks name as the active view among views.
func (m *Metrics) SetActiveView(views []string, name string) {
	for _, v := range views {
		val := 0.0
		if v == name {
			val = 1
		}
		m.ActiveView.WithLabelValues(v).Set(val)
	}
}

// MarkUpdated records the time of a successful status snapshot.
func (m *Metrics) MarkUpdated(at time.Time) {
	m.LastUpdate.Set(float64(at.Unix()))
}
