package metrics

import (
	"errors"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNew(t *testing.T) {
	m := New()
	if m.Registry() == nil {
		t.Fatal("Registry() returned nil")
	}
	if _, err := m.Registry().Gather(); err != nil {
		t.Errorf("Gather: %v", err)
	}
}

func TestObserveRefresh(t *testing.T) {
	m := New()
	m.ObserveRefresh("quick", time.Millisecond, nil)
	m.ObserveRefresh("quick", time.Millisecond, nil)
	m.ObserveRefresh("quick", time.Millisecond, errors.New("boom"))

	if v := counterValue(t, m.RefreshTotal.WithLabelValues("quick", "ok")); v != 2 {
		t.Errorf("ok count: expected 2, got %v", v)
	}
	if v := counterValue(t, m.RefreshTotal.WithLabelValues("quick", "error")); v != 1 {
		t.Errorf("error count: expected 1, got %v", v)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/status", 200, time.Millisecond, nil)
	m.ObserveRequest("/api/status", 0, time.Millisecond, errors.New("refused"))

	if v := counterValue(t, m.APIRequestsTotal.WithLabelValues("/api/status", "200")); v != 1 {
		t.Errorf("200 count: %v", v)
	}
	if v := counterValue(t, m.APIRequestsTotal.WithLabelValues("/api/status", "error")); v != 1 {
		t.Errorf("transport error count: %v", v)
	}
}

func TestSetReadingKeepsLastValid(t *testing.T) {
	m := New()
	m.SetReading(ReadingCPU, 42)
	m.SetReading(ReadingCPU, math.NaN())
	if v := gaugeValue(t, m.Reading.WithLabelValues(ReadingCPU)); v != 42 {
		t.Errorf("NaN should not overwrite: got %v", v)
	}
}

func TestSetActiveView(t *testing.T) {
	m := New()
	views := []string{"metrics", "tmux"}
	m.SetActiveView(views, "tmux")
	if gaugeValue(t, m.ActiveView.WithLabelValues("tmux")) != 1 || gaugeValue(t, m.ActiveView.WithLabelValues("metrics")) != 0 {
		t.Error("active view gauges wrong")
	}
}

func TestServerHandler(t *testing.T) {
	m := New()
	m.ObserveRefresh("status", time.Millisecond, nil)
	s := NewServer(m, "127.0.0.1:0", "", nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "pocketdash_refresh_total") {
		t.Errorf("metrics body missing refresh counter:\n%s", body)
	}

	resp, err = srv.Client().Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("GET /health: %v %v", resp, err)
	}
	resp.Body.Close()
}
