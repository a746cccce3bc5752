package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/derickschaefer/pocketdash/internal/model"
)

// ─── Status ───────────────────────────────────────────────────────────────────

// Status fetches the full status snapshot.
func (c *Client) Status(ctx context.Context) (*model.Snapshot, error) {
	var s model.Snapshot
	if err := c.get(ctx, "/api/status", &s); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &s, nil
}

// StatusRaw fetches the status snapshot undecoded, for the snapshot log.
func (c *Client) StatusRaw(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/status", &raw); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return raw, nil
}

// QuickStats fetches the abbreviated snapshot.
func (c *Client) QuickStats(ctx context.Context) (*model.QuickStats, error) {
	var q model.QuickStats
	if err := c.get(ctx, "/api/quick-stats", &q); err != nil {
		return nil, fmt.Errorf("quick stats: %w", err)
	}
	return &q, nil
}

// ─── History ──────────────────────────────────────────────────────────────────

// MetricsHistory fetches the short-horizon metrics backfill.
func (c *Client) MetricsHistory(ctx context.Context) (*model.MetricsHistory, error) {
	var h model.MetricsHistory
	if err := c.get(ctx, "/api/metrics/history", &h); err != nil {
		return nil, fmt.Errorf("metrics history: %w", err)
	}
	return &h, nil
}

// BatteryHistory fetches the long-horizon battery history.
func (c *Client) BatteryHistory(ctx context.Context) ([]model.BatteryHistoryEntry, error) {
	var h []model.BatteryHistoryEntry
	if err := c.get(ctx, "/api/battery/history", &h); err != nil {
		return nil, fmt.Errorf("battery history: %w", err)
	}
	return h, nil
}

// ─── Controls and panels ──────────────────────────────────────────────────────

// SetBrightness sets the backlight to value percent (0-100).
func (c *Client) SetBrightness(ctx context.Context, value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("brightness %d out of range 0-100", value)
	}
	var env envelope
	if err := c.get(ctx, "/api/brightness/set/"+strconv.Itoa(value), &env); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	if err := env.err("brightness not set"); err != nil {
		return fmt.Errorf("set brightness: %w", err)
	}
	return nil
}

// Tmux fetches the tmux session list.
func (c *Client) Tmux(ctx context.Context) (*model.TmuxStatus, error) {
	var t model.TmuxStatus
	if err := c.get(ctx, "/api/tmux", &t); err != nil {
		return nil, fmt.Errorf("tmux: %w", err)
	}
	return &t, nil
}

// IPTV fetches the IPTV account status. An unsuccessful response is not an
// error here; the panel shows the backend message inline.
func (c *Client) IPTV(ctx context.Context) (*model.IPTVStatus, error) {
	var s model.IPTVStatus
	if err := c.get(ctx, "/api/iptv", &s); err != nil {
		return nil, fmt.Errorf("iptv: %w", err)
	}
	return &s, nil
}

// ─── Rally routes ─────────────────────────────────────────────────────────────

// RallyRoutes fetches the full relocation route list.
func (c *Client) RallyRoutes(ctx context.Context) ([]model.Route, error) {
	var raw struct {
		envelope
		Routes []model.Route `json:"routes"`
	}
	if err := c.get(ctx, "/api/rally-bot/routes", &raw); err != nil {
		return nil, fmt.Errorf("rally routes: %w", err)
	}
	if err := raw.err("routes unavailable"); err != nil {
		return nil, fmt.Errorf("rally routes: %w", err)
	}
	return raw.Routes, nil
}
