// Package model defines the canonical data types used throughout pocketdash.
// These types mirror the JSON payloads of the dashboard backend and carry the
// result envelope that every command returns.
package model

import (
	"time"
)

// ─── Status Snapshot ──────────────────────────────────────────────────────────

// Battery is the battery block of a status snapshot.
type Battery struct {
	Capacity Number `json:"capacity"`
	Status   string `json:"status"`
}

// BatteryEstimate is the backend's drain/charge projection.
type BatteryEstimate struct {
	Status      string `json:"status"`
	Estimate    string `json:"estimate"`
	RatePerHour Number `json:"rate_per_hour"`
}

// Usage holds a percent together with used/total amounts in GB.
type Usage struct {
	Percent Number `json:"percent"`
	Used    Number `json:"used"`
	Total   Number `json:"total"`
}

// System is the system block of a status snapshot.
type System struct {
	Hostname    string `json:"hostname"`
	Uptime      string `json:"uptime"`
	Kernel      string `json:"kernel"`
	OS          string `json:"os"`
	CPUUsage    Number `json:"cpu_usage"`
	Memory      *Usage `json:"memory"`
	Disk        *Usage `json:"disk"`
	Temperature Number `json:"temperature"`
	Error       string `json:"error,omitempty"`
}

// InterfaceCounters are cumulative byte counters for one network interface.
type InterfaceCounters struct {
	BytesRecv Number `json:"bytes_recv"`
	BytesSent Number `json:"bytes_sent"`
}

// Network is the network block of a status snapshot.
type Network struct {
	IPAddress  string                       `json:"ip_address"`
	Interfaces map[string]InterfaceCounters `json:"interfaces"`
	Error      string                       `json:"error,omitempty"`
}

// Brightness is the backlight block of a status snapshot.
type Brightness struct {
	Current    Number `json:"current"`
	Max        Number `json:"max"`
	Percentage Number `json:"percentage"`
}

// Snapshot is one /api/status response. It is immutable once received and is
// superseded wholesale by the next poll.
type Snapshot struct {
	Battery         Battery           `json:"battery"`
	BatteryEstimate *BatteryEstimate  `json:"battery_estimate,omitempty"`
	System          System            `json:"system"`
	Network         Network           `json:"network"`
	Services        map[string]string `json:"services"`
	Brightness      *Brightness       `json:"brightness,omitempty"`
	Timestamp       string            `json:"timestamp"`
}

// QuickStats is the abbreviated /api/quick-stats response.
type QuickStats struct {
	Battery     Battery `json:"battery"`
	CPU         Number  `json:"cpu"`
	Memory      Number  `json:"memory"`
	Temperature Number  `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
}

// ─── History ──────────────────────────────────────────────────────────────────

// MetricsHistory is the /api/metrics/history backfill. All slices are
// parallel and indexed by position in Timestamps.
type MetricsHistory struct {
	Timestamps  []string `json:"timestamps"`
	CPU         []Number `json:"cpu"`
	Memory      []Number `json:"memory"`
	Temperature []Number `json:"temperature"`
	NetworkRx   []Number `json:"network_rx"`
	NetworkTx   []Number `json:"network_tx"`
}

// BatteryHistoryEntry is one element of /api/battery/history.
type BatteryHistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Capacity  Number `json:"capacity"`
	Status    string `json:"status"`
}

// ─── Panels ───────────────────────────────────────────────────────────────────

// TmuxWindow is one window inside a tmux session.
type TmuxWindow struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// TmuxSession describes one tmux session on the device.
type TmuxSession struct {
	Name       string       `json:"name"`
	Attached   bool         `json:"attached"`
	Windows    int          `json:"windows"`
	Panes      int          `json:"panes"`
	Uptime     string       `json:"uptime"`
	WindowList []TmuxWindow `json:"window_list"`
}

// TmuxStatus is the /api/tmux response.
type TmuxStatus struct {
	Total    int           `json:"total"`
	Sessions []TmuxSession `json:"sessions"`
}

// IPTVStatus is the /api/iptv response.
type IPTVStatus struct {
	Success        bool   `json:"success"`
	Username       string `json:"username"`
	ActiveCons     Number `json:"active_cons"`
	MaxConnections Number `json:"max_connections"`
	Status         string `json:"status"`
	ExpDate        string `json:"exp_date"`
	Error          string `json:"error,omitempty"`
}

// ─── Rally Routes ─────────────────────────────────────────────────────────────

// DateRange is an availability window. Dates are DD/MM/YYYY strings.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Return is one bookable destination under a route origin.
type Return struct {
	Destination    string      `json:"destination"`
	ModelName      string      `json:"model_name"`
	AvailableDates []DateRange `json:"available_dates"`
	URL            string      `json:"roadsurfer_url"`
}

// Route groups all returns that start at one origin.
type Route struct {
	Origin  string   `json:"origin"`
	Returns []Return `json:"returns"`
}

// ─── Todos ────────────────────────────────────────────────────────────────────

// TodoItem is one entry of the backend-owned todo list.
type TodoItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	DueDate     string `json:"due_date"`
	Order       int    `json:"order"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at"`
}

// TodoInput carries the editable fields of a todo for create and update.
type TodoInput struct {
	Title       string `json:"title"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

// ─── Terminal ─────────────────────────────────────────────────────────────────

// TerminalLogin is the /api/terminal/login response.
type TerminalLogin struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Cwd     string `json:"cwd"`
	Error   string `json:"error,omitempty"`
}

// TerminalOutput is the /api/terminal/exec response.
type TerminalOutput struct {
	Output string `json:"output"`
	Cwd    string `json:"cwd"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// Field is one row of a generic key/value result.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResultStats carries timing metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindStatus   = "status"
	KindQuick    = "quick"
	KindTmux     = "tmux"
	KindIPTV     = "iptv"
	KindRoutes   = "routes"
	KindOptions  = "route_options"
	KindTodos    = "todos"
	KindTodo     = "todo"
	KindTable    = "table"
	KindHistory  = "history"
	KindSnapshot = "snapshot"
	KindBattery  = "battery_history"
	KindSummary  = "summary"
)
