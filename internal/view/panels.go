package view

import (
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
)

// IPTVView is the IPTV account panel.
type IPTVView struct {
	Username    string `json:"username"`
	Connections string `json:"connections"`
	Status      string `json:"status"`
	Expires     string `json:"expires"`
	Error       string `json:"error,omitempty"`
	OK          Pill   `json:"ok"`
}

// MapIPTV maps the IPTV account status. An unsuccessful response becomes an
// ISSUE pill with the backend message inline.
func MapIPTV(s model.IPTVStatus) IPTVView {
	if !s.Success {
		msg := s.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return IPTVView{Error: msg, OK: false}
	}
	st := strings.ToLower(s.Status)
	return IPTVView{
		Username:    orPlaceholder(s.Username),
		Connections: numberText(s.ActiveCons) + " / " + numberText(s.MaxConnections),
		Status:      orPlaceholder(s.Status),
		Expires:     orPlaceholder(s.ExpDate),
		OK:          Pill(st == "active" || st == "enabled"),
	}
}

// TmuxSummary aggregates the tmux session list.
type TmuxSummary struct {
	Total    int                 `json:"total"`
	Attached int                 `json:"attached"`
	Windows  int                 `json:"windows"`
	Panes    int                 `json:"panes"`
	OK       Pill                `json:"ok"`
	Sessions []model.TmuxSession `json:"sessions"`
}

// MapTmux totals the tmux sessions. The pill is OK when any session exists.
func MapTmux(s model.TmuxStatus) TmuxSummary {
	out := TmuxSummary{Total: s.Total, Sessions: s.Sessions}
	for _, sess := range s.Sessions {
		if sess.Attached {
			out.Attached++
		}
		out.Windows += sess.Windows
		out.Panes += sess.Panes
	}
	out.OK = Pill(out.Total > 0)
	return out
}

// BrightnessText formats a brightness percentage for the KPI.
func BrightnessText(pct model.Number) string {
	return util.FormatFixed(pct.Float(), 0, "%")
}

func orPlaceholder(s string) string {
	if s == "" {
		return util.Placeholder
	}
	return s
}

func numberText(n model.Number) string {
	if !n.Valid() {
		return util.Placeholder
	}
	return strconv.FormatFloat(n.Float(), 'f', -1, 64)
}

// Logged pairs a stored snapshot's fetch time with its display model.
type Logged struct {
	FetchedAt time.Time `json:"fetched_at"`
	Display
}
