// Package terminal is the client side of the backend's remote shell: login,
// token persistence, command execution and command history.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/derickschaefer/pocketdash/internal/api"
	"github.com/derickschaefer/pocketdash/internal/model"
)

// State is the session lifecycle state.
type State int

const (
	LoggedOut State = iota
	Authenticating
	Active
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	}
	return "logged out"
}

// DefaultCwd is shown before the backend reports a working directory.
const DefaultCwd = "~"

// ClearCommand clears local output and never reaches the backend.
const ClearCommand = "clear"

var (
	// ErrNotLoggedIn is returned by Exec without an active session.
	ErrNotLoggedIn = errors.New("terminal: not logged in")
	// ErrSessionExpired is returned when the backend rejects the token.
	// The session is already logged out when it is returned.
	ErrSessionExpired = errors.New("terminal: session expired")
)

// Backend is the remote shell API.
type Backend interface {
	TerminalLogin(ctx context.Context, password string) (model.TerminalLogin, error)
	TerminalExec(ctx context.Context, token, command string) (model.TerminalOutput, error)
	TerminalLogout(ctx context.Context, token string) error
}

// Store persists the session token and working directory between runs.
type Store interface {
	LoadSession() (token, cwd string, err error)
	SaveSession(token, cwd string) error
	ClearToken() error
}

// Result is the outcome of one submitted line.
type Result struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Cwd     string `json:"cwd"`
	// Clear is set for the local clear command.
	Clear bool `json:"clear,omitempty"`
}

// Session drives one remote shell.
type Session struct {
	backend Backend
	store   Store

	state State
	token string
	cwd   string

	History *History
}

// NewSession creates a logged-out session. store may be nil.
func NewSession(b Backend, store Store) *Session {
	return &Session{backend: b, store: store, cwd: DefaultCwd, History: NewHistory(0)}
}

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Cwd returns the last known working directory.
func (s *Session) Cwd() string { return s.cwd }

// Prompt returns the shell prompt for the current directory.
func (s *Session) Prompt() string { return ShortCwd(s.cwd) + " $" }

// Restore loads a persisted token and validates it with an empty command.
// Any failure drops the stored token silently; it reports whether the
// session is active afterwards.
func (s *Session) Restore(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	token, cwd, err := s.store.LoadSession()
	if err != nil || token == "" {
		return false
	}
	if cwd != "" {
		s.cwd = cwd
	}
	if _, err := s.backend.TerminalExec(ctx, token, ""); err != nil {
		slog.Debug("terminal: stored token rejected", "error", err)
		s.forget()
		return false
	}
	s.token, s.state = token, Active
	return true
}

// Login authenticates with password and persists the issued token.
func (s *Session) Login(ctx context.Context, password string) error {
	s.state = Authenticating
	res, err := s.backend.TerminalLogin(ctx, password)
	if err != nil {
		s.state = LoggedOut
		return fmt.Errorf("terminal login: %w", err)
	}
	s.token, s.state = res.Token, Active
	if res.Cwd != "" {
		s.cwd = res.Cwd
	}
	s.persist()
	return nil
}

// Exec submits one input line. Blank lines do nothing. The line is added
// to history; "clear" is handled locally. An HTTP 401 logs the session out
// and returns ErrSessionExpired.
func (s *Session) Exec(ctx context.Context, line string) (Result, error) {
	cmd := strings.TrimSpace(line)
	if cmd == "" {
		return Result{}, nil
	}
	s.History.Add(cmd)
	if cmd == ClearCommand {
		return Result{Command: cmd, Cwd: s.cwd, Clear: true}, nil
	}
	if s.state != Active {
		return Result{}, ErrNotLoggedIn
	}

	out, err := s.backend.TerminalExec(ctx, s.token, cmd)
	if errors.Is(err, api.ErrUnauthorized) {
		s.Logout(ctx)
		return Result{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err != nil {
		return Result{}, fmt.Errorf("terminal exec: %w", err)
	}
	if out.Cwd != "" && out.Cwd != s.cwd {
		s.cwd = out.Cwd
		s.persist()
	}
	return Result{Command: cmd, Output: out.Output, Cwd: s.cwd}, nil
}

// Logout ends the session locally and tells the backend, ignoring its
// answer. The working directory is kept.
func (s *Session) Logout(ctx context.Context) {
	if s.token != "" {
		if err := s.backend.TerminalLogout(ctx, s.token); err != nil {
			slog.Debug("terminal: logout request failed", "error", err)
		}
	}
	s.forget()
}

func (s *Session) forget() {
	s.token, s.state = "", LoggedOut
	if s.store != nil {
		if err := s.store.ClearToken(); err != nil {
			slog.Warn("terminal: clearing stored session", "error", err)
		}
	}
}

func (s *Session) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(s.token, s.cwd); err != nil {
		slog.Warn("terminal: saving session", "error", err)
	}
}

var homePrefix = regexp.MustCompile(`^/home/[^/]+`)

// ShortCwd replaces a leading /home/<user> with ~.
func ShortCwd(cwd string) string {
	return homePrefix.ReplaceAllString(cwd, "~")
}
