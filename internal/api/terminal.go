package api

import (
	"context"
	"fmt"

	"github.com/derickschaefer/pocketdash/internal/model"
)

// TerminalLogin exchanges the shell password for a session token.
func (c *Client) TerminalLogin(ctx context.Context, password string) (model.TerminalLogin, error) {
	body := struct {
		Password string `json:"password"`
	}{password}
	var res model.TerminalLogin
	if err := c.post(ctx, "/api/terminal/login", body, &res); err != nil {
		return model.TerminalLogin{}, fmt.Errorf("terminal login: %w", err)
	}
	if err := (envelope{Success: res.Success, Error: res.Error}).err("Login failed"); err != nil {
		return model.TerminalLogin{}, err
	}
	return res, nil
}

// TerminalExec runs command in the session identified by token. An expired
// token yields ErrUnauthorized.
func (c *Client) TerminalExec(ctx context.Context, token, command string) (model.TerminalOutput, error) {
	body := struct {
		Token   string `json:"token"`
		Command string `json:"command"`
	}{token, command}
	var out model.TerminalOutput
	if err := c.post(ctx, "/api/terminal/exec", body, &out); err != nil {
		return model.TerminalOutput{}, fmt.Errorf("terminal exec: %w", err)
	}
	return out, nil
}

// TerminalLogout ends the session identified by token.
func (c *Client) TerminalLogout(ctx context.Context, token string) error {
	body := struct {
		Token string `json:"token"`
	}{token}
	if err := c.post(ctx, "/api/terminal/logout", body, nil); err != nil {
		return fmt.Errorf("terminal logout: %w", err)
	}
	return nil
}
