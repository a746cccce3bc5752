package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/derickschaefer/pocketdash/internal/model"
)

func todoPath(id string, action ...string) string {
	p := "/api/todos/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// ListTodos fetches every todo item.
func (c *Client) ListTodos(ctx context.Context) ([]model.TodoItem, error) {
	var items []model.TodoItem
	if err := c.get(ctx, "/api/todos", &items); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return items, nil
}

// CreateTodo creates an item and returns the stored copy.
func (c *Client) CreateTodo(ctx context.Context, in model.TodoInput) (model.TodoItem, error) {
	var it model.TodoItem
	if err := c.post(ctx, "/api/todos", in, &it); err != nil {
		return model.TodoItem{}, fmt.Errorf("create todo: %w", err)
	}
	return it, nil
}

// UpdateTodo replaces the editable fields of item id.
func (c *Client) UpdateTodo(ctx context.Context, id string, in model.TodoInput) (model.TodoItem, error) {
	var it model.TodoItem
	if err := c.do(ctx, http.MethodPut, todoPath(id), in, &it); err != nil {
		return model.TodoItem{}, fmt.Errorf("update todo %s: %w", id, err)
	}
	return it, nil
}

// CompleteTodo marks item id done.
func (c *Client) CompleteTodo(ctx context.Context, id string) (model.TodoItem, error) {
	var it model.TodoItem
	if err := c.post(ctx, todoPath(id, "complete"), nil, &it); err != nil {
		return model.TodoItem{}, fmt.Errorf("complete todo %s: %w", id, err)
	}
	return it, nil
}

// ReopenTodo moves item id back to the open list.
func (c *Client) ReopenTodo(ctx context.Context, id string) (model.TodoItem, error) {
	var it model.TodoItem
	if err := c.post(ctx, todoPath(id, "reopen"), nil, &it); err != nil {
		return model.TodoItem{}, fmt.Errorf("reopen todo %s: %w", id, err)
	}
	return it, nil
}

// DeleteTodo removes item id.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, todoPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	return nil
}

// ReorderTodos submits the open items' ids in their new order.
func (c *Client) ReorderTodos(ctx context.Context, ids []string) error {
	body := struct {
		Order []string `json:"order"`
	}{Order: ids}
	if err := c.post(ctx, "/api/todos/reorder", body, nil); err != nil {
		return fmt.Errorf("reorder todos: %w", err)
	}
	return nil
}
