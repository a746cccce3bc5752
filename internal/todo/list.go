// Package todo keeps the client-side copy of the backend todo list.
//
// Every mutation is sent to the backend and the cached item is replaced by
// the server's returned item. Reordering is the exception: the new order is
// applied locally first and the full id list submitted afterwards; a failed
// submit is reported but the local order is kept.
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
)

// DescriptionPreview is the rune length of the list description preview.
const DescriptionPreview = 90

// ErrEmptyTitle is returned when creating or updating an item without a title.
var ErrEmptyTitle = errors.New("todo: title is required")

// Backend is the todo API surface.
type Backend interface {
	ListTodos(ctx context.Context) ([]model.TodoItem, error)
	CreateTodo(ctx context.Context, in model.TodoInput) (model.TodoItem, error)
	UpdateTodo(ctx context.Context, id string, in model.TodoInput) (model.TodoItem, error)
	CompleteTodo(ctx context.Context, id string) (model.TodoItem, error)
	ReopenTodo(ctx context.Context, id string) (model.TodoItem, error)
	DeleteTodo(ctx context.Context, id string) error
	ReorderTodos(ctx context.Context, ids []string) error
}

// List is the cached todo collection.
type List struct {
	backend Backend
	items   []model.TodoItem
}

// New creates an empty list backed by b.
func New(b Backend) *List {
	return &List{backend: b}
}

// Load replaces the cache with the backend's list.
func (l *List) Load(ctx context.Context) error {
	items, err := l.backend.ListTodos(ctx)
	if err != nil {
		return fmt.Errorf("loading todos: %w", err)
	}
	l.items = items
	return nil
}

// Items returns a copy of the cache in backend order.
func (l *List) Items() []model.TodoItem {
	out := make([]model.TodoItem, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the cached item with id.
func (l *List) Get(id string) (model.TodoItem, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return model.TodoItem{}, false
}

// Open returns the open items ordered by their order field (stable).
func (l *List) Open() []model.TodoItem {
	var out []model.TodoItem
	for _, it := range l.items {
		if !it.Completed {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Archived returns the completed items, most recently completed first.
// Items with unparseable completion times sort last.
func (l *List) Archived() []model.TodoItem {
	var out []model.TodoItem
	for _, it := range l.items {
		if it.Completed {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, erri := util.ParseTimestamp(out[i].CompletedAt)
		tj, errj := util.ParseTimestamp(out[j].CompletedAt)
		switch {
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return ti.After(tj)
	})
	return out
}

// Create adds a new item. The title is trimmed and must not be empty.
func (l *List) Create(ctx context.Context, in model.TodoInput) (model.TodoItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.TodoItem{}, ErrEmptyTitle
	}
	it, err := l.backend.CreateTodo(ctx, in)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("creating todo: %w", err)
	}
	l.items = append(l.items, it)
	return it, nil
}

// Update replaces the editable fields of item id.
func (l *List) Update(ctx context.Context, id string, in model.TodoInput) (model.TodoItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.TodoItem{}, ErrEmptyTitle
	}
	it, err := l.backend.UpdateTodo(ctx, id, in)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("updating todo %s: %w", id, err)
	}
	l.replace(id, it)
	return it, nil
}

// Complete marks item id done.
func (l *List) Complete(ctx context.Context, id string) (model.TodoItem, error) {
	it, err := l.backend.CompleteTodo(ctx, id)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("completing todo %s: %w", id, err)
	}
	l.replace(id, it)
	return it, nil
}

// Reopen moves item id back to the open list.
func (l *List) Reopen(ctx context.Context, id string) (model.TodoItem, error) {
	it, err := l.backend.ReopenTodo(ctx, id)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("reopening todo %s: %w", id, err)
	}
	l.replace(id, it)
	return it, nil
}

// Delete removes item id.
func (l *List) Delete(ctx context.Context, id string) error {
	if err := l.backend.DeleteTodo(ctx, id); err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	if i := l.index(id); i >= 0 {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}
	return nil
}

// Reorder submits an explicit open-item order. Positions are applied to
// the cache before submitting.
func (l *List) Reorder(ctx context.Context, ids []string) error {
	for pos, id := range ids {
		if i := l.index(id); i >= 0 {
			l.items[i].Order = pos
		}
	}
	if err := l.backend.ReorderTodos(ctx, ids); err != nil {
		slog.Warn("todo: reorder submit failed; keeping local order", "error", err)
		return fmt.Errorf("reordering todos: %w", err)
	}
	return nil
}

// Move drops open item srcID onto the position of open item dstID: the
// source is removed from the open view and reinserted at the destination's
// index, every open item's order becomes its new index, and the full id
// list is submitted. It returns the submitted ids. Moving an item onto
// itself or naming an unknown or completed item is a no-op.
func (l *List) Move(ctx context.Context, srcID, dstID string) ([]string, error) {
	if srcID == "" || srcID == dstID {
		return nil, nil
	}
	open := l.Open()
	src, dst := -1, -1
	for i, it := range open {
		switch it.ID {
		case srcID:
			src = i
		case dstID:
			dst = i
		}
	}
	if src < 0 || dst < 0 {
		return nil, nil
	}

	moved := open[src]
	open = append(open[:src], open[src+1:]...)
	open = append(open[:dst], append([]model.TodoItem{moved}, open[dst:]...)...)

	ids := make([]string, len(open))
	for i, it := range open {
		ids[i] = it.ID
	}
	return ids, l.Reorder(ctx, ids)
}

func (l *List) index(id string) int {
	for i, it := range l.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) replace(id string, it model.TodoItem) {
	if i := l.index(id); i >= 0 {
		l.items[i] = it
		return
	}
	l.items = append(l.items, it)
}

// ─── Display helpers ──────────────────────────────────────────────────────────

// Preview shortens a description for list display.
func Preview(desc string) string {
	return util.Truncate(desc, DescriptionPreview)
}

// CompletedTime parses an item's completion timestamp.
func CompletedTime(it model.TodoItem) (time.Time, bool) {
	t, err := util.ParseTimestamp(it.CompletedAt)
	return t, err == nil
}
