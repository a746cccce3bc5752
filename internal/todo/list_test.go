package todo_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/todo"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// fakeBackend is an in-memory todo API that echoes items back the way the
// server does.
type fakeBackend struct {
	items      []model.TodoItem
	reordered  [][]string
	reorderErr error
	nextID     int
}

func (f *fakeBackend) ListTodos(context.Context) ([]model.TodoItem, error) {
	out := make([]model.TodoItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeBackend) CreateTodo(_ context.Context, in model.TodoInput) (model.TodoItem, error) {
	f.nextID++
	it := model.TodoItem{ID: "new" + string(rune('0'+f.nextID)), Title: in.Title, Description: in.Description, Order: 99}
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeBackend) UpdateTodo(_ context.Context, id string, in model.TodoInput) (model.TodoItem, error) {
	return model.TodoItem{ID: id, Title: in.Title, Notes: in.Notes, DueDate: in.DueDate}, nil
}

func (f *fakeBackend) CompleteTodo(_ context.Context, id string) (model.TodoItem, error) {
	return model.TodoItem{ID: id, Title: id, Completed: true, CompletedAt: "2026-03-01T10:00:00"}, nil
}

func (f *fakeBackend) ReopenTodo(_ context.Context, id string) (model.TodoItem, error) {
	return model.TodoItem{ID: id, Title: id}, nil
}

func (f *fakeBackend) DeleteTodo(context.Context, string) error { return nil }

func (f *fakeBackend) ReorderTodos(_ context.Context, ids []string) error {
	f.reordered = append(f.reordered, ids)
	return f.reorderErr
}

func loaded(t *testing.T, b *fakeBackend) *todo.List {
	t.Helper()
	l := todo.New(b)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return l
}

func abc() *fakeBackend {
	return &fakeBackend{items: []model.TodoItem{
		{ID: "B", Title: "b", Order: 1},
		{ID: "C", Title: "c", Order: 2},
		{ID: "A", Title: "a", Order: 0},
		{ID: "X", Title: "x", Completed: true, CompletedAt: "2026-01-01T00:00:00"},
	}}
}

func ids(items []model.TodoItem) string {
	s := make([]string, len(items))
	for i, it := range items {
		s[i] = it.ID
	}
	return strings.Join(s, ",")
}

// ─── Views ────────────────────────────────────────────────────────────────────

func TestOpenSortedByOrder(t *testing.T) {
	l := loaded(t, abc())
	if got := ids(l.Open()); got != "A,B,C" {
		t.Errorf("open order: got %s", got)
	}
}

func TestArchivedNewestFirst(t *testing.T) {
	b := abc()
	b.items = append(b.items,
		model.TodoItem{ID: "Y", Completed: true, CompletedAt: "2026-02-01T00:00:00"},
		model.TodoItem{ID: "Z", Completed: true, CompletedAt: ""},
	)
	l := loaded(t, b)
	if got := ids(l.Archived()); got != "Y,X,Z" {
		t.Errorf("archived order: got %s", got)
	}
}

// ─── Move ─────────────────────────────────────────────────────────────────────

func TestMoveToFront(t *testing.T) {
	b := abc()
	l := loaded(t, b)
	submitted, err := l.Move(context.Background(), "C", "A")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if strings.Join(submitted, ",") != "C,A,B" {
		t.Errorf("submitted ids: got %v", submitted)
	}
	want := map[string]int{"A": 1, "B": 2, "C": 0}
	for id, order := range want {
		it, _ := l.Get(id)
		if it.Order != order {
			t.Errorf("%s order: expected %d, got %d", id, order, it.Order)
		}
	}
	if len(b.reordered) != 1 {
		t.Errorf("expected one reorder submit, got %d", len(b.reordered))
	}
}

func TestMoveDown(t *testing.T) {
	l := loaded(t, abc())
	submitted, _ := l.Move(context.Background(), "A", "C")
	if strings.Join(submitted, ",") != "B,C,A" {
		t.Errorf("submitted ids: got %v", submitted)
	}
}

func TestMoveNoops(t *testing.T) {
	b := abc()
	l := loaded(t, b)
	ctx := context.Background()
	l.Move(ctx, "A", "A")
	l.Move(ctx, "A", "missing")
	l.Move(ctx, "X", "A")
	if len(b.reordered) != 0 {
		t.Errorf("no-op moves should not submit, got %v", b.reordered)
	}
}

func TestMoveKeepsLocalOrderOnSubmitFailure(t *testing.T) {
	b := abc()
	b.reorderErr = errors.New("offline")
	l := loaded(t, b)
	if _, err := l.Move(context.Background(), "C", "A"); err == nil {
		t.Fatal("expected submit error")
	}
	if got := ids(l.Open()); got != "C,A,B" {
		t.Errorf("local order should stay applied, got %s", got)
	}
}

// ─── Mutations ────────────────────────────────────────────────────────────────

func TestCreateRequiresTitle(t *testing.T) {
	l := loaded(t, abc())
	if _, err := l.Create(context.Background(), model.TodoInput{Title: "   "}); !errors.Is(err, todo.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	it, err := l.Create(context.Background(), model.TodoInput{Title: "  milk "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if it.Title != "milk" {
		t.Errorf("title should be trimmed, got %q", it.Title)
	}
	if _, ok := l.Get(it.ID); !ok {
		t.Error("created item should be cached")
	}
}

func TestCompleteReplacesWithServerItem(t *testing.T) {
	l := loaded(t, abc())
	ctx := context.Background()
	if _, err := l.Complete(ctx, "B"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := ids(l.Open()); got != "A,C" {
		t.Errorf("open after complete: %s", got)
	}
	if got := ids(l.Archived()); got != "B,X" {
		t.Errorf("archived after complete: %s", got)
	}
	l.Reopen(ctx, "B")
	if it, _ := l.Get("B"); it.Completed {
		t.Error("reopen should replace with open item")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	l := loaded(t, abc())
	ctx := context.Background()
	it, err := l.Update(ctx, "A", model.TodoInput{Title: "alpha", Notes: "n"})
	if err != nil || it.Title != "alpha" {
		t.Fatalf("Update: %+v %v", it, err)
	}
	if got, _ := l.Get("A"); got.Notes != "n" {
		t.Errorf("cached item not replaced: %+v", got)
	}
	if err := l.Delete(ctx, "A"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := l.Get("A"); ok {
		t.Error("deleted item still cached")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := todo.Preview(long)
	if got != strings.Repeat("x", 90)+"…" {
		t.Errorf("preview: %q", got)
	}
	if todo.Preview("short") != "short" {
		t.Error("short descriptions should be untouched")
	}
}
