package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/app"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/todo"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage the device's todo list",
	Long: `The todo list lives on the backend. Open items are listed in their
manual order; completed items move to the archive, newest first.`,
}

var (
	todoArchived bool
	todoTitle    string
	todoDue      string
	todoDesc     string
	todoNotes    string
)

// loadTodos builds a todo list and fills it from the backend.
func loadTodos(cmd *cobra.Command) (*app.Deps, *todo.List, error) {
	deps, err := buildDeps()
	if err != nil {
		return nil, nil, err
	}
	list := todo.New(deps.Client)
	if err := list.Load(cmd.Context()); err != nil {
		return nil, nil, err
	}
	return deps, list, nil
}

// validDue accepts "" or a YYYY-MM-DD date.
func validDue(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("--due: invalid date %q, expected YYYY-MM-DD", s)
	}
	return nil
}

// emitTodo prints one item after a mutation.
func emitTodo(cmd *cobra.Command, deps *app.Deps, command string, it model.TodoItem, start time.Time) error {
	return emit(cmd.OutOrStdout(), deps, newResult(model.KindTodo, command, it, 1, start))
}

// ─── todo list ────────────────────────────────────────────────────────────────

var todoListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open items (or the archive with --archived)",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, list, err := loadTodos(cmd)
		if err != nil {
			return err
		}
		items, command := list.Open(), "todo list"
		if todoArchived {
			items, command = list.Archived(), "todo list --archived"
		}
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTodos, command, items, len(items), start))
	},
}

// ─── todo add / edit ──────────────────────────────────────────────────────────

var todoAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create an item",
	Example: `  pocketdash todo add "renew IPTV" --due 2026-04-01
  pocketdash todo add "backup phone" --desc "photos and signal" --notes "use the usb-c ssd"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validDue(todoDue); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		it, err := todo.New(deps.Client).Create(cmd.Context(), model.TodoInput{
			Title:       args[0],
			DueDate:     todoDue,
			Description: todoDesc,
			Notes:       todoNotes,
		})
		if err != nil {
			return err
		}
		return emitTodo(cmd, deps, "todo add", it, start)
	},
}

var todoEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change an item's title, due date, description or notes",
	Long: `Fields not given keep their current value. An update always sends the
full set of editable fields. Pass --due "" to clear the due date.`,
	Example: `  pocketdash todo edit 3f2a --due 2026-04-15
  pocketdash todo edit 3f2a --title "renew IPTV (yearly)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validDue(todoDue); err != nil {
			return err
		}
		start := time.Now()
		deps, list, err := loadTodos(cmd)
		if err != nil {
			return err
		}
		cur, ok := list.Get(args[0])
		if !ok {
			return fmt.Errorf("todo %q not found", args[0])
		}
		in := model.TodoInput{Title: cur.Title, DueDate: cur.DueDate, Description: cur.Description, Notes: cur.Notes}
		f := cmd.Flags()
		if f.Changed("title") {
			in.Title = todoTitle
		}
		if f.Changed("due") {
			in.DueDate = todoDue
		}
		if f.Changed("desc") {
			in.Description = todoDesc
		}
		if f.Changed("notes") {
			in.Notes = todoNotes
		}
		it, err := list.Update(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return emitTodo(cmd, deps, "todo edit", it, start)
	},
}

// ─── todo done / reopen / rm ──────────────────────────────────────────────────

var todoDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark an item completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		it, err := todo.New(deps.Client).Complete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emitTodo(cmd, deps, "todo done", it, start)
	},
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Move a completed item back to the open list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		it, err := todo.New(deps.Client).Reopen(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return emitTodo(cmd, deps, "todo reopen", it, start)
	},
}

var todoRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete an item",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := todo.New(deps.Client).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted todo %s\n", args[0])
		}
		return nil
	},
}

// ─── todo move ────────────────────────────────────────────────────────────────

var todoMoveCmd = &cobra.Command{
	Use:   "move <id> <onto-id>",
	Short: "Move an open item to another item's position",
	Long: `Drop the first item onto the position of the second, shifting the
items in between, then submit the new order of the whole open list.`,
	Example: `  pocketdash todo move c7 a1`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, list, err := loadTodos(cmd)
		if err != nil {
			return err
		}
		for _, id := range args {
			it, ok := list.Get(id)
			if !ok {
				return fmt.Errorf("todo %q not found", id)
			}
			if it.Completed {
				return fmt.Errorf("todo %q is completed; only open items can be moved", id)
			}
		}
		if _, err := list.Move(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		items := list.Open()
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTodos, "todo move", items, len(items), start))
	},
}

func init() {
	todoListCmd.Flags().BoolVar(&todoArchived, "archived", false, "list completed items instead")
	for _, c := range []*cobra.Command{todoAddCmd, todoEditCmd} {
		c.Flags().StringVar(&todoDue, "due", "", "due date (YYYY-MM-DD)")
		c.Flags().StringVar(&todoDesc, "desc", "", "description")
		c.Flags().StringVar(&todoNotes, "notes", "", "notes")
	}
	todoEditCmd.Flags().StringVar(&todoTitle, "title", "", "new title")

	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoEditCmd, todoDoneCmd, todoReopenCmd, todoRmCmd, todoMoveCmd)
	rootCmd.AddCommand(todoCmd)
}
