package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/rally"
)

var rallyCmd = &cobra.Command{
	Use:   "rally",
	Short: "Search one-way camper relocation routes",
	Long: `Rally commands fetch the relocation offers once and filter them locally.
Origins, destinations and models accept several values, comma-separated
or by repeating the flag; models match case-insensitively. --from/--to
keep only offers whose availability overlaps the window; either end may
be left open.`,
}

var (
	rallyOrigins []string
	rallyDests   []string
	rallyModels  []string
	rallyFrom    string
	rallyTo      string
	rallyMonth   string
)

// rallyWindow runs the --from/--to flags through a calendar the way the
// date picker does: from is the first click, to the second, then apply.
func rallyWindow(now time.Time) (*rally.Calendar, error) {
	cal := rally.NewCalendar(now)
	from, err := parseDate(rallyFrom, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseDate(rallyTo, "to")
	if err != nil {
		return nil, err
	}
	if from.IsZero() && !to.IsZero() {
		return nil, fmt.Errorf("--to needs --from")
	}
	if !from.IsZero() {
		cal.Click(from)
		if !to.IsZero() {
			cal.Click(to)
		}
	}
	cal.Apply()
	return cal, nil
}

// ─── rally routes ─────────────────────────────────────────────────────────────

var rallyRoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List routes grouped by origin and destination",
	Example: `  pocketdash rally routes
  pocketdash rally routes --origin Munich,Berlin --model "ford nugget"
  pocketdash rally routes --from 2026-06-01 --to 2026-06-14 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		cal, err := rallyWindow(time.Now())
		if err != nil {
			return err
		}
		start := time.Now()
		eng := rally.NewEngine(deps.Client)
		eng.Filters.Origins = splitList(rallyOrigins)
		eng.Filters.Destinations = splitList(rallyDests)
		eng.Filters.Models = splitList(rallyModels)
		eng.Filters.Start, eng.Filters.End = cal.Applied()

		res, err := eng.Load(cmd.Context())
		if err != nil {
			return err
		}
		result := newResult(model.KindRoutes, "rally routes", &res, res.Counts.Returns, start)
		if eng.Filters.Active() {
			result.Warnings = append(result.Warnings, "filters: "+filterSummary(eng.Filters, cal))
		}
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// filterSummary describes the active filters the way the selector labels do.
func filterSummary(f rally.Filters, cal *rally.Calendar) string {
	return strings.Join([]string{
		"origin " + rally.SelectionLabel(f.Origins, "any"),
		"destination " + rally.SelectionLabel(f.Destinations, "any"),
		"model " + rally.SelectionLabel(f.Models, "any"),
		cal.Label(),
	}, ", ")
}

// ─── rally options ────────────────────────────────────────────────────────────

var rallyOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the selectable origins, destinations and models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		eng := rally.NewEngine(deps.Client)
		if _, err := eng.Load(cmd.Context()); err != nil {
			return err
		}
		opts := eng.Options()
		items := len(opts.Origins) + len(opts.Destinations) + len(opts.Models)
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindOptions, "rally options", opts, items, start))
	},
}

// ─── rally calendar ───────────────────────────────────────────────────────────

var rallyCalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Print a month grid with the --from/--to window marked",
	Example: `  pocketdash rally calendar
  pocketdash rally calendar --month 2026-06 --from 2026-06-10 --to 2026-06-14`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		cal, err := rallyWindow(now)
		if err != nil {
			return err
		}
		if rallyMonth != "" {
			m, err := time.Parse("2006-01", rallyMonth)
			if err != nil {
				return fmt.Errorf("--month: invalid month %q, expected YYYY-MM", rallyMonth)
			}
			cal.Year, cal.Month = m.Year(), m.Month()
		} else if s, _ := cal.Pending(); !s.IsZero() {
			cal.Year, cal.Month = s.Year(), s.Month()
		}
		printCalendar(cmd.OutOrStdout(), cal, now)
		return nil
	},
}

// printCalendar draws the viewed month, Monday first. Past days are dimmed
// and the pending selection is highlighted.
func printCalendar(w io.Writer, cal *rally.Calendar, today time.Time) {
	title := time.Date(cal.Year, cal.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	fmt.Fprintf(w, "%*s\n", 10+len(title)/2, title)
	fmt.Fprintln(w, "Mo Tu We Th Fr Sa Su")

	edge := color.New(color.FgBlack, color.BgGreen)
	inner := color.New(color.FgGreen)
	past := color.New(color.Faint)
	for _, week := range cal.Grid(today) {
		cells := make([]string, len(week))
		for i, c := range week {
			if c.Blank {
				cells[i] = "  "
				continue
			}
			s := fmt.Sprintf("%2d", c.Day)
			switch {
			case c.Start || c.End:
				s = edge.Sprint(s)
			case c.InRange:
				s = inner.Sprint(s)
			case c.Past:
				s = past.Sprint(s)
			}
			cells[i] = s
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
	if sel := cal.SelectionText(); sel != "" {
		fmt.Fprintln(w, sel)
	}
}

func init() {
	rallyRoutesCmd.Flags().StringSliceVar(&rallyOrigins, "origin", nil, "origin cities")
	rallyRoutesCmd.Flags().StringSliceVar(&rallyDests, "dest", nil, "destination cities")
	rallyRoutesCmd.Flags().StringSliceVar(&rallyModels, "model", nil, "vehicle models")
	for _, c := range []*cobra.Command{rallyRoutesCmd, rallyCalendarCmd} {
		c.Flags().StringVar(&rallyFrom, "from", "", "window start (YYYY-MM-DD or DD/MM/YYYY)")
		c.Flags().StringVar(&rallyTo, "to", "", "window end (YYYY-MM-DD or DD/MM/YYYY)")
	}
	rallyCalendarCmd.Flags().StringVar(&rallyMonth, "month", "", "month to show (YYYY-MM, default: window start or current month)")

	rallyCmd.AddCommand(rallyRoutesCmd, rallyOptionsCmd, rallyCalendarCmd)
	rootCmd.AddCommand(rallyCmd)
}
