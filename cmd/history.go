package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/analyze"
	"github.com/derickschaefer/pocketdash/internal/chart"
	"github.com/derickschaefer/pocketdash/internal/dashboard"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/render"
	"github.com/derickschaefer/pocketdash/internal/series"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent metrics and battery history",
	Long: `History commands fetch the backend's rolling history and draw it as
ASCII charts. With --format other than table the underlying data is
written instead, one row per sample.`,
}

var (
	historySeries []string
	historyLast   int
	historyWidth  int
	historyHeight int
	historyStats  bool
	historyBars   bool
)

// seriesUnits are the chart units per metrics series.
var seriesUnits = map[string]string{
	dashboard.SeriesCPU:  "%",
	dashboard.SeriesMem:  "%",
	dashboard.SeriesTemp: "°C",
	dashboard.SeriesRx:   "KB/s",
	dashboard.SeriesTx:   "KB/s",
}

// ─── history metrics ──────────────────────────────────────────────────────────

var historyMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Chart cpu, memory, temperature and network rates",
	Long: `Fetch /api/metrics/history and plot each series. The first x label is
the wall-clock time of the oldest sample; later labels count seconds from
it. Gaps where the backend had no reading are left blank. --stats
summarises each series instead, with its trend per minute.`,
	Example: `  pocketdash history metrics
  pocketdash history metrics --series cpu,temperature --height 8
  pocketdash history metrics --format csv --out metrics.csv
  pocketdash history metrics --stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		ids := splitList(historySeries)
		if len(ids) == 0 {
			ids = dashboard.SeriesIDs
		}
		for _, id := range ids {
			if _, ok := seriesUnits[id]; !ok {
				return fmt.Errorf("unknown series %q (valid: %v)", id, dashboard.SeriesIDs)
			}
		}

		start := time.Now()
		h, err := deps.Client.MetricsHistory(cmd.Context())
		if err != nil {
			return err
		}
		capacity := deps.Config.MaxPoints
		if historyLast > 0 {
			h = dashboard.TailHistory(h, historyLast)
			capacity = max(capacity, historyLast)
		}
		buf := series.New(capacity, series.DefaultStep, nil)
		if err := dashboard.Replay(buf, h); err != nil {
			return err
		}

		if historyStats {
			sums := make([]analyze.Summary, len(ids))
			for i, id := range ids {
				sums[i] = analyze.Summarize(id, buf.Values(id), series.DefaultStep)
			}
			return emit(cmd.OutOrStdout(), deps, newResult(model.KindSummary, "history metrics --stats", sums, len(sums), start))
		}
		if resolveFormat(deps.Config.Format) != render.FormatTable {
			tbl := buf.Table()
			tbl.IDs = ids
			return emit(cmd.OutOrStdout(), deps, newResult(model.KindHistory, "history metrics", tbl, len(tbl.Labels), start))
		}
		if deps.Config.Quiet {
			return nil
		}

		w, closeOut, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeOut()
		width := historyWidth
		if width <= 0 {
			width = chart.Width()
		}
		for i, id := range ids {
			if i > 0 {
				fmt.Fprintln(w)
			}
			err := chart.Plot(w, id, chart.FromPoints(buf.Points(id)), chart.PlotOptions{
				Width:  width,
				Height: historyHeight,
				Unit:   seriesUnits[id],
			})
			if err != nil {
				fmt.Fprintf(w, "%s: %v\n", id, err)
			}
		}
		return nil
	},
}

// ─── history battery ──────────────────────────────────────────────────────────

var historyBatteryCmd = &cobra.Command{
	Use:   "battery",
	Short: "Chart the long-horizon battery history",
	Long: `Fetch /api/battery/history and draw a colour strip (green while
charging, red below 20%, amber otherwise) followed by a capacity plot.
--bars draws one bar per sample on a 0-100% scale instead of the plot.`,
	Example: `  pocketdash history battery
  pocketdash history battery --last 48
  pocketdash history battery --last 24 --bars
  pocketdash history battery --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		entries, err := deps.Client.BatteryHistory(cmd.Context())
		if err != nil {
			return err
		}
		if historyLast > 0 && len(entries) > historyLast {
			entries = entries[len(entries)-historyLast:]
		}
		points := series.Timeline(entries)

		if resolveFormat(deps.Config.Format) != render.FormatTable {
			return emit(cmd.OutOrStdout(), deps, newResult(model.KindBattery, "history battery", points, len(points), start))
		}
		if deps.Config.Quiet {
			return nil
		}

		w, closeOut, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeOut()
		width := historyWidth
		if width <= 0 {
			width = chart.Width()
		}
		if err := chart.Strip(w, points, width); err != nil {
			return err
		}
		fmt.Fprintln(w)
		if historyBars {
			return chart.Bar(w, "battery", chart.FromTimeline(points), chart.BarOptions{Width: width, Max: 100})
		}
		return chart.Plot(w, "battery", chart.FromTimeline(points), chart.PlotOptions{
			Width:  width,
			Height: historyHeight,
			Unit:   "%",
		})
	},
}

func init() {
	historyMetricsCmd.Flags().BoolVar(&historyStats, "stats", false,
		"print min/mean/median/p95/max and trend per series instead of charts")
	historyBatteryCmd.Flags().BoolVar(&historyBars, "bars", false,
		"draw one bar per sample instead of the capacity plot")
	historyMetricsCmd.Flags().StringSliceVar(&historySeries, "series", nil,
		"series to show: cpu,memory,temperature,rx,tx (default: all)")
	completeFlag(historyMetricsCmd, "series", dashboard.SeriesIDs...)
	for _, c := range []*cobra.Command{historyMetricsCmd, historyBatteryCmd} {
		c.Flags().IntVar(&historyLast, "last", 0, "only the newest N samples")
		c.Flags().IntVar(&historyWidth, "width", 0, "chart width in columns (default: terminal width)")
		c.Flags().IntVar(&historyHeight, "height", 10, "plot height in rows")
	}

	historyCmd.AddCommand(historyMetricsCmd, historyBatteryCmd)
	rootCmd.AddCommand(historyCmd)
}
