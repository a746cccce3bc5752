package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/app"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/util"
	"github.com/derickschaefer/pocketdash/internal/view"
)

var (
	statusStore bool
	statusSince string
	statusLast  int
	statusKeep  int
)

// newMapper builds a snapshot mapper honouring the configured interface
// exclusions.
func newMapper(deps *app.Deps) *view.Mapper {
	m := view.NewMapper()
	if deps.Config.ExcludedInterfaces != nil {
		m.Excluded = append([]string(nil), deps.Config.ExcludedInterfaces...)
	}
	return m
}

// ─── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the full device status",
	Long: `Fetch /api/status once and show battery, system metrics, network,
services and brightness. Readings the backend could not collect show "--"
and never count as over threshold.

Network rates need two samples, so a one-shot status always reports 0 KB/s;
use watch for live rates.

With --store the raw snapshot is also appended to the local status log
(see status log).`,
	Example: `  pocketdash status
  pocketdash status --format json
  pocketdash status --store --quiet`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		raw, err := deps.Client.StatusRaw(cmd.Context())
		if err != nil {
			return err
		}
		var snap model.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return fmt.Errorf("status: decoding: %w", err)
		}

		if statusStore {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			if err := deps.Store.PutStatus(raw, time.Now()); err != nil {
				return err
			}
		}

		d := newMapper(deps).Status(snap, time.Now())
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindStatus, "status", &d, 1, start))
	},
}

// ─── status log ───────────────────────────────────────────────────────────────

var statusLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List snapshots saved with status --store",
	Example: `  pocketdash status log
  pocketdash status log --since 2026-03-01 --last 20
  pocketdash status log --format csv --out snapshots.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		since, err := parseDate(statusSince, "since")
		if err != nil {
			return err
		}
		start := time.Now()
		entries, err := deps.Store.ListStatus(since, statusLast)
		if err != nil {
			return err
		}

		m := newMapper(deps)
		rows := make([]view.Logged, 0, len(entries))
		var warnings []string
		for _, e := range entries {
			snap, err := e.Snapshot()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", e.FetchedAt.Format(time.RFC3339), err))
				continue
			}
			rows = append(rows, view.Logged{
				FetchedAt: e.FetchedAt,
				Display:   view.MapStatus(snap, m.Thresholds, m.Excluded, nil, e.FetchedAt),
			})
		}
		result := newResult(model.KindSnapshot, "status log", rows, len(rows), start)
		result.Warnings = warnings
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

var statusPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest stored snapshots",
	Example: `  pocketdash status prune --keep 100`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		n, err := deps.Store.PruneStatus(statusKeep)
		if err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d snapshot(s), kept the newest %d\n", n, statusKeep)
		}
		return nil
	},
}

// ─── quick ────────────────────────────────────────────────────────────────────

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Show the always-visible summary strip",
	Long: `Fetch /api/quick-stats (battery, cpu, memory, temperature) and the disk
percentage from /api/status. The overall dot turns red when cpu > 95,
memory > 92 or temperature > 85.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		q, err := deps.Client.QuickStats(cmd.Context())
		if err != nil {
			return err
		}
		d := newMapper(deps).Quick(*q)

		result := newResult(model.KindQuick, "quick", &d, 1, start)
		snap, err := deps.Client.Status(cmd.Context())
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("disk: %v", err))
		} else {
			d.Disk = util.FormatFixed(view.DiskPercent(*snap).Float(), 0, "%")
		}
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── brightness ───────────────────────────────────────────────────────────────

var brightnessCmd = &cobra.Command{
	Use:   "brightness",
	Short: "Read or set the display backlight",
}

var brightnessGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current backlight level",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		snap, err := deps.Client.Status(cmd.Context())
		if err != nil {
			return err
		}
		var b model.Brightness
		if snap.Brightness != nil {
			b = *snap.Brightness
		} else {
			b = model.Brightness{Current: model.Missing(), Max: model.Missing(), Percentage: model.Missing()}
		}
		fields := []model.Field{
			{Name: "percentage", Value: view.BrightnessText(b.Percentage)},
			{Name: "current", Value: util.FormatFixed(b.Current.Float(), 0, "")},
			{Name: "max", Value: util.FormatFixed(b.Max.Float(), 0, "")},
		}
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTable, "brightness get", fields, len(fields), start))
	},
}

var brightnessSetCmd = &cobra.Command{
	Use:   "set <0-100>",
	Short: "Set the backlight level in percent",
	Example: `  pocketdash brightness set 40
  pocketdash brightness set 100%`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parsePercent(args[0])
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Client.SetBrightness(cmd.Context(), v); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Brightness set to %d%%\n", v)
		}
		return nil
	},
}

// ─── tmux / iptv ──────────────────────────────────────────────────────────────

var tmuxCmd = &cobra.Command{
	Use:   "tmux",
	Short: "List tmux sessions on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		st, err := deps.Client.Tmux(cmd.Context())
		if err != nil {
			return err
		}
		s := view.MapTmux(*st)
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTmux, "tmux", &s, len(s.Sessions), start))
	},
}

var iptvCmd = &cobra.Command{
	Use:   "iptv",
	Short: "Show the IPTV account status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		st, err := deps.Client.IPTV(cmd.Context())
		if err != nil {
			return err
		}
		v := view.MapIPTV(*st)
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindIPTV, "iptv", &v, 1, start))
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusStore, "store", false, "append the raw snapshot to the local status log")
	statusLogCmd.Flags().StringVar(&statusSince, "since", "", "only snapshots fetched on or after this date (YYYY-MM-DD)")
	statusLogCmd.Flags().IntVar(&statusLast, "last", 0, "only the newest N snapshots (0 = all)")
	statusPruneCmd.Flags().IntVar(&statusKeep, "keep", 100, "number of newest snapshots to keep")

	statusCmd.AddCommand(statusLogCmd, statusPruneCmd)
	brightnessCmd.AddCommand(brightnessGetCmd, brightnessSetCmd)
	rootCmd.AddCommand(statusCmd, quickCmd, brightnessCmd, tmuxCmd, iptvCmd)
}
