package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/derickschaefer/pocketdash/internal/chart"
	"github.com/derickschaefer/pocketdash/internal/dashboard"
	"github.com/derickschaefer/pocketdash/internal/metrics"
	"github.com/derickschaefer/pocketdash/internal/poll"
)

var (
	watchView        string
	watchMetricsAddr string
	watchOnce        bool
)

// brightnessStep is the change per +/- key press in the controls view.
const brightnessStep = 5

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard, redrawn on every refresh",
	Long: `Poll the backend and redraw the dashboard in place. The quick strip
refreshes on every tick (refresh_interval, default 5s); the active view's
panels refresh only while the view is shown; battery history reloads every
history_interval (default 5m).

Keys: 1-6 switch view (metrics, controls, tmux, rally, todo, terminal),
+/- change brightness in the controls view (sent after a short pause,
or at once with Enter), q or Ctrl-C quit.

With --metrics-addr (or metrics_addr in the config) refresh counts, API
latencies and the latest readings are exported for Prometheus.`,
	Example: `  pocketdash watch
  pocketdash watch --view tmux
  pocketdash watch --metrics-addr :9090
  pocketdash watch --once --view controls`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(poll.Views, watchView) {
			return fmt.Errorf("unknown view %q (valid: %s)", watchView, strings.Join(poll.Views, ", "))
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := deps.Config
		addr := watchMetricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}

		opts := dashboard.Options{
			MaxPoints:          cfg.MaxPoints,
			Step:               cfg.RefreshInterval,
			BrightnessDebounce: cfg.BrightnessDebounce,
			Excluded:           cfg.ExcludedInterfaces,
		}
		var m *metrics.Metrics
		if addr != "" {
			m = deps.EnableMetrics()
			opts.Recorder = m
		}
		if err := deps.RequireStore(); err != nil {
			slog.Warn("watch: local store unavailable; terminal session will not be restored", "error", err)
		} else {
			opts.Store = deps.Store
		}

		state := dashboard.New(deps.Client, opts)
		defer state.Close()
		defer state.Brightness.Flush()

		sc := poll.New(cfg.RefreshInterval, cfg.HistoryInterval)
		state.Register(sc)
		if m != nil {
			sc.Observer = m
			srv := metrics.NewServer(m, addr, "", slog.Default())
			if err := srv.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(sctx)
			}()
		}

		state.Start(ctx)
		// the first tick, in Run or below, loads the initial view
		if err := sc.SetView(watchView); err != nil {
			return err
		}
		if m != nil {
			m.SetActiveView(poll.Views, sc.Active())
		}

		out := cmd.OutOrStdout()
		if watchOnce {
			return drawOnce(ctx, out, state, sc)
		}

		var raw bool
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			if old, err := term.MakeRaw(fd); err == nil {
				raw = true
				defer term.Restore(fd, old)
			} else {
				slog.Warn("watch: raw mode unavailable; keys disabled", "error", err)
			}
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if raw {
			go readKeys(os.Stdin, state, sc, m, cancel)
		}

		sc.Redraw = func() {
			var frame strings.Builder
			frame.WriteString("\x1b[H\x1b[2J")
			if err := state.Draw(&frame, sc.Active(), chart.Width()); err != nil {
				slog.Warn("watch: draw failed", "error", err)
			}
			s := frame.String()
			if raw {
				s = strings.ReplaceAll(s, "\n", "\r\n")
			}
			io.WriteString(out, s)
		}

		if err := sc.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// drawOnce refreshes every panel of the active view once and draws a single
// frame. Refresh failures are logged and leave their panels empty.
func drawOnce(ctx context.Context, out io.Writer, state *dashboard.State, sc *poll.Scheduler) error {
	if err := sc.SlowTick(ctx); err != nil {
		slog.Warn("watch: slow tick failed", "error", err)
	}
	if err := sc.Tick(ctx); err != nil {
		slog.Warn("watch: tick failed", "view", sc.Active(), "error", err)
	}
	return state.Draw(out, sc.Active(), chart.Width())
}

// readKeys turns key presses into view switches, brightness input and
// quitting. It runs on its own goroutine; view changes go through
// RequestView so the poll loop stays the only writer of dashboard state.
func readKeys(in io.Reader, state *dashboard.State, sc *poll.Scheduler, m *metrics.Metrics, quit func()) {
	r := bufio.NewReader(in)
	view := sc.Active()
	for {
		b, err := r.ReadByte()
		if err != nil {
			quit()
			return
		}
		switch {
		case b == 'q' || b == 0x03:
			quit()
			return
		case b >= '1' && b <= '6':
			view = poll.Views[b-'1']
			state.Brightness.SetDragging(false)
			if err := sc.RequestView(view); err != nil {
				slog.Warn("watch: switch view", "error", err)
			}
			if m != nil {
				m.SetActiveView(poll.Views, view)
			}
		case (b == '+' || b == '=' || b == '-') && view == poll.ViewControls:
			delta := brightnessStep
			if b == '-' {
				delta = -delta
			}
			state.Brightness.SetDragging(true)
			state.Brightness.Input(state.Brightness.Value() + delta)
		case b == '\r' || b == '\n':
			state.Brightness.Flush()
			state.Brightness.SetDragging(false)
		}
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchView, "view", poll.ViewMetrics,
		"initial view: "+strings.Join(poll.Views, "|"))
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false,
		"refresh and draw a single frame, then exit")
	completeFlag(watchCmd, "view", poll.Views...)
	rootCmd.AddCommand(watchCmd)
}
