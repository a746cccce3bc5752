// Package cmd implements the pocketdash CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/app"
	"github.com/derickschaefer/pocketdash/internal/config"
	"github.com/derickschaefer/pocketdash/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	BaseURL   string
	Format    string
	Out       string
	Timeout   string
	Rate      float64
	DBPath    string
	Quiet     bool
	Verbose   bool
	Debug     bool
	LogFormat string
}

// rootCmd is the base command. Running `pocketdash` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "pocketdash",
	Short: "pocketdash — terminal client for a pocket device status dashboard",
	Long: `pocketdash talks to the dashboard backend running on a small device
(phone, SBC) and shows its battery, system metrics, network, services,
tmux sessions and IPTV account in the terminal. It can also set the
backlight, search rally relocation routes, manage the todo list and run
commands in the device's remote shell.

Quick start:
  pocketdash config init             # create a config.json with the backend URL
  pocketdash status                  # one-shot full status
  pocketdash watch                   # live dashboard, redrawn every 5s
  pocketdash history metrics         # ASCII charts of the last few minutes`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(os.Stderr)
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger. --debug selects Debug,
// --verbose Info, otherwise only warnings are shown.
func setupLogging(w io.Writer) error {
	level := slog.LevelWarn
	switch {
	case globalFlags.Debug:
		level = slog.LevelDebug
	case globalFlags.Verbose:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch globalFlags.LogFormat {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid --log-format %q (valid: text, json)", globalFlags.LogFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.BaseURL != "" {
		cfg.BaseURL = globalFlags.BaseURL
	}
	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.DBPath != "" {
		cfg.DBPath = globalFlags.DBPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.BaseURL, "base-url", "",
		"dashboard backend URL (overrides env DASH_BASE_URL and config file)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|yaml|csv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 5s, 1m)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.StringVar(&globalFlags.DBPath, "db", "",
		"local database path (overrides env DASH_DB_PATH and config file)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output and info-level logs")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and refresher timing")
	pf.StringVar(&globalFlags.LogFormat, "log-format", "text",
		"log format on stderr: text|json")

	completeFlag(rootCmd, "format", render.FormatTable, render.FormatJSON, render.FormatYAML, render.FormatCSV, render.FormatMD)
	completeFlag(rootCmd, "log-format", "text", "json")
}
