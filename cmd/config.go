package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/pocketdash/internal/config"
	"github.com/derickschaefer/pocketdash/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pocketdash configuration",
	Long: `Read and write pocketdash configuration stored in config.json (or
config.yaml) in the current directory.`,
}

var configInitYAML bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config file in the current directory",
	Example: `  pocketdash config init
  pocketdash config init --yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if configInitYAML {
			path = config.DefaultYAMLConfigFile
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintf(out, "  Set base_url to your device's backend, e.g. http://192.168.1.20:5020\n")
		fmt.Fprintf(out, "  The shell password is read from %s, never from this file.\n", config.EnvTermPassword)
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		cfg := deps.Config

		pw := cfg.RedactedPassword()
		if configGetShowSecrets {
			pw = cfg.TermPassword
		}
		if pw == "" {
			pw = "(not set)"
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		db := cfg.DBPath
		if db == "" {
			db = "(not set)"
		}

		fields := []model.Field{
			{Name: "base_url", Value: cfg.BaseURL},
			{Name: "default_format", Value: cfg.Format},
			{Name: "timeout", Value: cfg.Timeout.String()},
			{Name: "rate", Value: strconv.FormatFloat(cfg.Rate, 'f', -1, 64) + " req/s"},
			{Name: "db_path", Value: db},
			{Name: "refresh_interval", Value: cfg.RefreshInterval.String()},
			{Name: "history_interval", Value: cfg.HistoryInterval.String()},
			{Name: "brightness_debounce", Value: cfg.BrightnessDebounce.String()},
			{Name: "max_points", Value: strconv.Itoa(cfg.MaxPoints)},
			{Name: "excluded_interfaces", Value: strings.Join(cfg.ExcludedInterfaces, ",")},
			{Name: "metrics_addr", Value: orNotSet(cfg.MetricsAddr)},
			{Name: "term_password", Value: pw},
			{Name: "config_file", Value: src},
		}
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTable, "config get", fields, len(fields), start))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Long: `Set one key in the config file found in the current directory, creating
config.json from the template when none exists.

Keys: ` + strings.Join(config.Keys, ", "),
	Example: `  pocketdash config set base_url http://192.168.1.20:5020
  pocketdash config set refresh_interval 2s
  pocketdash config set excluded_interfaces usb0,rmnet_ipa0,wlan1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		existing, path, err := config.FindFile()
		var f config.File
		switch {
		case err == nil:
			f = *existing
		case errors.Is(err, os.ErrNotExist):
			path = config.DefaultConfigFile
			f = config.Template()
		default:
			return err
		}

		if err := config.Set(&f, args[0], args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", strings.ToLower(args[0]), path)
		}
		return nil
	},
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitYAML, "yaml", false, "write config.yaml instead of config.json")
	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show the shell password in plain text")
}
