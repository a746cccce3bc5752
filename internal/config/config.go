// Package config handles loading and resolving pocketdash configuration.
// Resolution order (later layers win):
//  1. Built-in defaults
//  2. config.json / config.yaml in the current working directory
//  3. .env in the current working directory (never overrides real env vars)
//  4. Environment variables DASH_BASE_URL, DASH_DB_PATH, DASH_TERM_PASSWORD
//  5. CLI flags, applied by the caller after Load
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile         = "config.json"
	DefaultYAMLConfigFile     = "config.yaml"
	DefaultEnvFile            = ".env"
	DefaultFormat             = "table"
	DefaultBaseURL            = "http://localhost:5020"
	DefaultTimeout            = 10 * time.Second
	DefaultRate               = 5.0
	DefaultRefreshInterval    = 5 * time.Second
	DefaultHistoryInterval    = 5 * time.Minute
	DefaultBrightnessDebounce = 450 * time.Millisecond
	DefaultMaxPoints          = 60
	EnvBaseURL                = "DASH_BASE_URL"
	EnvDBPath                 = "DASH_DB_PATH"
	EnvTermPassword           = "DASH_TERM_PASSWORD"
)

// DefaultExcludedInterfaces are left out of interface tables and traffic totals.
var DefaultExcludedInterfaces = []string{"usb0", "rmnet_ipa0"}

// ValidFormats lists the accepted values of default_format and --format.
var ValidFormats = []string{"table", "json", "yaml", "csv", "md"}

// File is the on-disk representation of config.json or config.yaml.
type File struct {
	BaseURL            string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultFormat      string   `json:"default_format,omitempty" yaml:"default_format,omitempty"`
	Timeout            string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Rate               float64  `json:"rate,omitempty" yaml:"rate,omitempty"`
	DBPath             string   `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RefreshInterval    string   `json:"refresh_interval,omitempty" yaml:"refresh_interval,omitempty"`
	HistoryInterval    string   `json:"history_interval,omitempty" yaml:"history_interval,omitempty"`
	BrightnessDebounce string   `json:"brightness_debounce,omitempty" yaml:"brightness_debounce,omitempty"`
	MaxPoints          int      `json:"max_points,omitempty" yaml:"max_points,omitempty"`
	ExcludedInterfaces []string `json:"excluded_interfaces,omitempty" yaml:"excluded_interfaces,omitempty"`
	MetricsAddr        string   `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL            string
	Format             string
	Timeout            time.Duration
	Rate               float64
	DBPath             string
	RefreshInterval    time.Duration
	HistoryInterval    time.Duration
	BrightnessDebounce time.Duration
	MaxPoints          int
	ExcludedInterfaces []string
	MetricsAddr        string
	TermPassword       string
	ConfigPath         string // path of the config file that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Defaults returns a Config with every built-in default applied.
func Defaults() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		Format:             DefaultFormat,
		Timeout:            DefaultTimeout,
		Rate:               DefaultRate,
		RefreshInterval:    DefaultRefreshInterval,
		HistoryInterval:    DefaultHistoryInterval,
		BrightnessDebounce: DefaultBrightnessDebounce,
		MaxPoints:          DefaultMaxPoints,
		ExcludedInterfaces: append([]string(nil), DefaultExcludedInterfaces...),
	}
}

// Load resolves configuration from defaults, the config file, .env and the
// environment. A malformed config file is an error; a missing one is not.
func Load() (*Config, error) {
	cfg := Defaults()

	// Layer 1: config file
	f, path, err := FindFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: .env, which only fills variables not already set
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", DefaultEnvFile, err)
	}

	// Layer 3: environment
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvTermPassword); v != "" {
		cfg.TermPassword = v
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".pocketdash", "pocketdash.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if any resolved value is unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf(
			"invalid base_url %q.\n\n"+
				"Set it one of these ways:\n"+
				"  1. CLI flag:        pocketdash --base-url http://phone:5020 ...\n"+
				"  2. Environment:     export %s=http://phone:5020\n"+
				"  3. config file:     {\"base_url\": \"http://phone:5020\"}",
			c.BaseURL, EnvBaseURL,
		)
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("invalid format %q (valid: %s)", c.Format, strings.Join(ValidFormats, ", "))
	}
	if c.Timeout <= 0 || c.RefreshInterval <= 0 || c.HistoryInterval <= 0 {
		return errors.New("timeout, refresh_interval and history_interval must be positive")
	}
	if c.MaxPoints < 2 {
		return fmt.Errorf("max_points must be at least 2, got %d", c.MaxPoints)
	}
	return nil
}

// RedactedPassword returns the terminal password masked for display.
func (c *Config) RedactedPassword() string {
	if c.TermPassword == "" {
		return ""
	}
	return "****"
}

func validFormat(f string) bool {
	for _, v := range ValidFormats {
		if v == f {
			return true
		}
	}
	return false
}

// ─── Files ────────────────────────────────────────────────────────────────────

// FindFile reads config.json, falling back to config.yaml, from the current
// working directory. It returns an error wrapping os.ErrNotExist when neither
// exists.
func FindFile() (*File, string, error) {
	for _, name := range []string{DefaultConfigFile, DefaultYAMLConfigFile, "config.yml"} {
		path, err := filepath.Abs(name)
		if err != nil {
			return nil, "", err
		}
		f, err := ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("no config file in working directory: %w", os.ErrNotExist)
}

// ReadFile parses a config file, choosing YAML or JSON by extension.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if isYAML(path) {
		err = yaml.Unmarshal(data, &f)
	} else {
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

// WriteFile serialises a File to the given path, as YAML when the extension
// says so and indented JSON otherwise.
func WriteFile(path string, f File) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(f)
	} else {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty or unparseable.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	setDuration(&cfg.Timeout, f.Timeout)
	setDuration(&cfg.RefreshInterval, f.RefreshInterval)
	setDuration(&cfg.HistoryInterval, f.HistoryInterval)
	setDuration(&cfg.BrightnessDebounce, f.BrightnessDebounce)
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.MaxPoints > 0 {
		cfg.MaxPoints = f.MaxPoints
	}
	if f.ExcludedInterfaces != nil {
		cfg.ExcludedInterfaces = f.ExcludedInterfaces
	}
	if f.MetricsAddr != "" {
		cfg.MetricsAddr = f.MetricsAddr
	}
}

func setDuration(dst *time.Duration, s string) {
	if s == "" {
		return
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		*dst = d
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config file via `pocketdash config init`.
func Template() File {
	return File{
		BaseURL:            DefaultBaseURL,
		DefaultFormat:      DefaultFormat,
		Timeout:            DefaultTimeout.String(),
		Rate:               DefaultRate,
		RefreshInterval:    DefaultRefreshInterval.String(),
		HistoryInterval:    DefaultHistoryInterval.String(),
		BrightnessDebounce: DefaultBrightnessDebounce.String(),
		MaxPoints:          DefaultMaxPoints,
		ExcludedInterfaces: append([]string(nil), DefaultExcludedInterfaces...),
	}
}

// ─── Set ──────────────────────────────────────────────────────────────────────

// Keys lists the keys accepted by Set.
var Keys = []string{
	"base_url", "default_format", "timeout", "rate", "db_path",
	"refresh_interval", "history_interval", "brightness_debounce",
	"max_points", "excluded_interfaces", "metrics_addr",
}

// Set assigns one key of f from its string form.
// excluded_interfaces takes a comma-separated list.
func Set(f *File, key, val string) error {
	switch strings.ToLower(key) {
	case "base_url":
		f.BaseURL = val
	case "default_format", "format":
		if !validFormat(val) {
			return fmt.Errorf("invalid format %q (valid: %s)", val, strings.Join(ValidFormats, ", "))
		}
		f.DefaultFormat = val
	case "timeout":
		return setDurationKey(&f.Timeout, key, val)
	case "refresh_interval":
		return setDurationKey(&f.RefreshInterval, key, val)
	case "history_interval":
		return setDurationKey(&f.HistoryInterval, key, val)
	case "brightness_debounce":
		return setDurationKey(&f.BrightnessDebounce, key, val)
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "max_points":
		n, err := strconv.Atoi(val)
		if err != nil || n < 2 {
			return fmt.Errorf("max_points must be an integer >= 2")
		}
		f.MaxPoints = n
	case "excluded_interfaces":
		f.ExcludedInterfaces = []string{}
		for _, name := range strings.Split(val, ",") {
			if name = strings.TrimSpace(name); name != "" {
				f.ExcludedInterfaces = append(f.ExcludedInterfaces, name)
			}
		}
	case "metrics_addr":
		f.MetricsAddr = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

func setDurationKey(dst *string, key, val string) error {
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s must be a positive duration like 5s or 450ms", key)
	}
	*dst = val
	return nil
}
