// Package app wires together configuration, the API client, the local store
// and metrics into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"github.com/derickschaefer/pocketdash/internal/api"
	"github.com/derickschaefer/pocketdash/internal/config"
	"github.com/derickschaefer/pocketdash/internal/metrics"
	"github.com/derickschaefer/pocketdash/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store and Metrics are opened lazily: most commands never touch the local
// database, and only watch mode exports metrics.
type Deps struct {
	Config  *config.Config
	Client  *api.Client
	Store   *store.Store
	Metrics *metrics.Metrics
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := api.NewClient(cfg.BaseURL, cfg.Timeout, cfg.Rate)
	return &Deps{
		Config: cfg,
		Client: client,
	}
}

// RequireStore opens the bbolt database at Config.DBPath if it is not
// already open.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set db_path or %s)", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// EnableMetrics creates the metrics registry and attaches it to the client.
func (d *Deps) EnableMetrics() *metrics.Metrics {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
		d.Client.Observer = d.Metrics
	}
	return d.Metrics
}

// Close releases the store if it was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
