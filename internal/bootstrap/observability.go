package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/adapters/reaper"
	"github.com/target/folio/internal/observability/statsd"
)

// NewMetricsClient builds the StatsD client. Disabled metrics yield a
// client that drops everything.
func NewMetricsClient(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil {
		tags["host"] = host
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled:    cfg.IsEnabled(),
		Address:    cfg.StatsdAddress,
		Prefix:     cfg.Prefix,
		Logger:     logger,
		GlobalTags: tags,
	})
	if err != nil {
		return nil, fmt.Errorf("metrics client: %w", err)
	}
	if client.Enabled() {
		logger.Info("metrics enabled", "statsd_address", cfg.StatsdAddress, "prefix", cfg.Prefix)
	}
	return client, nil
}

// BackgroundConfig selects the loops started next to the HTTP server.
type BackgroundConfig struct {
	Config  *config.AppConfig
	Infra   *Infrastructure
	Metrics *statsd.Client
	Logger  *slog.Logger
}

// BackgroundTasks returns the long-running loops to start with the server.
func BackgroundTasks(cfg BackgroundConfig) ([]func(context.Context) error, error) {
	var tasks []func(context.Context) error
	if cfg.Metrics.Enabled() {
		interval := cfg.Config.Observability.Metrics.FlushInterval
		tasks = append(tasks, func(ctx context.Context) error { return cfg.Metrics.Run(ctx, interval) })
	}
	if cfg.Config.Reaper.Enabled {
		runner, err := reaper.NewRunner(reaper.RunnerOptions{
			DB:      cfg.Infra.DB,
			Config:  cfg.Config.Reaper,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		})
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, runner.Run)
	}
	return tasks, nil
}
