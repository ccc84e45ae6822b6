package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/devseed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.NewLogger(bootstrap.LogLevel(cfg.LogLevel, cfg.IsDev))
	logStartupInfo(ctx, logger, &cfg)

	infra, err := bootstrap.Connect(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure failed", "error", cerr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, infra.DB, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "schema loaded",
		"collections", len(services.Schema.Collections),
		"globals", len(services.Schema.Globals),
		"custom_routes", len(services.Schema.CustomRoutes))

	if cfg.IsDev && cfg.Admin.SeedPath != "" {
		seedFixtures(ctx, logger, cfg.Admin.SeedPath, services)
	}

	metricsClient, err := bootstrap.NewMetricsClient(cfg.Observability.Metrics, logger)
	if err != nil {
		return err
	}
	defer metricsClient.Close()

	background, err := bootstrap.BackgroundTasks(bootstrap.BackgroundConfig{
		Config:  &cfg,
		Infra:   infra,
		Metrics: metricsClient,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.ServeHTTP(ctx, &bootstrap.HTTPServerConfig{
		Config:     &cfg,
		Services:   services,
		Infra:      infra,
		Metrics:    metricsClient,
		Background: background,
		Logger:     logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting folio",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"auth_mode", cfg.Auth.Mode,
		"schema", cfg.Admin.SchemaPath,
		"reaper", cfg.Reaper.Enabled,
		"metrics", cfg.Observability.Metrics.IsEnabled(),
		"dev", cfg.IsDev)
}

// seedFixtures loads development fixtures. Failures are logged, not fatal.
func seedFixtures(ctx context.Context, logger *slog.Logger, path string, services bootstrap.ServiceContainer) {
	file, err := devseed.Load(path)
	if err != nil {
		logger.WarnContext(ctx, "skipping fixture seeding", "path", path, "error", err)
		return
	}
	res, err := devseed.New(services.Docs, services.Schema, logger).Run(ctx, file)
	if err != nil {
		logger.WarnContext(ctx, "fixture seeding finished with errors", "error", err)
	}
	logger.InfoContext(ctx, "fixtures seeded", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
}
