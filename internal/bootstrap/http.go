package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/folio/config"
	httpx "github.com/target/folio/internal/http"
	"github.com/target/folio/internal/observability/statsd"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Infra    *Infrastructure
	Metrics  statsd.Sink
	// Background loops run for as long as the server does.
	Background []func(context.Context) error
	Logger     *slog.Logger
}

// BuildHTTPHandler assembles the router for the configured services.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("bootstrap: http config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	svc := cfg.Services

	ready := map[string]httpx.Pinger{}
	if cfg.Infra != nil && cfg.Infra.DB != nil {
		ready["postgres"] = httpx.PingFunc(cfg.Infra.DB.PingContext)
	}
	if cfg.Infra != nil && cfg.Infra.Redis != nil {
		client := cfg.Infra.Redis
		ready["redis"] = httpx.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	return httpx.NewRouter(httpx.RouterServices{
		Docs:         svc.Docs,
		Auth:         svc.Auth,
		Init:         svc.Init,
		Perms:        svc.Access,
		Hydrator:     svc.Hydrator,
		Table:        svc.Routes,
		AdminRoot:    appCfg.Admin.RoutePrefix,
		APIPrefix:    appCfg.Admin.APIPrefix,
		UserSlug:     appCfg.Admin.UserSlug,
		LogoutRoute:  appCfg.Admin.LogoutRoute,
		PageLimits:   appCfg.Admin.PaginationLimits,
		OAuthLogin:   svc.OAuthLogin,
		CookieDomain: appCfg.HTTP.CookieDomain,
		Ready:        ready,
		Metrics:      cfg.Metrics,
		IsDev:        appCfg.IsDev,
		Logger:       logger,
	})
}

func newServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs the HTTP server until ctx is cancelled, then drains it
// within the configured shutdown timeout.
func ServeHTTP(ctx context.Context, cfg *HTTPServerConfig) error {
	handler, err := BuildHTTPHandler(cfg)
	if err != nil {
		return fmt.Errorf("build http handler: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	server := newServer(cfg.Config.HTTP.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server",
			"addr", server.Addr,
			"admin", cfg.Config.Admin.RoutePrefix,
			"api", cfg.Config.Admin.APIPrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	for _, task := range cfg.Background {
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}
