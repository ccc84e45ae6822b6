package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - admin.go: Admin panel and API routing configuration
//   - auth.go: Authentication configuration
//   - database.go: Database and cache configuration
//   - http.go: HTTP server configuration
//   - maintenance.go: Background reaper configuration
//   - observability.go: Metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (template reloading, verbose logging).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn or error. Empty means debug in
	// dev mode and info otherwise.
	LogLevel string `env:"LOG_LEVEL"`

	// Secret keys the HMAC digests used to index API keys.
	// Rotating it invalidates every issued API key.
	Secret string `env:"FOLIO_SECRET"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Admin panel configuration
	Admin AdminConfig

	// Background maintenance
	Reaper ReaperConfig

	Observability ObservabilityConfig
}

// ErrSecretRequired is returned by Validate when FOLIO_SECRET is unset outside dev mode.
var ErrSecretRequired = errors.New("FOLIO_SECRET is required")

// devSecret is only used when DEV=true and no secret was configured.
const devSecret = "folio-dev-secret"

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Admin.Sanitize()
	c.Cache.Sanitize()
	c.Auth.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()

	if c.IsDev && strings.TrimSpace(c.Secret) == "" {
		c.Secret = devSecret
	}
}

// Validate reports configuration that cannot be defaulted.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return ErrSecretRequired
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
