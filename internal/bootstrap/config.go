package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/folio/config"
)

// InitLogger builds the logger used before configuration is loaded.
func InitLogger() *slog.Logger {
	return NewLogger(LogLevel(os.Getenv("LOG_LEVEL"), os.Getenv("DEV") == "true"))
}

// LogLevel parses raw with slog's level syntax ("warn", "debug+2").
// Empty or unparseable input falls back to debug in dev mode and info otherwise.
func LogLevel(raw string, dev bool) slog.Level {
	var level slog.Level
	if raw != "" && level.UnmarshalText([]byte(raw)) == nil {
		return level
	}
	if dev {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger builds the JSON logger on stdout and installs it as the default.
func NewLogger(level slog.Leveler) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
