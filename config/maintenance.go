package config

import "time"

// ReaperConfig controls the background sweep that clears expired auth
// state and trims old version history.
type ReaperConfig struct {
	// Enabled runs the reaper alongside the HTTP server.
	Enabled bool `env:"REAPER_ENABLED" envDefault:"true"`

	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// VersionMaxAge is how long superseded versions are kept. The newest
	// version of every document and global always survives.
	VersionMaxAge time.Duration `env:"REAPER_VERSION_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows to process per statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Minute {
		r.Interval = time.Minute
	}
	if r.VersionMaxAge < 24*time.Hour {
		r.VersionMaxAge = 24 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
