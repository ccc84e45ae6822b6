package bootstrap

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		raw  string
		dev  bool
		want slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"warn", true, slog.LevelWarn},
		{"ERROR", false, slog.LevelError},
		{"debug+2", false, slog.LevelDebug + 2},
		{"loud", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LogLevel(tt.raw, tt.dev), "raw=%q dev=%v", tt.raw, tt.dev)
	}
}
