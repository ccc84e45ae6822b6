package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/core"
)

type countingRepo struct{ versions int64 }

func (countingRepo) ClearExpiredResetTokens(context.Context, int) (int64, error) { return 0, nil }
func (countingRepo) ReleaseExpiredLocks(context.Context, int) (int64, error)     { return 0, nil }

func (c *countingRepo) DeleteStaleVersions(context.Context, core.DeleteStaleVersionsParams) (int64, error) {
	n := c.versions
	c.versions = 0
	return n, nil
}

func TestNewRunner_RequiresDatabase(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunOnce(t *testing.T) {
	r, err := NewRunner(RunnerOptions{
		Repo:   &countingRepo{versions: 4},
		Config: config.ReaperConfig{Interval: time.Minute, VersionMaxAge: time.Hour, BatchSize: 5},
	})
	require.NoError(t, err)

	report, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Versions)
}
