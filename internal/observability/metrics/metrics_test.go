package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/observability/statsd"
)

func TestEmitRequest(t *testing.T) {
	var rec statsd.Recorder
	EmitRequest(&rec, RequestMetric{Method: "GET", Status: 404, Surface: "api", Duration: 3 * time.Millisecond})

	counts := rec.Named("http.request")
	require.Len(t, counts, 1)
	assert.Equal(t, map[string]string{
		"route":        "unmatched",
		"method":       "GET",
		"status_class": "4xx",
		"surface":      "api",
	}, counts[0].Tags)
	assert.Len(t, rec.Named("http.request_duration"), 1)

	EmitRequest(nil, RequestMetric{})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "5xx", StatusClass(504))
	assert.Equal(t, "unknown", StatusClass(0))
}

func TestEmitSweep(t *testing.T) {
	var rec statsd.Recorder
	EmitSweep(&rec, SweepMetric{Operation: "clear_reset_tokens", Count: 3})
	EmitSweep(&rec, SweepMetric{Operation: "release_locks"})
	EmitSweep(&rec, SweepMetric{Operation: "prune_versions", Err: apperrors.Internal("db")})

	ops := rec.Named("reaper.cleanup_operation")
	require.Len(t, ops, 3)
	assert.Equal(t, ResultSuccess, ops[0].Tags["result"])
	assert.Equal(t, ResultNoop, ops[1].Tags["result"])
	assert.Equal(t, ResultError, ops[2].Tags["result"])
	assert.Equal(t, "internal", ops[2].Tags["error_class"])

	rows := rec.Named("reaper.rows_processed")
	require.Len(t, rows, 1)
	assert.InDelta(t, 3, rows[0].Value, 0)
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultError, Result(5, errors.New("x")))
	assert.Equal(t, ResultNoop, Result(0, nil))
	assert.Equal(t, ResultSuccess, Result(1, nil))
}
