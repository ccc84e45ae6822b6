// Package metrics defines the metric names and tag sets Folio emits.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/folio/internal/observability/errors"
	"github.com/target/folio/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// RequestMetric describes one served HTTP request.
type RequestMetric struct {
	// Route is the matched mux pattern, never the raw path.
	Route    string
	Method   string
	Status   int
	Surface  string // "api", "admin" or "other"
	Duration time.Duration
}

// EmitRequest counts and times an HTTP request.
func EmitRequest(sink statsd.Sink, in RequestMetric) {
	if sink == nil {
		return
	}
	route := in.Route
	if route == "" {
		route = "unmatched"
	}
	tags := map[string]string{
		"route":        route,
		"method":       in.Method,
		"status_class": StatusClass(in.Status),
		"surface":      in.Surface,
	}
	sink.Count("http.request", 1, tags)
	if in.Duration > 0 {
		sink.Timing("http.request_duration", in.Duration, CloneTags(tags))
	}
}

// StatusClass collapses a status code to "2xx", "4xx" and so on.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// SweepMetric captures one reaper step.
type SweepMetric struct {
	Operation string
	Count     int64
	Err       error
}

// EmitSweep reports the outcome of a reaper step.
func EmitSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"operation": in.Operation,
		"result":    Result(in.Count, in.Err),
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("reaper.cleanup_operation", 1, tags)
	if in.Err == nil && in.Count > 0 {
		sink.Count("reaper.rows_processed", in.Count, CloneTags(tags))
	}
}

// Result picks the result tag for a step that touched count rows.
func Result(count int64, err error) string {
	switch {
	case err != nil:
		return ResultError
	case count == 0:
		return ResultNoop
	default:
		return ResultSuccess
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
