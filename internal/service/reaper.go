package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/core"
	obserrors "github.com/target/folio/internal/observability/errors"
	"github.com/target/folio/internal/observability/metrics"
	"github.com/target/folio/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.MaintenanceRepository // Required
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// ReaperService periodically clears expired reset tokens and login
// lockouts and deletes superseded versions past their retention.
type ReaperService struct {
	repo    core.MaintenanceRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// SweepReport counts the rows one cleanup pass touched.
type SweepReport struct {
	ResetTokens int64
	Locks       int64
	Versions    int64
	Elapsed     time.Duration
}

// Total returns the number of rows changed across all steps.
func (r SweepReport) Total() int64 { return r.ResetTokens + r.Locks + r.Versions }

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("MaintenanceRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"interval", opts.Config.Interval,
		"version_max_age", opts.Config.VersionMaxAge,
		"batch_size", opts.Config.BatchSize,
	)
	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval until ctx is cancelled.
// It returns nil on graceful shutdown.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	// Instances started together should not sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(ctx, err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(ctx, err, "cleanup")
			}
		}
	}
}

// waitWithJitter sleeps for up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

type cleanupStep struct {
	operation string
	fn        func(context.Context) (int64, error)
	count     *int64
}

// RunOnce performs a single cleanup pass. Every step runs even when an
// earlier one fails; the errors are joined.
func (s *ReaperService) RunOnce(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	var report SweepReport
	steps := []cleanupStep{
		{operation: "clear_reset_tokens", fn: s.clearResetTokens, count: &report.ResetTokens},
		{operation: "release_locks", fn: s.releaseLocks, count: &report.Locks},
		{operation: "delete_versions", fn: s.deleteVersions, count: &report.Versions},
	}

	var (
		errs        []error
		allCanceled = true
	)
	for _, step := range steps {
		count, err := step.fn(ctx)
		*step.count = count
		metrics.EmitSweep(s.metrics, metrics.SweepMetric{
			Operation: step.operation,
			Count:     count,
			Err:       suppressContextCancellation(err),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.operation, err))
			allCanceled = allCanceled && isContextCancellation(err)
		}
	}
	report.Elapsed = time.Since(start)

	var err error
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allCanceled {
			err = context.Canceled
		} else {
			err = fmt.Errorf("cleanup failed: %w", joined)
		}
	}
	s.emitCleanupMetrics(report, err)
	return report, err
}

// drain repeats one batched statement until it stops changing rows.
func drain(ctx context.Context, batch func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		count, err := batch(ctx)
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) clearResetTokens(ctx context.Context) (int64, error) {
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.ClearExpiredResetTokens(ctx, s.config.BatchSize)
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "cleared expired reset tokens", "count", n)
	}
	return n, err
}

func (s *ReaperService) releaseLocks(ctx context.Context) (int64, error) {
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.ReleaseExpiredLocks(ctx, s.config.BatchSize)
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "released expired login locks", "count", n)
	}
	return n, err
}

func (s *ReaperService) deleteVersions(ctx context.Context) (int64, error) {
	n, err := drain(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteStaleVersions(ctx, core.DeleteStaleVersionsParams{
			MaxAge:    s.config.VersionMaxAge,
			BatchSize: s.config.BatchSize,
		})
	})
	if n > 0 {
		s.logger.InfoContext(ctx, "deleted stale versions", "count", n, "max_age", s.config.VersionMaxAge)
	}
	return n, err
}

func (s *ReaperService) emitCleanupMetrics(report SweepReport, err error) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"result": metrics.Result(report.Total(), err)}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	s.metrics.Count("reaper.cleanup", 1, tags)
	if report.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", report.Elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) logCleanupError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
