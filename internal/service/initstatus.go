package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/route"
)

// userCounter is the slice of core.DocumentRepository the init probe needs.
type userCounter interface {
	Count(ctx context.Context, collection string, where query.Where) (int, error)
}

// InitStatusTrackerOptions groups dependencies for InitStatusTracker.
type InitStatusTrackerOptions struct {
	Users    userCounter
	UserSlug string
	// LocalStrategyDisabled marks an OIDC-only install. The first user arrives
	// through SSO, so there is no create-first-user step and nothing to probe.
	LocalStrategyDisabled bool
	Config                InitStatusConfig
}

// InitStatusConfig holds optional InitStatusTracker settings.
type InitStatusConfig struct {
	// Timeout bounds one probe. A probe that times out leaves the status unknown.
	Timeout time.Duration
	Logger  *slog.Logger
}

// InitStatusTracker answers whether the install has its first admin user.
// Concurrent probes share one query, and once ready the status never goes back.
type InitStatusTracker struct {
	users    userCounter
	userSlug string
	timeout  time.Duration
	logger   *slog.Logger

	ready atomic.Bool
	group singleflight.Group
}

// NewInitStatusTracker constructs a new InitStatusTracker.
func NewInitStatusTracker(opts InitStatusTrackerOptions) *InitStatusTracker {
	if opts.Users == nil {
		panic("InitStatusTracker: Users is required")
	}
	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &InitStatusTracker{
		users:    opts.Users,
		userSlug: opts.UserSlug,
		timeout:  timeout,
		logger:   logger.With("component", "init_status"),
	}
	if opts.LocalStrategyDisabled {
		t.MarkReady()
	}
	return t
}

// Status probes the user collection unless the install is already known to be ready.
func (t *InitStatusTracker) Status(ctx context.Context) route.InitStatus {
	if t.ready.Load() {
		return route.InitReady
	}

	ch := t.group.DoChan("probe", func() (any, error) {
		// Detached from the first caller so a cancelled request does not fail the shared probe.
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		return t.users.Count(probeCtx, t.userSlug, query.Where{})
	})

	select {
	case <-ctx.Done():
		return route.InitUnknown
	case res := <-ch:
		if res.Err != nil {
			t.logger.WarnContext(ctx, "init probe failed", "error", res.Err)
			return route.InitUnknown
		}
		if n, _ := res.Val.(int); n > 0 {
			t.MarkReady()
			return route.InitReady
		}
		return route.InitUninitialized
	}
}

// MarkReady records that a first user exists.
func (t *InitStatusTracker) MarkReady() {
	t.ready.Store(true)
}
