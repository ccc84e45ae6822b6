package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/route"
)

type countFunc func(ctx context.Context, collection string, where query.Where) (int, error)

func (f countFunc) Count(ctx context.Context, collection string, where query.Where) (int, error) {
	return f(ctx, collection, where)
}

func TestInitStatusTracker_Status(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name  string
		count int
		err   error
		want  route.InitStatus
	}{
		{"no users", 0, nil, route.InitUninitialized},
		{"has users", 2, nil, route.InitReady},
		{"store error", 0, errors.New("db down"), route.InitUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewInitStatusTracker(InitStatusTrackerOptions{
				Users: countFunc(func(_ context.Context, collection string, _ query.Where) (int, error) {
					assert.Equal(t, "users", collection)
					return tt.count, tt.err
				}),
				UserSlug: "users",
			})
			assert.Equal(t, tt.want, tracker.Status(context.Background()))
		})
	}
}

func TestInitStatusTracker_ReadyIsSticky(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	n := 0
	tracker := NewInitStatusTracker(InitStatusTrackerOptions{
		Users: countFunc(func(context.Context, string, query.Where) (int, error) {
			calls.Add(1)
			return n, nil
		}),
		UserSlug: "users",
	})

	assert.Equal(t, route.InitUninitialized, tracker.Status(context.Background()))
	assert.Equal(t, route.InitUninitialized, tracker.Status(context.Background()))
	assert.EqualValues(t, 2, calls.Load(), "uninitialized is probed again")

	n = 1
	assert.Equal(t, route.InitReady, tracker.Status(context.Background()))
	n = 0
	assert.Equal(t, route.InitReady, tracker.Status(context.Background()))
	assert.EqualValues(t, 3, calls.Load())
}

func TestInitStatusTracker_MarkReady(t *testing.T) {
	tracker := NewInitStatusTracker(InitStatusTrackerOptions{
		Users: countFunc(func(context.Context, string, query.Where) (int, error) {
			t.Fatal("probe should not run once ready")
			return 0, nil
		}),
	})
	tracker.MarkReady()
	assert.Equal(t, route.InitReady, tracker.Status(context.Background()))
}

func TestInitStatusTracker_OIDCOnlyNeverProbes(t *testing.T) {
	var calls atomic.Int32
	tracker := NewInitStatusTracker(InitStatusTrackerOptions{
		Users: countFunc(func(context.Context, string, query.Where) (int, error) {
			calls.Add(1)
			return 0, nil
		}),
		UserSlug:              "users",
		LocalStrategyDisabled: true,
	})

	for range 3 {
		assert.Equal(t, route.InitReady, tracker.Status(context.Background()))
	}
	assert.Zero(t, calls.Load())
}

func TestInitStatusTracker_SharesInFlightProbe(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	tracker := NewInitStatusTracker(InitStatusTrackerOptions{
		Users: countFunc(func(context.Context, string, query.Where) (int, error) {
			calls.Add(1)
			close(entered)
			<-release
			return 1, nil
		}),
		UserSlug: "users",
	})

	first := make(chan route.InitStatus, 1)
	go func() { first <- tracker.Status(context.Background()) }()
	<-entered

	// A caller that gives up while the probe is in flight sees unknown and
	// does not start a second query.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, route.InitUnknown, tracker.Status(ctx))

	close(release)
	assert.Equal(t, route.InitReady, <-first)
	assert.EqualValues(t, 1, calls.Load())
}

func TestInitStatusTracker_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	tracker := NewInitStatusTracker(InitStatusTrackerOptions{
		Users: countFunc(func(ctx context.Context, _ string, _ query.Where) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}),
		UserSlug: "users",
		Config:   InitStatusConfig{Timeout: 10 * time.Millisecond},
	})
	assert.Equal(t, route.InitUnknown, tracker.Status(context.Background()))
}
