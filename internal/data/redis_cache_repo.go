package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "folio:"

// minClaimTTL keeps SetIfNotExists claims from living forever when callers pass zero.
const minClaimTTL = time.Second

// ErrEmptyCacheKey is returned for any operation on an empty key.
var ErrEmptyCacheKey = errors.New("cache key cannot be empty")

// RedisCacheRepo backs the permission cache and the forgot-password throttle.
// Every key lives under "folio:" so the cache can share a Redis DB with sessions.
type RedisCacheRepo struct {
	client redis.UniversalClient
}

// NewRedisCacheRepo wraps client.
func NewRedisCacheRepo(client redis.UniversalClient) *RedisCacheRepo {
	return &RedisCacheRepo{client: client}
}

func namespaced(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyCacheKey
	}
	return cacheKeyPrefix + key, nil
}

func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := namespaced(key)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, k, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Get returns nil without error on a miss.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := namespaced(key)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.Get(ctx, k).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return raw, nil
}

// Delete reports whether the key existed.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	k, err := namespaced(key)
	if err != nil {
		return false, err
	}
	n, err := r.client.Del(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("cache del %s: %w", key, err)
	}
	return n > 0, nil
}

// SetIfNotExists claims key for ttl and reports whether this call won.
// SET NX with an expiry is a single command, unlike SETNX followed by EXPIRE.
func (r *RedisCacheRepo) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	k, err := namespaced(key)
	if err != nil {
		return false, err
	}
	ttl = max(ttl, minClaimTTL)

	status, err := r.client.SetArgs(ctx, k, value, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// NX not met: someone else holds the key.
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache claim %s: %w", key, err)
	}
	return status == "OK", nil
}

func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
