// Package core provides the business ports and cache-backed helpers shared by Folio services.
package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/target/folio/internal/domain/access"
)

// CacheRepository defines the interface for caching operations.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// PermissionCache stores evaluated permission snapshots per user.
// Cache failures are logged and treated as misses; the caller recomputes.
type PermissionCache struct {
	cache  CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// PermissionCacheOptions bundles dependencies for NewPermissionCache.
type PermissionCacheOptions struct {
	Cache  CacheRepository
	TTL    time.Duration
	Logger *slog.Logger
}

// DefaultPermissionTTL is used when no TTL is configured.
const DefaultPermissionTTL = 5 * time.Minute

// NewPermissionCache creates a new PermissionCache. A nil Cache disables caching.
func NewPermissionCache(opts PermissionCacheOptions) *PermissionCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionCache{cache: opts.Cache, ttl: ttl, logger: logger.With("component", "permission_cache")}
}

// Get returns the cached set for the user, or nil on a miss.
func (c *PermissionCache) Get(ctx context.Context, collection, userID string) *access.PermissionSet {
	if c == nil || c.cache == nil || userID == "" {
		return nil
	}
	raw, err := c.cache.Get(ctx, permissionKey(collection, userID))
	if err != nil {
		c.logger.WarnContext(ctx, "permission cache read failed", "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	var set access.PermissionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		c.logger.WarnContext(ctx, "discarding corrupt permission cache entry", "error", err)
		return nil
	}
	if set.CanAccessAdmin == nil {
		return nil
	}
	return &set
}

// Set stores a resolved set for the user.
func (c *PermissionCache) Set(ctx context.Context, collection, userID string, set *access.PermissionSet) {
	if c == nil || c.cache == nil || userID == "" || set == nil {
		return
	}
	raw, err := json.Marshal(set)
	if err != nil {
		c.logger.WarnContext(ctx, "permission cache encode failed", "error", err)
		return
	}
	if err := c.cache.Set(ctx, permissionKey(collection, userID), raw, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "permission cache write failed", "error", err)
	}
}

// Invalidate drops the cached set for the user. It is called when the user document changes.
func (c *PermissionCache) Invalidate(ctx context.Context, collection, userID string) error {
	if c == nil || c.cache == nil || userID == "" {
		return nil
	}
	_, err := c.cache.Delete(ctx, permissionKey(collection, userID))
	return err
}

// permissionKey generates a cache key for a user's permission snapshot.
func permissionKey(collection, userID string) string {
	return "permissions:" + collection + ":" + userID
}
