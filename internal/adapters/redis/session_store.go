// Package redis stores Folio login sessions in Redis.
//
// Layout, for the default prefix:
//
//	folio:session:<id>                          JSON session, TTL = time to ExpiresAt
//	folio:session:user:<collection>:<userID>    set of that user's session IDs
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/ports"
)

// DefaultSessionPrefix namespaces session keys.
const DefaultSessionPrefix = "folio:session:"

var (
	errEmptySessionID = errors.New("session ID cannot be empty")
	errSessionExpired = errors.New("session is expired")
)

// SessionStore implements ports.SessionStore and ports.SessionRevoker.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// SessionStoreOption customizes a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithKeyPrefix replaces DefaultSessionPrefix.
func WithKeyPrefix(prefix string) SessionStoreOption {
	return func(s *SessionStore) { s.prefix = prefix }
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

func NewSessionStore(client redis.UniversalClient, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{client: client, prefix: DefaultSessionPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

func (s *SessionStore) indexKey(collection, userID string) string {
	return s.prefix + "user:" + collection + ":" + userID
}

// Save writes sess with a TTL matching its expiry and adds it to the user index.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errEmptySessionID
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errSessionExpired
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), payload, ttl)
		if sess.UserID == "" {
			return nil
		}
		idx := s.indexKey(sess.Collection, sess.UserID)
		pipe.SAdd(ctx, idx, sess.ID)
		// Extend the index to the newest session's lifetime, never shorten it.
		pipe.ExpireGT(ctx, idx, ttl)
		pipe.ExpireNX(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads a session. Expired entries that outlived their TTL are removed
// and reported as ports.ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	var sess domainauth.Session
	if id == "" {
		return sess, ports.ErrSessionNotFound
	}

	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return sess, ports.ErrSessionNotFound
	case err != nil:
		return sess, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal(payload, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode session: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("drop expired session: %w", err)
		}
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes one session. Its index entry is left for DeleteForUser.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(id)).Err()
}

// DeleteForUser revokes every session of a user, e.g. after a password reset.
func (s *SessionStore) DeleteForUser(ctx context.Context, collection, userID string) error {
	if userID == "" {
		return nil
	}
	idx := s.indexKey(collection, userID)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	return s.client.Del(ctx, append(keys, idx)...).Err()
}
