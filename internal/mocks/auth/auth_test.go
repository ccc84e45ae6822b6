package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/ports"
)

func TestMockAuthProvider_BeginCountsCalls(t *testing.T) {
	p := NewMockAuthProvider()
	ctx := context.Background()

	for i, want := range []string{"1", "2"} {
		url, state, nonce, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost/cb"})
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, mockIdPAuthURL, url)
		assert.Equal(t, "state-"+want, state)
		assert.Equal(t, "nonce-"+want, nonce)
	}
}

func TestMockAuthProvider_Exchange(t *testing.T) {
	ctx := context.Background()

	t.Run("default identity", func(t *testing.T) {
		id, err := (&MockAuthProvider{}).Exchange(ctx, ports.ExchangeInput{Code: "c"})
		require.NoError(t, err)
		assert.Equal(t, "mock.user@example.com", id.Email)
		assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)
	})

	t.Run("configured identity", func(t *testing.T) {
		p := &MockAuthProvider{Identity: domainauth.Identity{UserID: "u9", Email: "ed@example.com", Groups: []string{"editors"}}}
		id, err := p.Exchange(ctx, ports.ExchangeInput{})
		require.NoError(t, err)
		assert.Equal(t, "u9", id.UserID)
		assert.Equal(t, []string{"editors"}, id.Groups)
	})

	t.Run("scripted failure", func(t *testing.T) {
		p := &MockAuthProvider{ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("denied")
		}}
		_, err := p.Exchange(ctx, ports.ExchangeInput{})
		assert.EqualError(t, err, "denied")
	})
}

func TestMemorySessionStore(t *testing.T) {
	s := NewMemorySessionStore()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.Error(t, s.Save(ctx, domainauth.Session{}))
	require.NoError(t, s.Save(ctx, domainauth.Session{ID: "a", UserID: "u1", Collection: "users", ExpiresAt: exp}))
	require.NoError(t, s.Save(ctx, domainauth.Session{ID: "b", UserID: "u1", Collection: "users", ExpiresAt: exp}))
	require.NoError(t, s.Save(ctx, domainauth.Session{ID: "c", UserID: "u1", Collection: "admins", ExpiresAt: exp}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	require.NoError(t, s.DeleteForUser(ctx, "users", "u1"))
	assert.Equal(t, 1, s.Len(), "same user id in another collection survives")
}

func TestRecordingMailer(t *testing.T) {
	m := &RecordingMailer{}
	_, ok := m.Last()
	assert.False(t, ok)

	require.NoError(t, m.Send(context.Background(), ports.MailMessage{To: "a@example.com", Subject: "Reset"}))
	last, ok := m.Last()
	require.True(t, ok)
	assert.Equal(t, "Reset", last.Subject)

	m.Err = errors.New("smtp down")
	assert.Error(t, m.Send(context.Background(), ports.MailMessage{}))
	assert.Len(t, m.Sent, 1)
}
