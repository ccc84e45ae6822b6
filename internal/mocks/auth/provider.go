// Package auth holds hand-written fakes for the auth ports: an identity
// provider, an in-memory session store and a mailer that records messages.
package auth

import (
	"context"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/ports"
)

const mockIdPAuthURL = "https://mock-idp/auth"

// MockAuthProvider answers Begin with "state-N"/"nonce-N" for the Nth call and
// Exchange with Identity. Set BeginFunc or ExchangeFunc to script failures.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	Identity domainauth.Identity

	mu    sync.Mutex
	calls int
}

// NewMockAuthProvider returns a provider that signs in mock.user@example.com.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{Identity: domainauth.Identity{
		UserID:    "mock-user-1",
		FirstName: "Mock",
		LastName:  "User",
		Email:     "mock.user@example.com",
		Groups:    []string{"users"},
	}}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.calls++
	n := strconv.Itoa(m.calls)
	m.mu.Unlock()
	return mockIdPAuthURL, "state-" + n, "nonce-" + n, nil
}

// Exchange returns Identity with a fresh one-hour expiry.
func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	id := m.Identity
	if id.UserID == "" {
		id = NewMockAuthProvider().Identity
	}
	id.ExpiresAt = time.Now().Add(time.Hour)
	return id, nil
}
