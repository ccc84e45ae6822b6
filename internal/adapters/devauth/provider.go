// Package devauth signs in a fixed, configured admin identity for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/ports"
)

const defaultCallbackPath = "/auth/callback"

// Config controls the dev auth provider.
type Config struct {
	Email           string
	Name            string
	Groups          []string
	SessionDuration time.Duration // default 8h
	// CallbackPath is where Begin sends the browser; default /auth/callback.
	CallbackPath string
}

// Provider implements ports.AuthProvider without an IdP: Begin points straight
// back at the callback and Exchange returns the configured identity.
type Provider struct {
	mu       sync.Mutex
	identity domainauth.Identity
	ttl      time.Duration
	callback string
	now      func() time.Time
}

// NewProvider constructs a dev auth provider.
func NewProvider(cfg Config) (*Provider, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	ttl := cfg.SessionDuration
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	callback := cfg.CallbackPath
	if callback == "" {
		callback = defaultCallbackPath
	}
	first, last, _ := strings.Cut(strings.TrimSpace(cfg.Name), " ")
	return &Provider{
		identity: domainauth.Identity{
			UserID:    email,
			FirstName: first,
			LastName:  last,
			Email:     email,
			Groups:    slices.Clone(cfg.Groups),
		},
		ttl:      ttl,
		callback: callback,
		now:      time.Now,
	}, nil
}

// Begin returns the local callback URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return p.callback + "?" + q.Encode(), state, nonce, nil
}

// Exchange ignores the code; state and nonce are checked by the handler.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.identity
	id.ExpiresAt = p.now().Add(p.ttl)
	return id, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
