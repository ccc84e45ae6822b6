// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"errors"

	domainauth "github.com/target/folio/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// ErrSessionNotFound is returned by SessionStore.Get for unknown, empty or
// expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionRevoker is implemented by session stores that can drop every session of a user.
type SessionRevoker interface {
	DeleteForUser(ctx context.Context, collection, userID string) error
}

// MailMessage is an outgoing auth email (verification, password reset).
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers auth emails.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// RoleMapper turns identity provider groups into Folio role names. A nil
// result means the mapper has no opinion and stored roles stay as they are.
type RoleMapper interface {
	Map(groups []string) []string
}
