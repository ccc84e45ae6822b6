package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Strategy names the mechanism that resolved a request to a user.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyAPIKey Strategy = "api-key"
	StrategyOIDC   Strategy = "oidc"
	StrategyDev    Strategy = "dev"
)

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., samAccountName or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection"`
	Email      string    `json:"email"`
	Strategy   Strategy  `json:"strategy"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// User is an authenticated document from an auth-enabled collection.
// Data holds the stored document with hidden auth keys removed.
type User struct {
	ID         string         `json:"id"`
	Collection string         `json:"collection"`
	Strategy   Strategy       `json:"_strategy"`
	Email      string         `json:"email,omitempty"`
	Data       map[string]any `json:"-"`
}

// Claims returns the user as a plain map for access expressions.
// Document fields are overlaid with id, collection, email and strategy.
func (u *User) Claims() map[string]any {
	if u == nil {
		return nil
	}
	out := make(map[string]any, len(u.Data)+4)
	for k, v := range u.Data {
		out[k] = v
	}
	out["id"] = u.ID
	out["collection"] = u.Collection
	out["_strategy"] = string(u.Strategy)
	if u.Email != "" {
		out["email"] = u.Email
	}
	return out
}
