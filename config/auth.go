package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeLocal authenticates admin users with email and password stored in the user collection.
	AuthModeLocal AuthMode = "local"
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "local", "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: local, oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/api/oauth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// AdminGroup and UserGroup map identity provider groups onto the
	// "admin" and "editor" roles written to the user document.
	AdminGroup string `env:"ADMIN_GROUP"`
	UserGroup  string `env:"USER_GROUP"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Name  string `env:"NAME"  envDefault:"Dev User"`
	Email string `env:"EMAIL" envDefault:"dev@example.com"`
	// Groups is a semicolon-separated list reported as the dev user's groups.
	Groups []string `env:"GROUPS" envDefault:"admins" envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines how admin users sign in.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"local"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// SessionTTL is how long a local login session stays valid.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	// RolesField names the user collection field that receives mapped roles.
	// Collections without that field keep their roles untouched.
	RolesField string `env:"AUTH_ROLES_FIELD" envDefault:"roles"`

	// ResetTokenTTL bounds the lifetime of forgot-password tokens.
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeLocal
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 2 * time.Hour
	}
	if a.ResetTokenTTL <= 0 {
		a.ResetTokenTTL = time.Hour
	}
	a.RolesField = strings.TrimSpace(a.RolesField)
	a.OAuth.AdminGroup = strings.TrimSpace(a.OAuth.AdminGroup)
	a.OAuth.UserGroup = strings.TrimSpace(a.OAuth.UserGroup)
}
