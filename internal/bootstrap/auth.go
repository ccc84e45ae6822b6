package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/adapters/devauth"
	"github.com/target/folio/internal/adapters/oidc"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/ports"
)

// AuthProviderConfig contains configuration for the external login provider.
type AuthProviderConfig struct {
	Auth      config.AuthConfig
	APIPrefix string
	Logger    *slog.Logger
}

// ErrOAuthNotConfigured is returned when AUTH_MODE=oauth lacks discovery or client settings.
var ErrOAuthNotConfigured = errors.New("oauth auth mode requires OAUTH_DISCOVERY_URL, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET")

// BuildAuthProvider returns the external login provider for the configured
// auth mode. Local mode has none and returns a nil provider.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildAuthProvider(cfg AuthProviderConfig) (ports.AuthProvider, domainauth.Strategy, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthProvider(cfg)
	case config.AuthModeOAuth:
		return buildOAuthProvider(cfg)
	default:
		return nil, domainauth.StrategyLocal, nil
	}
}

//nolint:ireturn // see BuildAuthProvider.
func buildDevAuthProvider(cfg AuthProviderConfig) (ports.AuthProvider, domainauth.Strategy, error) {
	prov, err := devauth.NewProvider(devauth.Config{
		Email:           cfg.Auth.DevAuth.Email,
		Name:            cfg.Auth.DevAuth.Name,
		Groups:          cfg.Auth.DevAuth.Groups,
		SessionDuration: cfg.Auth.SessionTTL,
		CallbackPath:    cfg.APIPrefix + "/oauth/callback",
	})
	if err != nil {
		return nil, "", fmt.Errorf("create dev auth provider: %w", err)
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("dev auth enabled; every login signs in as the configured user",
			"email", cfg.Auth.DevAuth.Email)
	}
	return prov, domainauth.StrategyDev, nil
}

//nolint:ireturn // see BuildAuthProvider.
func buildOAuthProvider(cfg AuthProviderConfig) (ports.AuthProvider, domainauth.Strategy, error) {
	oauth := cfg.Auth.OAuth
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		if cfg.Logger != nil {
			cfg.Logger.Error("AuthModeOAuth selected but required config missing",
				"discovery_url_empty", oauth.DiscoveryURL == "",
				"client_id_empty", oauth.ClientID == "",
				"client_secret_empty", oauth.ClientSecret == "",
			)
		}
		return nil, "", ErrOAuthNotConfigured
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create OIDC provider: %w", err)
	}
	return prov, domainauth.StrategyOIDC, nil
}
