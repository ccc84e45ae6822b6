package httpx

import (
	"context"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/service"
)

// authKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type authKey struct{}

// SetAuthInContext returns a child context that carries the resolved caller.
func SetAuthInContext(ctx context.Context, a service.Authentication) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// AuthFromContext returns the resolved caller and whether the auth middleware ran.
func AuthFromContext(ctx context.Context) (service.Authentication, bool) {
	a, ok := ctx.Value(authKey{}).(service.Authentication)
	return a, ok
}

// UserFromContext returns the signed-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *domainauth.User {
	a, _ := AuthFromContext(ctx)
	return a.User
}

// SessionFromContext returns the session the user was resolved from, if any.
// API-key requests carry a user but no session.
func SessionFromContext(ctx context.Context) *domainauth.Session {
	a, _ := AuthFromContext(ctx)
	return a.Session
}

// callerFromContext is the service caller for the current request.
func callerFromContext(ctx context.Context) service.Caller {
	return service.Caller{User: UserFromContext(ctx)}
}
