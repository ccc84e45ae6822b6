package httpx

import (
	"context"

	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/service"
)

// AuthServiceInterface defines the auth operations the handlers use.
type AuthServiceInterface interface {
	Authenticator
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.LoginResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	RegisterFirstUser(ctx context.Context, in service.FirstUserInput) (*service.LoginResult, error)
	ForgotPassword(ctx context.Context, in service.ForgotPasswordInput) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) (*service.LoginResult, error)
	VerifyEmail(ctx context.Context, collection, token string) error
	RotateAPIKey(ctx context.Context, in service.RotateAPIKeyInput) (string, error)
	Me(user *domainauth.User) map[string]any
}

// DocumentServiceInterface defines the collection, global and version operations.
type DocumentServiceInterface interface {
	Find(ctx context.Context, req service.FindRequest) (*model.PaginatedDocs, error)
	FindByID(ctx context.Context, req service.GetRequest) (map[string]any, error)
	Create(ctx context.Context, req service.WriteRequest) (map[string]any, error)
	Update(ctx context.Context, req service.WriteRequest) (map[string]any, error)
	Delete(ctx context.Context, req service.DeleteRequest) (map[string]any, error)
	FindGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
	UpdateGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
	ListVersions(ctx context.Context, req service.VersionsRequest) (*model.VersionPage, error)
	FindVersion(ctx context.Context, req service.VersionRequest) (*model.Version, error)
	Schema() *schema.Config
}

// InitStatusProvider reports whether the first admin user exists.
type InitStatusProvider interface {
	Status(ctx context.Context) route.InitStatus
}

// PermissionProvider evaluates the permission snapshot of a user.
type PermissionProvider interface {
	Permissions(ctx context.Context, user *domainauth.User) *access.PermissionSet
}

// HydratorInterface builds edit view form state.
type HydratorInterface interface {
	Hydrate(ctx context.Context, req service.HydrateRequest) (*service.Hydration, error)
}
