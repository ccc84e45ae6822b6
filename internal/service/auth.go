package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/folio/internal/core"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/document"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/ports"
)

// authDocuments is the slice of DocumentService the auth flows use.
type authDocuments interface {
	Find(ctx context.Context, req FindRequest) (*model.PaginatedDocs, error)
	FindByID(ctx context.Context, req GetRequest) (map[string]any, error)
	Create(ctx context.Context, req WriteRequest) (map[string]any, error)
	Update(ctx context.Context, req WriteRequest) (map[string]any, error)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Sessions  ports.SessionStore
	Documents authDocuments
	Config    AuthServiceConfig
}

// AuthServiceConfig holds AuthService collaborators and settings.
type AuthServiceConfig struct {
	Schema *schema.Config
	// UserSlug names the admin user collection.
	UserSlug string

	// Provider and ProviderStrategy are set when admin users sign in through an external IdP.
	Provider         ports.AuthProvider
	ProviderStrategy domainauth.Strategy
	// Roles maps provider groups into RolesField on each external login.
	Roles      ports.RoleMapper
	RolesField string

	APIKeys  *APIKeyStrategy      // Optional
	Access   *AccessService       // Optional: required for rotating other users' API keys
	Init     *InitStatusTracker   // Optional
	Mail     MailSettings         // Optional
	Throttle core.CacheRepository // Optional: rate limits forgot-password emails

	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	Clock         func() time.Time
	Logger        *slog.Logger
}

// AuthService orchestrates the local, external-provider and API-key auth
// flows and persists sessions.
type AuthService struct {
	sessions ports.SessionStore
	docs     authDocuments
	cfg      AuthServiceConfig
	clock    func() time.Time
	logger   *slog.Logger
}

var errSessionExpired = errors.New("session expired")

const (
	defaultSessionTTL = 2 * time.Hour
	defaultLockTime   = 10 * time.Minute
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Sessions == nil || opts.Documents == nil {
		panic("AuthService: Sessions and Documents are required")
	}
	if opts.Config.Schema == nil {
		panic("AuthService: Schema is required")
	}
	cfg := opts.Config
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.ProviderStrategy == "" {
		cfg.ProviderStrategy = domainauth.StrategyOIDC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		sessions: opts.Sessions,
		docs:     opts.Documents,
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With("component", "auth"),
	}
}

// LoginResult is a signed-in user with its new session.
type LoginResult struct {
	Session domainauth.Session
	User    *domainauth.User
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an external authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.cfg.Provider == nil {
		return nil, apperrors.NotFound("external login is not enabled")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.cfg.Provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the code for an identity, provisions the matching
// admin user by email and persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*LoginResult, error) {
	if s.cfg.Provider == nil {
		return nil, apperrors.NotFound("external login is not enabled")
	}
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.cfg.Provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, apperrors.Unauthorized("identity provider returned no email")
	}

	flat, err := s.findAuthDoc(ctx, s.cfg.UserSlug, query.Equals("email", email))
	if err != nil {
		return nil, err
	}
	if flat == nil {
		flat, err = s.docs.Create(ctx, WriteRequest{
			Collection: s.cfg.UserSlug,
			Data:       map[string]any{"email": email, schema.KeyVerified: true},
			Caller:     Caller{OverrideAccess: true},
		})
		if err != nil {
			return nil, fmt.Errorf("provision user: %w", err)
		}
		s.logger.InfoContext(ctx, "provisioned user from identity provider", "collection", s.cfg.UserSlug)
	}
	if s.cfg.Init != nil {
		s.cfg.Init.MarkReady()
	}

	col, _ := s.cfg.Schema.Collection(s.cfg.UserSlug)
	flat = s.syncRoles(ctx, col, flat, identity.Groups)
	user := userFromFlat(col.Slug, s.cfg.ProviderStrategy, document.StripHidden(col.Fields, flat, true))
	expires := identity.ExpiresAt
	if expires.IsZero() {
		expires = s.clock().Add(s.cfg.SessionTTL)
	}
	sess, err := s.saveSession(ctx, user, expires)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: sess, User: user}, nil
}

// syncRoles writes the mapped provider roles to the user's roles field and
// returns the stored document. Failures are logged; login still succeeds.
func (s *AuthService) syncRoles(ctx context.Context, col schema.CollectionConfig, flat map[string]any, groups []string) map[string]any {
	if s.cfg.Roles == nil || s.cfg.RolesField == "" {
		return flat
	}
	roles := s.cfg.Roles.Map(groups)
	if roles == nil {
		return flat
	}
	field, ok := schema.FieldByName(col.Fields, s.cfg.RolesField)
	if !ok {
		return flat
	}

	var value any
	if field.HasMany {
		vals := make([]any, len(roles))
		for i, r := range roles {
			vals[i] = r
		}
		value = vals
	} else if len(roles) > 0 {
		value = roles[0]
	}
	if reflect.DeepEqual(flat[s.cfg.RolesField], value) {
		return flat
	}

	id, _ := flat["id"].(string)
	updated, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         id,
		Data:       map[string]any{s.cfg.RolesField: value},
		Caller:     Caller{OverrideAccess: true},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to sync roles from identity provider", "collection", col.Slug, "id", id, "error", err)
		return flat
	}
	s.logger.InfoContext(ctx, "synced roles from identity provider", "collection", col.Slug, "id", id, "roles", roles)
	return updated
}

// LoginInput is an email/password login attempt.
type LoginInput struct {
	Collection string
	Email      string
	Password   string
}

const msgBadCredentials = "The email or password provided is incorrect."

// Login authenticates with email and password. Repeated failures lock the
// user when the collection sets maxLoginAttempts.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	col, err := s.localCollection(in.Collection)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperrors.ValidationField("email", "This field is required.")
	}
	if in.Password == "" {
		return nil, apperrors.ValidationField("password", "This field is required.")
	}

	flat, err := s.findAuthDoc(ctx, col.Slug, query.Equals("email", email))
	if err != nil {
		return nil, err
	}
	if flat == nil {
		return nil, apperrors.Unauthorized(msgBadCredentials)
	}

	now := s.clock()
	if until, locked := lockedUntil(flat); locked && until.After(now) {
		return nil, apperrors.Locked("This user is locked due to having too many failed login attempts.")
	}
	if col.Auth.Verify {
		if verified, ok := flat[schema.KeyVerified].(bool); ok && !verified {
			return nil, apperrors.Unauthorized("Please verify your email before logging in.")
		}
	}

	hash, _ := flat[schema.KeyHash].(string)
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(in.Password)) != nil {
		s.recordFailedLogin(ctx, col, flat, now)
		return nil, apperrors.Unauthorized(msgBadCredentials)
	}

	id, _ := flat["id"].(string)
	if attempts, _ := toInt(flat[schema.KeyLoginAttempts]); attempts > 0 || flat[schema.KeyLockUntil] != nil {
		if _, err := s.docs.Update(ctx, WriteRequest{
			Collection: col.Slug,
			ID:         id,
			Data:       map[string]any{schema.KeyLoginAttempts: 0, schema.KeyLockUntil: nil},
			Caller:     Caller{OverrideAccess: true},
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login attempts", "collection", col.Slug, "id", id, "error", err)
		}
	}

	user := userFromFlat(col.Slug, domainauth.StrategyLocal, document.StripHidden(col.Fields, flat, true))
	sess, err := s.saveSession(ctx, user, now.Add(s.sessionTTL(col)))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user logged in", "collection", col.Slug, "id", user.ID)
	return &LoginResult{Session: sess, User: user}, nil
}

func (s *AuthService) recordFailedLogin(ctx context.Context, col schema.CollectionConfig, flat map[string]any, now time.Time) {
	maxAttempts := col.Auth.MaxLoginAttempts
	if maxAttempts <= 0 {
		return
	}
	attempts, _ := toInt(flat[schema.KeyLoginAttempts])
	patch := map[string]any{}
	if until, locked := lockedUntil(flat); locked && !until.After(now) {
		// An expired lock starts a fresh window.
		attempts = 0
		patch[schema.KeyLockUntil] = nil
	}
	attempts++
	patch[schema.KeyLoginAttempts] = attempts
	if attempts >= maxAttempts {
		lock := defaultLockTime
		if col.Auth.LockTime > 0 {
			lock = time.Duration(col.Auth.LockTime) * time.Second
		}
		patch[schema.KeyLockUntil] = now.Add(lock).UTC().Format(time.RFC3339)
	}

	id, _ := flat["id"].(string)
	if _, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         id,
		Data:       patch,
		Caller:     Caller{OverrideAccess: true},
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to record login attempt", "collection", col.Slug, "id", id, "error", err)
	}
}

// Credentials are the request inputs auth strategies read.
type Credentials struct {
	// Authorization is the raw Authorization header.
	Authorization string
	SessionID     string
}

// Authentication is the resolved caller. User is nil for anonymous requests.
type Authentication struct {
	User    *domainauth.User
	Session *domainauth.Session
}

// Authenticate runs the API-key strategy and then the session strategy.
// Failures are logged and resolve to an anonymous caller.
func (s *AuthService) Authenticate(ctx context.Context, cred Credentials) Authentication {
	if cred.Authorization != "" && s.cfg.APIKeys != nil {
		res := s.cfg.APIKeys.Authenticate(ctx, cred.Authorization)
		if res.Outcome == APIKeyMatched {
			return Authentication{User: res.User}
		}
	}
	if cred.SessionID == "" {
		return Authentication{}
	}

	sess, err := s.GetSession(ctx, cred.SessionID)
	if err != nil {
		return Authentication{}
	}
	flat, err := s.docs.FindByID(ctx, GetRequest{
		Collection: sess.Collection,
		ID:         sess.UserID,
		Caller:     Caller{OverrideAccess: true},
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = s.Logout(ctx, sess.ID)
		} else {
			s.logger.WarnContext(ctx, "session user lookup failed", "collection", sess.Collection, "error", err)
		}
		return Authentication{}
	}
	return Authentication{User: userFromFlat(sess.Collection, sess.Strategy, flat), Session: sess}
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.Expired(s.clock()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AuthService) saveSession(ctx context.Context, user *domainauth.User, expires time.Time) (domainauth.Session, error) {
	sess := domainauth.Session{
		ID:         generateSessionID(),
		UserID:     user.ID,
		Collection: user.Collection,
		Email:      user.Email,
		Strategy:   user.Strategy,
		ExpiresAt:  expires,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *AuthService) sessionTTL(col schema.CollectionConfig) time.Duration {
	if col.Auth != nil && col.Auth.TokenExpiration > 0 {
		return time.Duration(col.Auth.TokenExpiration) * time.Second
	}
	return s.cfg.SessionTTL
}

func (s *AuthService) localCollection(slug string) (schema.CollectionConfig, error) {
	col, ok := s.cfg.Schema.Collection(slug)
	if !ok || !col.IsAuth() {
		return schema.CollectionConfig{}, apperrors.NotFoundf("auth collection %q not found", slug)
	}
	if !col.LocalStrategyEnabled() {
		return schema.CollectionConfig{}, apperrors.Forbidden("local login is disabled for this collection")
	}
	return col, nil
}

// findAuthDoc returns the first matching document with auth keys intact, or nil.
func (s *AuthService) findAuthDoc(ctx context.Context, collection string, where query.Where) (map[string]any, error) {
	res, err := s.docs.Find(ctx, FindRequest{
		Collection:        collection,
		Where:             where,
		Limit:             1,
		DisablePagination: true,
		Read:              ReadOptions{ShowHiddenFields: true},
		Caller:            Caller{OverrideAccess: true},
	})
	if err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	return res.Docs[0], nil
}

func lockedUntil(flat map[string]any) (time.Time, bool) {
	raw, ok := flat[schema.KeyLockUntil].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	return uuid.New().String()
}
