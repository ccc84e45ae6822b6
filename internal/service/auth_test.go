package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/mocks"
	authmocks "github.com/target/folio/internal/mocks/auth"
	"github.com/target/folio/internal/ports"
)

// mockSessionStore is a test helper for testing session store errors.
type mockSessionStore struct {
	saveFunc   func(context.Context, domainauth.Session) error
	getFunc    func(context.Context, string) (domainauth.Session, error)
	deleteFunc func(context.Context, string) error
}

func (m *mockSessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, sess)
	}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return domainauth.Session{}, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type authFixture struct {
	svc       *AuthService
	docs      *memoryDocs
	documents *DocumentService
	sessions  *authmocks.MemorySessionStore
	mailer    *authmocks.RecordingMailer
	init      *InitStatusTracker
	now       time.Time
}

type authFixtureOptions struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	throttle *mocks.MockCacheRepository
	roles    ports.RoleMapper
}

func newAuthFixture(t *testing.T, o authFixtureOptions) *authFixture {
	t.Helper()
	cfg := testSchema()
	f := &authFixture{
		docs:     newMemoryDocs(),
		sessions: authmocks.NewMemorySessionStore(),
		mailer:   &authmocks.RecordingMailer{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.documents = newTestDocuments(t, cfg, DocumentRepos{Docs: f.docs}, DocumentServiceConfig{Sessions: f.sessions})
	keys, err := NewAPIKeyStrategy(APIKeyStrategyOptions{
		Finder: f.documents,
		Schema: cfg,
		Config: APIKeyStrategyConfig{Secret: testSecret},
	})
	require.NoError(t, err)
	f.init = NewInitStatusTracker(InitStatusTrackerOptions{Users: f.docs, UserSlug: "users"})

	var sessions ports.SessionStore = f.sessions
	if o.sessions != nil {
		sessions = o.sessions
	}
	authCfg := AuthServiceConfig{
		Schema:        cfg,
		UserSlug:      "users",
		Provider:      o.provider,
		Roles:         o.roles,
		RolesField:    "roles",
		APIKeys:       keys,
		Access:        newTestAccess(t, cfg),
		Init:          f.init,
		Mail:          MailSettings{Mailer: f.mailer, AdminURL: "http://cms.test/admin"},
		SessionTTL:    time.Hour,
		ResetTokenTTL: time.Hour,
		Clock:         func() time.Time { return f.now },
	}
	if o.throttle != nil {
		authCfg.Throttle = o.throttle
	}
	f.svc = NewAuthService(AuthServiceOptions{
		Sessions:  sessions,
		Documents: f.documents,
		Config:    authCfg,
	})
	return f
}

func (f *authFixture) createUser(t *testing.T, collection, email, password string, extra map[string]any) string {
	t.Helper()
	data := map[string]any{"email": email, "password": password}
	for k, v := range extra {
		data[k] = v
	}
	doc, err := f.documents.Create(context.Background(), WriteRequest{
		Collection: collection,
		Data:       data,
		Caller:     Caller{OverrideAccess: true},
	})
	require.NoError(t, err)
	return doc["id"].(string)
}

func TestNewAuthService_PanicsWithoutDeps(t *testing.T) {
	assert.Panics(t, func() { NewAuthService(AuthServiceOptions{}) })
	assert.Panics(t, func() {
		NewAuthService(AuthServiceOptions{Sessions: authmocks.NewMemorySessionStore(), Documents: newTestDocuments(t, testSchema(), DocumentRepos{Docs: newMemoryDocs()}, DocumentServiceConfig{})})
	})
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	id := f.createUser(t, "users", "Editor@Example.com", "s3cret!", map[string]any{"name": "Ed"})

	res, err := f.svc.Login(context.Background(), LoginInput{Collection: "users", Email: " editor@example.COM ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)
	assert.Equal(t, "editor@example.com", res.User.Email)
	assert.Equal(t, domainauth.StrategyLocal, res.User.Strategy)
	assert.Equal(t, f.now.Add(time.Hour), res.Session.ExpiresAt)
	assert.NotContains(t, res.User.Data, schema.KeyHash)

	stored, err := f.sessions.Get(context.Background(), res.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "users", stored.Collection)
	assert.Equal(t, id, stored.UserID)
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	f.createUser(t, "users", "a@example.com", "right", nil)

	tests := []struct {
		name string
		in   LoginInput
		code apperrors.ErrorCode
	}{
		{"unknown email", LoginInput{Collection: "users", Email: "b@example.com", Password: "right"}, apperrors.ErrCodeUnauthorized},
		{"wrong password", LoginInput{Collection: "users", Email: "a@example.com", Password: "wrong"}, apperrors.ErrCodeUnauthorized},
		{"missing password", LoginInput{Collection: "users", Email: "a@example.com"}, apperrors.ErrCodeValidation},
		{"not an auth collection", LoginInput{Collection: "posts", Email: "a@example.com", Password: "right"}, apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestAuthService_Login_LocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	id := f.createUser(t, "users", "a@example.com", "right", nil)
	ctx := context.Background()

	for range 3 {
		_, err := f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "wrong"})
		require.True(t, apperrors.IsUnauthorized(err))
	}
	raw := f.docs.raw("users", id)
	assert.Equal(t, "2026-03-01T12:10:00Z", raw[schema.KeyLockUntil])

	_, err := f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "right"})
	assert.Equal(t, apperrors.ErrCodeLocked, apperrors.GetCode(err))

	// Once the lock expires the right password works and the counters reset.
	f.now = f.now.Add(11 * time.Minute)
	_, err = f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "right"})
	require.NoError(t, err)
	raw = f.docs.raw("users", id)
	assert.NotContains(t, raw, schema.KeyLockUntil)
	assert.EqualValues(t, 0, raw[schema.KeyLoginAttempts])
}

func TestAuthService_Login_RequiresVerification(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	_, err := f.documents.Create(ctx, WriteRequest{
		Collection: "members",
		Data:       map[string]any{"email": "m@example.com", "password": "pw"},
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Collection: "members", Email: "m@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify your email")
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	doc, err := f.documents.Create(ctx, WriteRequest{
		Collection: "members",
		Data:       map[string]any{"email": "m@example.com", "password": "pw"},
	})
	require.NoError(t, err)
	token := f.docs.raw("members", doc["id"].(string))[schema.KeyVerificationToken].(string)

	err = f.svc.VerifyEmail(ctx, "members", "nope")
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, f.svc.VerifyEmail(ctx, "members", token))
	raw := f.docs.raw("members", doc["id"].(string))
	assert.Equal(t, true, raw[schema.KeyVerified])
	assert.NotContains(t, raw, schema.KeyVerificationToken)

	_, err = f.svc.Login(ctx, LoginInput{Collection: "members", Email: "m@example.com", Password: "pw"})
	require.NoError(t, err)

	err = f.svc.VerifyEmail(ctx, "users", token)
	assert.True(t, apperrors.IsNotFound(err), "users does not verify emails")
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	id := f.createUser(t, "users", "a@example.com", "pw", nil)

	key, err := f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: id, Caller: Caller{OverrideAccess: true}})
	require.NoError(t, err)
	login, err := f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "pw"})
	require.NoError(t, err)

	t.Run("api key", func(t *testing.T) {
		got := f.svc.Authenticate(ctx, Credentials{Authorization: "users API-Key " + key})
		require.NotNil(t, got.User)
		assert.Equal(t, id, got.User.ID)
		assert.Equal(t, domainauth.StrategyAPIKey, got.User.Strategy)
		assert.Nil(t, got.Session)
	})

	t.Run("unknown api key falls through to the session", func(t *testing.T) {
		got := f.svc.Authenticate(ctx, Credentials{Authorization: "users API-Key wrong", SessionID: login.Session.ID})
		require.NotNil(t, got.User)
		assert.Equal(t, domainauth.StrategyLocal, got.User.Strategy)
		require.NotNil(t, got.Session)
		assert.Equal(t, login.Session.ID, got.Session.ID)
	})

	t.Run("anonymous", func(t *testing.T) {
		got := f.svc.Authenticate(ctx, Credentials{Authorization: "Bearer abc"})
		assert.Nil(t, got.User)
	})

	t.Run("deleted user drops the session", func(t *testing.T) {
		_, err := f.documents.Delete(ctx, DeleteRequest{Collection: "users", ID: id, Caller: Caller{OverrideAccess: true}})
		require.NoError(t, err)
		got := f.svc.Authenticate(ctx, Credentials{SessionID: login.Session.ID})
		assert.Nil(t, got.User)
		assert.Zero(t, f.sessions.Len())
	})
}

func TestAuthService_RotateAPIKey(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	admin := f.createUser(t, "users", "admin@example.com", "pw", map[string]any{"roles": []any{"admin"}})
	editor := f.createUser(t, "users", "editor@example.com", "pw", map[string]any{"roles": []any{"editor"}})
	other := f.createUser(t, "users", "other@example.com", "pw", nil)

	asUser := func(id string) Caller {
		return Caller{User: userFromFlat("users", domainauth.StrategyLocal, f.docs.raw("users", id))}
	}

	key, err := f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: editor, Caller: asUser(editor)})
	require.NoError(t, err)
	raw := f.docs.raw("users", editor)
	assert.Equal(t, true, raw[schema.KeyEnableAPIKey])
	assert.Equal(t, APIKeyIndex([]byte(testSecret), key), raw[schema.KeyAPIKeyIndex])
	assert.NotContains(t, raw[schema.KeyAPIKeyIndex], key)

	_, err = f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: other, Caller: asUser(editor)})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: other, Caller: asUser(admin)})
	require.NoError(t, err)

	_, err = f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: other})
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "posts", ID: other, Caller: Caller{OverrideAccess: true}})
	assert.True(t, apperrors.IsNotFound(err))

	// Rotating again invalidates the previous key.
	next, err := f.svc.RotateAPIKey(ctx, RotateAPIKeyInput{Collection: "users", ID: editor, Caller: asUser(editor)})
	require.NoError(t, err)
	assert.Nil(t, f.svc.Authenticate(ctx, Credentials{Authorization: "users API-Key " + key}).User)
	assert.NotNil(t, f.svc.Authenticate(ctx, Credentials{Authorization: "users API-Key " + next}).User)
}

func TestAuthService_RegisterFirstUser(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()

	_, err := f.svc.RegisterFirstUser(ctx, FirstUserInput{Email: "root@example.com"})
	assert.True(t, apperrors.IsValidation(err))

	res, err := f.svc.RegisterFirstUser(ctx, FirstUserInput{
		Email:    "root@example.com",
		Password: "pw",
		Data:     map[string]any{"name": "Root"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Root", res.User.Data["name"])
	assert.Equal(t, 1, f.sessions.Len())

	_, err = f.svc.RegisterFirstUser(ctx, FirstUserInput{Email: "second@example.com", Password: "pw"})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	id := f.createUser(t, "users", "a@example.com", "old", nil)
	old, err := f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "old"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "nobody@example.com"}))
	_, sent := f.mailer.Last()
	assert.False(t, sent, "unknown emails succeed silently")

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "A@example.com"}))
	msg, sent := f.mailer.Last()
	require.True(t, sent)
	assert.Equal(t, "a@example.com", msg.To)
	idx := strings.Index(msg.Body, "http://cms.test/admin/reset/")
	require.GreaterOrEqual(t, idx, 0)
	token := strings.Fields(msg.Body[idx+len("http://cms.test/admin/reset/"):])[0]

	raw := f.docs.raw("users", id)
	assert.Equal(t, hashToken(token), raw[schema.KeyResetPasswordToken])

	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{Collection: "users", Token: "bogus", Password: "new"})
	assert.True(t, apperrors.IsForbidden(err))

	res, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Collection: "users", Token: token, Password: "new"})
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)

	_, err = f.sessions.Get(ctx, old.Session.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound, "existing sessions are revoked")
	assert.Equal(t, 1, f.sessions.Len())

	_, err = f.svc.Login(ctx, LoginInput{Collection: "users", Email: "a@example.com", Password: "new"})
	require.NoError(t, err)

	// Tokens are single use.
	_, err = f.svc.ResetPassword(ctx, ResetPasswordInput{Collection: "users", Token: token, Password: "again"})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestAuthService_ResetPassword_Expired(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	f.createUser(t, "users", "a@example.com", "old", nil)
	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "a@example.com"}))
	msg, _ := f.mailer.Last()
	token := msg.Body[strings.LastIndex(msg.Body, "/reset/")+len("/reset/"):]
	token = strings.Fields(token)[0]

	f.now = f.now.Add(2 * time.Hour)
	_, err := f.svc.ResetPassword(ctx, ResetPasswordInput{Collection: "users", Token: token, Password: "new"})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestAuthService_ForgotPassword_Throttled(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	throttle := mocks.NewMockCacheRepository(ctrl)

	f := newAuthFixture(t, authFixtureOptions{throttle: throttle})
	ctx := context.Background()
	f.createUser(t, "users", "a@example.com", "pw", nil)

	gomock.InOrder(
		throttle.EXPECT().SetIfNotExists(gomock.Any(), "forgot:users:a@example.com", []byte("1"), time.Minute).Return(true, nil),
		throttle.EXPECT().SetIfNotExists(gomock.Any(), "forgot:users:a@example.com", []byte("1"), time.Minute).Return(false, nil),
		throttle.EXPECT().SetIfNotExists(gomock.Any(), "forgot:users:a@example.com", []byte("1"), time.Minute).Return(false, errors.New("redis down")),
	)

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "a@example.com"}))
	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "a@example.com"}))
	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotPasswordInput{Collection: "users", Email: "a@example.com"}))
	assert.Len(t, f.mailer.Sent, 2, "a throttle failure does not block the email")
}

func TestAuthService_BeginLogin(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider()})

	result, err := f.svc.BeginLogin(context.Background(), "http://localhost:8080/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)

	_, err = f.svc.BeginLogin(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")
}

func TestAuthService_BeginLogin_ProviderError(t *testing.T) {
	provider := &authmocks.MockAuthProvider{
		BeginFunc: func(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
			return "", "", "", errors.New("provider error")
		},
	}
	f := newAuthFixture(t, authFixtureOptions{provider: provider})

	result, err := f.svc.BeginLogin(context.Background(), "http://localhost:8080/callback")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "begin auth flow")
	assert.Contains(t, err.Error(), "provider error")
}

func TestAuthService_BeginLogin_NoProvider(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	_, err := f.svc.BeginLogin(context.Background(), "http://localhost:8080/callback")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAuthService_CompleteLogin_ProvisionsUser(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider()})
	ctx := context.Background()
	assert.Equal(t, route.InitUninitialized, f.init.Status(ctx))

	first, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "auth-code", State: "state-1", Nonce: "nonce-1"})
	require.NoError(t, err)
	assert.Equal(t, "mock.user@example.com", first.User.Email)
	assert.Equal(t, domainauth.StrategyOIDC, first.Session.Strategy)
	assert.True(t, first.Session.ExpiresAt.After(time.Now()))
	assert.Equal(t, route.InitReady, f.init.Status(ctx))

	second, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "auth-code", State: "state-2", Nonce: "nonce-2"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID, "existing users are reused by email")

	n, err := f.docs.Count(ctx, "users", query.Where{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type roleMapperFunc func([]string) []string

func (f roleMapperFunc) Map(groups []string) []string { return f(groups) }

func TestAuthService_CompleteLogin_SyncsRoles(t *testing.T) {
	var admin bool
	mapper := roleMapperFunc(func(groups []string) []string {
		if admin {
			return []string{"admin"}
		}
		assert.Equal(t, []string{"users"}, groups)
		return []string{"editor"}
	})
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider(), roles: mapper})
	ctx := context.Background()

	first, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s1", Nonce: "n1"})
	require.NoError(t, err)
	assert.Equal(t, []any{"editor"}, first.User.Data["roles"])

	admin = true
	second, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s2", Nonce: "n2"})
	require.NoError(t, err)
	assert.Equal(t, []any{"admin"}, second.User.Data["roles"])

	stored, err := f.documents.FindByID(ctx, GetRequest{Collection: "users", ID: second.User.ID, Caller: Caller{OverrideAccess: true}})
	require.NoError(t, err)
	assert.Equal(t, []any{"admin"}, stored["roles"])
}

func TestAuthService_CompleteLogin_UnconfiguredMapperKeepsRoles(t *testing.T) {
	mapper := roleMapperFunc(func([]string) []string { return nil })
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider(), roles: mapper})
	ctx := context.Background()
	f.createUser(t, "users", "mock.user@example.com", "pw-123456", map[string]any{"roles": []any{"admin"}})

	result, err := f.svc.CompleteLogin(ctx, CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, []any{"admin"}, result.User.Data["roles"])
}

func TestAuthService_CompleteLogin_InputErrors(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider()})
	tests := []struct {
		name  string
		input CompleteLoginInput
		want  string
	}{
		{"missing code", CompleteLoginInput{State: "s", Nonce: "n"}, "authorization code is required"},
		{"missing state", CompleteLoginInput{Code: "c", Nonce: "n"}, "state parameter is required"},
		{"missing nonce", CompleteLoginInput{Code: "c", State: "s"}, "nonce parameter is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.CompleteLogin(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthService_CompleteLogin_ExchangeError(t *testing.T) {
	provider := &authmocks.MockAuthProvider{
		ExchangeFunc: func(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("exchange error")
		},
	}
	f := newAuthFixture(t, authFixtureOptions{provider: provider})

	result, err := f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "exchange authorization code")
	assert.Contains(t, err.Error(), "exchange error")
}

func TestAuthService_CompleteLogin_SessionSaveError(t *testing.T) {
	sessions := &mockSessionStore{
		saveFunc: func(_ context.Context, _ domainauth.Session) error {
			return errors.New("save error")
		},
	}
	f := newAuthFixture(t, authFixtureOptions{provider: authmocks.NewMockAuthProvider(), sessions: sessions})

	result, err := f.svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "save session")
	assert.Contains(t, err.Error(), "save error")
}

func TestAuthService_GetSession(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()

	live := domainauth.Session{ID: "live", UserID: "u1", Collection: "users", ExpiresAt: f.now.Add(30 * time.Minute)}
	expired := domainauth.Session{ID: "expired", UserID: "u1", Collection: "users", ExpiresAt: f.now.Add(-time.Minute)}
	require.NoError(t, f.sessions.Save(ctx, live))
	require.NoError(t, f.sessions.Save(ctx, expired))

	got, err := f.svc.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live, *got)

	_, err = f.svc.GetSession(ctx, "")
	assert.ErrorContains(t, err, "session ID is required")

	_, err = f.svc.GetSession(ctx, "missing")
	assert.ErrorContains(t, err, "get session")

	_, err = f.svc.GetSession(ctx, "expired")
	assert.ErrorIs(t, err, errSessionExpired)
	_, err = f.sessions.Get(ctx, "expired")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, authFixtureOptions{})
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "s1", ExpiresAt: f.now.Add(time.Hour)}))

	require.NoError(t, f.svc.Logout(ctx, "s1"))
	_, err := f.sessions.Get(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	assert.NoError(t, f.svc.Logout(ctx, ""))
}

func TestAuthService_Logout_DeleteError(t *testing.T) {
	sessions := &mockSessionStore{
		deleteFunc: func(_ context.Context, _ string) error {
			return errors.New("delete error")
		},
	}
	f := newAuthFixture(t, authFixtureOptions{sessions: sessions})

	err := f.svc.Logout(context.Background(), "test-session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete session")
	assert.Contains(t, err.Error(), "delete error")
}

func TestGenerateSessionID(t *testing.T) {
	id1 := generateSessionID()
	id2 := generateSessionID()

	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 36)
}
