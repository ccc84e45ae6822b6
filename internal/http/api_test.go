package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/service"
)

// mockDocs is a test double for service.DocumentService.
type mockDocs struct {
	findFunc         func(ctx context.Context, req service.FindRequest) (*model.PaginatedDocs, error)
	findByIDFunc     func(ctx context.Context, req service.GetRequest) (map[string]any, error)
	createFunc       func(ctx context.Context, req service.WriteRequest) (map[string]any, error)
	updateFunc       func(ctx context.Context, req service.WriteRequest) (map[string]any, error)
	deleteFunc       func(ctx context.Context, req service.DeleteRequest) (map[string]any, error)
	findGlobalFunc   func(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
	updateGlobalFunc func(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
	listVersionsFunc func(ctx context.Context, req service.VersionsRequest) (*model.VersionPage, error)
	findVersionFunc  func(ctx context.Context, req service.VersionRequest) (*model.Version, error)
	schema           *schema.Config
}

func (m *mockDocs) Find(ctx context.Context, req service.FindRequest) (*model.PaginatedDocs, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, req)
	}
	return &model.PaginatedDocs{Docs: []map[string]any{}}, nil
}

func (m *mockDocs) FindByID(ctx context.Context, req service.GetRequest) (map[string]any, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, req)
	}
	return map[string]any{"id": req.ID}, nil
}

func (m *mockDocs) Create(ctx context.Context, req service.WriteRequest) (map[string]any, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	out := map[string]any{"id": "new"}
	for k, v := range req.Data {
		out[k] = v
	}
	return out, nil
}

func (m *mockDocs) Update(ctx context.Context, req service.WriteRequest) (map[string]any, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req)
	}
	return map[string]any{"id": req.ID}, nil
}

func (m *mockDocs) Delete(ctx context.Context, req service.DeleteRequest) (map[string]any, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, req)
	}
	return map[string]any{"id": req.ID}, nil
}

func (m *mockDocs) FindGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error) {
	if m.findGlobalFunc != nil {
		return m.findGlobalFunc(ctx, req)
	}
	return map[string]any{"globalType": req.Slug}, nil
}

func (m *mockDocs) UpdateGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error) {
	if m.updateGlobalFunc != nil {
		return m.updateGlobalFunc(ctx, req)
	}
	return map[string]any{"globalType": req.Slug}, nil
}

func (m *mockDocs) ListVersions(ctx context.Context, req service.VersionsRequest) (*model.VersionPage, error) {
	if m.listVersionsFunc != nil {
		return m.listVersionsFunc(ctx, req)
	}
	return &model.VersionPage{}, nil
}

func (m *mockDocs) FindVersion(ctx context.Context, req service.VersionRequest) (*model.Version, error) {
	if m.findVersionFunc != nil {
		return m.findVersionFunc(ctx, req)
	}
	return &model.Version{ID: req.ID}, nil
}

func (m *mockDocs) Schema() *schema.Config { return m.schema }

type staticInit route.InitStatus

func (s staticInit) Status(context.Context) route.InitStatus { return route.InitStatus(s) }

func newTestAPI(docs *mockDocs, auth *mockAuthService) *APIHandlers {
	if docs == nil {
		docs = &mockDocs{}
	}
	if auth == nil {
		auth = &mockAuthService{}
	}
	return &APIHandlers{
		Docs:     docs,
		Auth:     auth,
		Init:     staticInit(route.InitReady),
		Prefix:   "/api",
		UserSlug: "users",
	}
}

func serveAPI(h *APIHandlers, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func withUser(req *http.Request, user *domainauth.User) *http.Request {
	return req.WithContext(SetAuthInContext(req.Context(), service.Authentication{User: user}))
}

func TestAPI_Find_ParsesQuery(t *testing.T) {
	var got service.FindRequest
	docs := &mockDocs{findFunc: func(_ context.Context, req service.FindRequest) (*model.PaginatedDocs, error) {
		got = req
		return &model.PaginatedDocs{
			Docs:     []map[string]any{{"id": "p1"}},
			PageInfo: model.PageInfo{TotalDocs: 1, Limit: 5, Page: 2, TotalPages: 1},
		}, nil
	}}
	user := &domainauth.User{ID: "u1", Collection: "users"}
	req := httptest.NewRequest(http.MethodGet,
		"/api/posts?where[title][equals]=hello&sort=-createdAt&limit=5&page=2&depth=1&locale=es&fallback-locale=null", nil)

	rr := serveAPI(newTestAPI(docs, nil), withUser(req, user))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "posts", got.Collection)
	assert.Equal(t, "-createdAt", got.Sort)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, 2, got.Page)
	assert.False(t, got.DisablePagination)
	assert.Equal(t, service.ReadOptions{Depth: 1, Locale: "es", FallbackLocale: "null"}, got.Read)
	assert.Same(t, user, got.Caller.User)

	want, err := query.FromValues(req.URL.Query(), "where")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got.Where); diff != "" {
		t.Errorf("where mismatch (-want +got):\n%s", diff)
	}

	body := decodeBody(t, rr)
	assert.Len(t, body["docs"], 1)
}

func TestAPI_Find_DepthCappedAndValidated(t *testing.T) {
	var got service.FindRequest
	docs := &mockDocs{findFunc: func(_ context.Context, req service.FindRequest) (*model.PaginatedDocs, error) {
		got = req
		return &model.PaginatedDocs{}, nil
	}}
	h := newTestAPI(docs, nil)

	rr := serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts?depth=50&pagination=false", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.MaxDepth, got.Read.Depth)
	assert.True(t, got.DisablePagination)

	rr = serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.DefaultDepth, got.Read.Depth)

	rr = serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts?depth=-1", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "depth", decodeBody(t, rr)["field"])

	rr = serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_Create(t *testing.T) {
	var got service.WriteRequest
	docs := &mockDocs{createFunc: func(_ context.Context, req service.WriteRequest) (map[string]any, error) {
		got = req
		return map[string]any{"id": "p9", "title": req.Data["title"]}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/posts?locale=en", strings.NewReader(`{"title":"Hi","views":3}`))
	req.Header.Set("Content-Type", "application/json")

	rr := serveAPI(newTestAPI(docs, nil), req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "en", got.Locale)
	assert.Equal(t, map[string]any{"title": "Hi", "views": int64(3)}, got.Data)
	body := decodeBody(t, rr)
	assert.Equal(t, "Successfully created.", body["message"])
	assert.Equal(t, map[string]any{"id": "p9", "title": "Hi"}, body["doc"])
}

func TestAPI_Create_InvalidJSON(t *testing.T) {
	rr := serveAPI(newTestAPI(nil, nil), httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_DocumentByID(t *testing.T) {
	var updated service.WriteRequest
	var deleted service.DeleteRequest
	docs := &mockDocs{
		findByIDFunc: func(_ context.Context, req service.GetRequest) (map[string]any, error) {
			if req.ID == "missing" {
				return nil, apperrors.NotFound("The requested resource was not found.")
			}
			return map[string]any{"id": req.ID}, nil
		},
		updateFunc: func(_ context.Context, req service.WriteRequest) (map[string]any, error) {
			updated = req
			return map[string]any{"id": req.ID}, nil
		},
		deleteFunc: func(_ context.Context, req service.DeleteRequest) (map[string]any, error) {
			deleted = req
			return map[string]any{"id": req.ID}, nil
		},
	}
	h := newTestAPI(docs, nil)

	rr := serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts/p1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "p1", decodeBody(t, rr)["id"])

	rr = serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeBody(t, rr)["error"])

	rr = serveAPI(h, httptest.NewRequest(http.MethodPatch, "/api/posts/p1", strings.NewReader(`{"title":"x"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "p1", updated.ID)
	assert.Equal(t, "Updated successfully.", decodeBody(t, rr)["message"])

	rr = serveAPI(h, httptest.NewRequest(http.MethodDelete, "/api/posts/p1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.DeleteRequest{Collection: "posts", ID: "p1"}, deleted)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	rr := serveAPI(newTestAPI(nil, nil), httptest.NewRequest(http.MethodPut, "/api/posts/p1", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "DELETE, GET, PATCH", rr.Header().Get("Allow"))
}

func TestAPI_NotFoundPaths(t *testing.T) {
	h := newTestAPI(nil, nil)
	for _, p := range []string{"/api", "/api/", "/api/posts/p1/unknown", "/api/a/b/c/d", "/api/globals/nav/other"} {
		rr := serveAPI(h, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, p)
	}
}

func TestAPI_Globals(t *testing.T) {
	var got service.GlobalRequest
	docs := &mockDocs{updateGlobalFunc: func(_ context.Context, req service.GlobalRequest) (map[string]any, error) {
		got = req
		return map[string]any{"globalType": req.Slug}, nil
	}}
	h := newTestAPI(docs, nil)

	rr := serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/globals/nav", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nav", decodeBody(t, rr)["globalType"])

	rr = serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/globals/nav?locale=fr", strings.NewReader(`null`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fr", got.Locale)
	assert.Equal(t, map[string]any{}, got.Data)
}

func TestAPI_Versions(t *testing.T) {
	var list service.VersionsRequest
	var one service.VersionRequest
	docs := &mockDocs{
		listVersionsFunc: func(_ context.Context, req service.VersionsRequest) (*model.VersionPage, error) {
			list = req
			return &model.VersionPage{}, nil
		},
		findVersionFunc: func(_ context.Context, req service.VersionRequest) (*model.Version, error) {
			one = req
			return &model.Version{ID: req.ID, ParentID: "p1", CreatedAt: time.Unix(0, 0).UTC()}, nil
		},
	}
	h := newTestAPI(docs, nil)

	tests := []struct {
		path  string
		check func(t *testing.T)
	}{
		{"/api/posts/versions?parent=p1&limit=3", func(t *testing.T) {
			assert.Equal(t, service.VersionsRequest{Entity: model.VersionEntityCollection, Slug: "posts", ParentID: "p1", Limit: 3}, list)
		}},
		{"/api/posts/p2/versions", func(t *testing.T) {
			assert.Equal(t, "p2", list.ParentID)
		}},
		{"/api/posts/versions/v7", func(t *testing.T) {
			assert.Equal(t, service.VersionRequest{Entity: model.VersionEntityCollection, Slug: "posts", ID: "v7"}, one)
		}},
		{"/api/globals/nav/versions?page=2", func(t *testing.T) {
			assert.Equal(t, service.VersionsRequest{Entity: model.VersionEntityGlobal, Slug: "nav", Page: 2}, list)
		}},
		{"/api/globals/nav/versions/v8", func(t *testing.T) {
			assert.Equal(t, service.VersionRequest{Entity: model.VersionEntityGlobal, Slug: "nav", ID: "v8"}, one)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serveAPI(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			tt.check(t)
		})
	}
}

func TestAPI_Login(t *testing.T) {
	var got service.LoginInput
	auth := &mockAuthService{loginFunc: func(_ context.Context, in service.LoginInput) (*service.LoginResult, error) {
		got = in
		return testLoginResult(in.Collection, in.Email), nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"a@example.com","password":"pw"}`))

	rr := serveAPI(newTestAPI(nil, auth), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.LoginInput{Collection: "users", Email: "a@example.com", Password: "pw"}, got)
	body := decodeBody(t, rr)
	assert.Equal(t, "Auth Passed", body["message"])
	assert.Equal(t, "a@example.com", body["user"].(map[string]any)["email"])
	assert.NotContains(t, rr.Body.String(), "test-session-id")

	sess := findCookie(t, rr, SessionCookieName)
	require.NotNil(t, sess)
	assert.Equal(t, "test-session-id", sess.Value)
	assert.True(t, sess.HttpOnly)
}

func TestAPI_Login_Failure(t *testing.T) {
	auth := &mockAuthService{loginFunc: func(context.Context, service.LoginInput) (*service.LoginResult, error) {
		return nil, apperrors.Unauthorized("The email or password provided is incorrect.")
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"a@example.com","password":"bad"}`))

	rr := serveAPI(newTestAPI(nil, auth), req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, findCookie(t, rr, SessionCookieName))
}

func TestAPI_LoginRequiresPost(t *testing.T) {
	rr := serveAPI(newTestAPI(nil, nil), httptest.NewRequest(http.MethodGet, "/api/users/login", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestAPI_Logout(t *testing.T) {
	var loggedOut string
	auth := &mockAuthService{logoutFunc: func(_ context.Context, id string) error {
		loggedOut = id
		return nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})

	rr := serveAPI(newTestAPI(nil, auth), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sess-1", loggedOut)
	assert.Equal(t, -1, findCookie(t, rr, SessionCookieName).MaxAge)
}

func TestAPI_Me(t *testing.T) {
	h := newTestAPI(nil, nil)

	rr := serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decodeBody(t, rr)["user"])

	user := &domainauth.User{ID: "u1", Collection: "users", Email: "a@example.com"}
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(SetAuthInContext(req.Context(), service.Authentication{
		User:    user,
		Session: &domainauth.Session{ID: "s", ExpiresAt: exp},
	}))
	rr = serveAPI(h, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "users", body["collection"])
	assert.InDelta(t, float64(exp.Unix()), body["exp"], 0)

	// A user from another auth collection is not "me" here.
	rr = serveAPI(h, withUser(httptest.NewRequest(http.MethodGet, "/api/editors/me", nil), user))
	assert.Nil(t, decodeBody(t, rr)["user"])
}

func TestAPI_Init(t *testing.T) {
	tests := []struct {
		name   string
		status route.InitStatus
		slug   string
		code   int
		want   any
	}{
		{"ready", route.InitReady, "users", http.StatusOK, true},
		{"uninitialized", route.InitUninitialized, "users", http.StatusOK, false},
		{"unknown", route.InitUnknown, "users", http.StatusGatewayTimeout, nil},
		{"non admin collection", route.InitReady, "editors", http.StatusNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAPI(nil, nil)
			h.Init = staticInit(tt.status)
			rr := serveAPI(h, httptest.NewRequest(http.MethodGet, "/api/"+tt.slug+"/init", nil))
			require.Equal(t, tt.code, rr.Code)
			if tt.want != nil {
				assert.Equal(t, tt.want, decodeBody(t, rr)["initialized"])
			}
		})
	}
}

func TestAPI_FirstRegister(t *testing.T) {
	var got service.FirstUserInput
	auth := &mockAuthService{firstUserFunc: func(_ context.Context, in service.FirstUserInput) (*service.LoginResult, error) {
		got = in
		return testLoginResult("users", in.Email), nil
	}}
	h := newTestAPI(nil, auth)
	body := `{"email":"first@example.com","password":"pw","name":"Ada"}`

	rr := serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/users/first-register", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.FirstUserInput{Email: "first@example.com", Password: "pw", Data: map[string]any{"name": "Ada"}}, got)
	require.NotNil(t, findCookie(t, rr, SessionCookieName))

	rr = serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/editors/first-register", strings.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_ForgotPassword_AlwaysSucceeds(t *testing.T) {
	var got service.ForgotPasswordInput
	auth := &mockAuthService{forgotFunc: func(_ context.Context, in service.ForgotPasswordInput) error {
		got = in
		return nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/users/forgot-password", strings.NewReader(`{"email":"nobody@example.com"}`))

	rr := serveAPI(newTestAPI(nil, auth), req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.ForgotPasswordInput{Collection: "users", Email: "nobody@example.com"}, got)
	assert.Equal(t, "Success", decodeBody(t, rr)["message"])
}

func TestAPI_ResetPassword(t *testing.T) {
	var got service.ResetPasswordInput
	auth := &mockAuthService{resetFunc: func(_ context.Context, in service.ResetPasswordInput) (*service.LoginResult, error) {
		got = in
		if in.Token != "good" {
			return nil, apperrors.ValidationField("token", "Token is either invalid or has expired.")
		}
		return testLoginResult(in.Collection, "a@example.com"), nil
	}}
	h := newTestAPI(nil, auth)

	rr := serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/users/reset-password", strings.NewReader(`{"token":"good","password":"new"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, service.ResetPasswordInput{Collection: "users", Token: "good", Password: "new"}, got)
	require.NotNil(t, findCookie(t, rr, SessionCookieName))

	rr = serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/users/reset-password", strings.NewReader(`{"token":"bad","password":"new"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "token", decodeBody(t, rr)["field"])
	assert.Nil(t, findCookie(t, rr, SessionCookieName))
}

func TestAPI_VerifyEmail(t *testing.T) {
	var gotCollection, gotToken string
	auth := &mockAuthService{verifyFunc: func(_ context.Context, collection, token string) error {
		gotCollection, gotToken = collection, token
		return nil
	}}

	rr := serveAPI(newTestAPI(nil, auth), httptest.NewRequest(http.MethodPost, "/api/users/verify/tok123", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "users", gotCollection)
	assert.Equal(t, "tok123", gotToken)
}

func TestAPI_RotateAPIKey(t *testing.T) {
	var got service.RotateAPIKeyInput
	auth := &mockAuthService{rotateFunc: func(_ context.Context, in service.RotateAPIKeyInput) (string, error) {
		got = in
		if in.Caller.User == nil {
			return "", apperrors.Forbidden("You are not allowed to perform this action.")
		}
		return "k-123", nil
	}}
	h := newTestAPI(nil, auth)

	rr := serveAPI(h, httptest.NewRequest(http.MethodPost, "/api/users/u1/api-key", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)

	user := &domainauth.User{ID: "u1", Collection: "users"}
	rr = serveAPI(h, withUser(httptest.NewRequest(http.MethodPost, "/api/users/u1/api-key", nil), user))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "users", got.Collection)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "k-123", decodeBody(t, rr)["apiKey"])
}
