package route

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/schema"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register("/custom-default-route", MatchOptions{}, func(RenderInput) Page {
		return Page{Title: "Custom", Template: TemplateDefault}
	}))
	require.NoError(t, reg.Register("/custom-minimal-route", MatchOptions{Exact: true}, func(RenderInput) Page {
		return Page{Title: "Minimal", Template: TemplateMinimal}
	}))

	return Build(BuildInput{
		Collections: []schema.CollectionConfig{
			{Slug: "users", Auth: &schema.AuthConfig{Verify: true}},
			{Slug: "posts", Versions: &schema.VersionsConfig{}},
			{Slug: "tags"},
		},
		Globals: []schema.GlobalConfig{
			{Slug: "nav"},
			{Slug: "footer", Versions: &schema.VersionsConfig{}},
		},
		UserSlug:        "users",
		LogoutRoute:     "/logout",
		InactivityRoute: "/logout-inactivity",
		Custom:          reg,
	})
}

func adminUser() *domainauth.User {
	return &domainauth.User{ID: "u1", Collection: "users", Strategy: domainauth.StrategyLocal}
}

func fullPermissions() *access.PermissionSet {
	p := access.NewPermissionSet(true)
	for _, slug := range []string{"users", "posts", "tags"} {
		for _, a := range access.CollectionActions {
			p.Set(access.EntityCollection, slug, a, true)
		}
	}
	for _, slug := range []string{"nav", "footer"} {
		for _, a := range access.GlobalActions {
			p.Set(access.EntityGlobal, slug, a, true)
		}
	}
	return p
}

func readySnapshot() Snapshot {
	return Snapshot{Init: InitReady, UserResolved: true, User: adminUser(), Permissions: fullPermissions()}
}

func TestBuild_Order(t *testing.T) {
	table := testTable(t)

	var patterns []string
	for _, r := range table.All() {
		patterns = append(patterns, r.Pattern)
	}
	assert.Equal(t, []string{
		"/custom-default-route",
		"/custom-minimal-route",
		"/login",
		"/logout",
		"/logout-inactivity",
		"/forgot",
		"/reset/:token",
		"/users/verify/:token",
		"/",
		"/account",
		"/collections/users",
		"/collections/users/create",
		"/collections/users/:id",
		"/collections/posts",
		"/collections/posts/create",
		"/collections/posts/:id",
		"/collections/posts/:id/versions",
		"/collections/posts/:id/versions/:versionID",
		"/collections/tags",
		"/collections/tags/create",
		"/collections/tags/:id",
		"/globals/nav",
		"/globals/footer",
		"/globals/footer/versions",
		"/globals/footer/versions/:versionID",
	}, patterns)
}

func TestBuild_LocalStrategyDisabled(t *testing.T) {
	table := Build(BuildInput{
		Collections: []schema.CollectionConfig{
			{Slug: "users", Auth: &schema.AuthConfig{Verify: true, DisableLocalStrategy: true}},
		},
		UserSlug:        "users",
		LogoutRoute:     "/logout",
		InactivityRoute: "/logout-inactivity",
	})
	for _, r := range table.All() {
		assert.NotEqual(t, ViewForgotPassword, r.View)
		assert.NotEqual(t, ViewResetPassword, r.View)
		assert.NotEqual(t, ViewVerify, r.View)
	}
}

func TestResolve_InitStatus(t *testing.T) {
	table := testTable(t)

	res := table.Resolve(Snapshot{Init: InitUnknown}, "/collections/posts")
	assert.Equal(t, ViewLoading, res.View)

	res = table.Resolve(Snapshot{Init: InitUninitialized, UserResolved: true}, "/collections/posts")
	assert.Equal(t, PathCreateFirstUser, res.Redirect)

	res = table.Resolve(Snapshot{Init: InitUninitialized, UserResolved: true}, "/login")
	assert.Equal(t, PathCreateFirstUser, res.Redirect)

	res = table.Resolve(Snapshot{Init: InitUninitialized}, "/create-first-user")
	assert.Equal(t, ViewCreateFirstUser, res.View)
	assert.Empty(t, res.Redirect)
}

func TestResolve_ReadyWithoutUsersShowsLogin(t *testing.T) {
	// An SSO-only install is ready before any user document exists.
	table := testTable(t)

	res := table.Resolve(Snapshot{Init: InitReady, UserResolved: true}, "/login")
	assert.Equal(t, ViewLogin, res.View)
	assert.Empty(t, res.Redirect)

	res = table.Resolve(Snapshot{Init: InitReady, UserResolved: true}, "/create-first-user")
	assert.Equal(t, PathLogin, res.Redirect)
}

func TestResolve_Anonymous(t *testing.T) {
	table := testTable(t)
	anon := Snapshot{Init: InitReady, UserResolved: true}

	tests := []struct {
		path     string
		view     View
		redirect string
	}{
		{path: "/login", view: ViewLogin},
		{path: "/logout", view: ViewLogout},
		{path: "/logout-inactivity", view: ViewLogoutInactivity},
		{path: "/forgot", view: ViewForgotPassword},
		{path: "/reset/tok123", view: ViewResetPassword},
		{path: "/users/verify/tok123", view: ViewVerify},
		{path: "/custom-default-route", view: ViewCustom},
		{path: "/", redirect: PathLogin},
		{path: "/collections/posts", redirect: PathLogin},
		{path: "/does/not/exist", redirect: PathLogin},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := table.Resolve(anon, tt.path)
			assert.Equal(t, tt.redirect, res.Redirect)
			if tt.redirect == "" {
				assert.Equal(t, tt.view, res.View)
			}
		})
	}
}

func TestResolve_UserLoading(t *testing.T) {
	table := testTable(t)

	res := table.Resolve(Snapshot{Init: InitReady}, "/login")
	assert.Equal(t, ViewLoading, res.View, "user not yet resolved")

	res = table.Resolve(Snapshot{Init: InitReady, UserResolved: true, User: adminUser()}, "/collections/posts")
	assert.Equal(t, ViewLoading, res.View, "permissions not yet resolved")
}

func TestResolve_CanAccessAdminFalse(t *testing.T) {
	table := testTable(t)
	s := readySnapshot()
	s.Permissions = access.NewPermissionSet(false)

	assert.Equal(t, ViewUnauthorized, table.Resolve(s, "/").View)
	assert.Equal(t, ViewLogin, table.Resolve(s, "/login").View, "public routes stay reachable")
}

func TestResolve_EntityRoutes(t *testing.T) {
	table := testTable(t)
	s := readySnapshot()

	tests := []struct {
		path   string
		view   View
		slug   string
		params Params
	}{
		{path: "/", view: ViewDashboard},
		{path: "/account", view: ViewAccount, slug: "users"},
		{path: "/collections/posts", view: ViewList, slug: "posts"},
		{path: "/collections/posts/", view: ViewList, slug: "posts"},
		{path: "/collections/posts/create", view: ViewCreate, slug: "posts"},
		{path: "/collections/posts/p1", view: ViewEdit, slug: "posts", params: Params{"id": "p1"}},
		{path: "/collections/posts/p1/versions", view: ViewVersions, slug: "posts", params: Params{"id": "p1"}},
		{path: "/collections/posts/p1/versions/v9", view: ViewVersion, slug: "posts", params: Params{"id": "p1", "versionID": "v9"}},
		{path: "/collections/tags/t1/versions", view: ViewNotFound},
		{path: "/globals/nav", view: ViewGlobal, slug: "nav"},
		{path: "/globals/nav/versions", view: ViewNotFound},
		{path: "/globals/footer/versions", view: ViewGlobalVersions, slug: "footer"},
		{path: "/globals/footer/versions/v2", view: ViewGlobalVersion, slug: "footer", params: Params{"versionID": "v2"}},
		{path: "/collections/unknown", view: ViewNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := table.Resolve(s, tt.path)
			assert.Empty(t, res.Redirect)
			assert.Equal(t, tt.view, res.View)
			if tt.slug != "" {
				require.NotNil(t, res.Route)
				assert.Equal(t, tt.slug, res.Route.Slug)
			}
			if tt.params != nil {
				assert.Equal(t, tt.params, res.Params)
			}
		})
	}
}

func TestResolve_PermissionGates(t *testing.T) {
	table := testTable(t)

	cases := []struct {
		path    string
		entity  access.EntityType
		slug    string
		action  access.Action
		allowed View
	}{
		{"/collections/posts", access.EntityCollection, "posts", access.ActionRead, ViewList},
		{"/collections/posts/create", access.EntityCollection, "posts", access.ActionCreate, ViewCreate},
		{"/collections/posts/p1", access.EntityCollection, "posts", access.ActionRead, ViewEdit},
		{"/collections/posts/p1/versions", access.EntityCollection, "posts", access.ActionReadVersions, ViewVersions},
		{"/collections/posts/p1/versions/v1", access.EntityCollection, "posts", access.ActionReadVersions, ViewVersion},
		{"/globals/nav", access.EntityGlobal, "nav", access.ActionRead, ViewGlobal},
		{"/globals/footer/versions", access.EntityGlobal, "footer", access.ActionReadVersions, ViewGlobalVersions},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			s := readySnapshot()
			assert.Equal(t, tc.allowed, table.Resolve(s, tc.path).View)

			s.Permissions.Set(tc.entity, tc.slug, tc.action, false)
			assert.Equal(t, ViewUnauthorized, table.Resolve(s, tc.path).View)

			// An entity missing from the set entirely is denied, not loading.
			s.Permissions = access.NewPermissionSet(true)
			assert.Equal(t, ViewUnauthorized, table.Resolve(s, tc.path).View)
		})
	}
}

func TestResolve_CustomRoutesFirst(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("/login", MatchOptions{Exact: true}, func(RenderInput) Page {
		return Page{Title: "Branded login"}
	}))
	table := Build(BuildInput{
		Collections: []schema.CollectionConfig{{Slug: "users", Auth: &schema.AuthConfig{}}},
		UserSlug:    "users", LogoutRoute: "/logout", InactivityRoute: "/logout-inactivity",
		Custom: reg,
	})

	res := table.Resolve(Snapshot{Init: InitReady, UserResolved: true}, "/login")
	require.Equal(t, ViewCustom, res.View)
	assert.Equal(t, "Branded login", res.Route.Custom.Render(RenderInput{}).Title)

	res = table.Resolve(Snapshot{Init: InitReady, UserResolved: true}, "/login/sso")
	assert.Equal(t, ViewLogin, res.View, "exact custom route leaves deeper paths to built-ins")
}

func TestResolve_UnmatchedPathsRenderNotFound(t *testing.T) {
	table := testTable(t)
	s := readySnapshot()
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte("abcxyz/%-_")

	for i := range 500 {
		n := 1 + rng.Intn(20)
		b := make([]byte, n)
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		path := "/zz" + string(b)
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			res := table.Resolve(s, path)
			assert.Equal(t, ViewNotFound, res.View, "path %q", path)
		})
	}
}
