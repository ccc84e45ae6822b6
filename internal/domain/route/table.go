package route

import (
	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/schema"
)

// Fixed admin-relative paths.
const (
	PathCreateFirstUser = "/create-first-user"
	PathLogin           = "/login"
	PathForgot          = "/forgot"
	PathReset           = "/reset/:token"
	PathDashboard       = "/"
	PathAccount         = "/account"
	PathNotFound        = "/not-found"
)

// BuildInput is everything the route table depends on.
type BuildInput struct {
	Collections     []schema.CollectionConfig
	Globals         []schema.GlobalConfig
	UserSlug        string
	LogoutRoute     string
	InactivityRoute string
	Custom          *Registry
}

// Table is the ordered route list. Public routes are tried before protected
// ones; the first match wins.
type Table struct {
	Public    []Route
	Protected []Route
}

// All returns every route in match order.
func (t *Table) All() []Route {
	out := make([]Route, 0, len(t.Public)+len(t.Protected))
	out = append(out, t.Public...)
	return append(out, t.Protected...)
}

// Build derives the route table from configuration.
func Build(in BuildInput) *Table {
	t := &Table{}
	prefix := MatchOptions{}
	exact := MatchOptions{Exact: true}

	for _, c := range in.Custom.Routes() {
		custom := c
		t.Public = append(t.Public, Route{
			Pattern:      c.Path,
			MatchOptions: c.MatchOptions,
			View:         ViewCustom,
			Public:       true,
			Custom:       &custom,
		})
	}

	t.Public = append(t.Public,
		Route{Pattern: PathLogin, MatchOptions: prefix, View: ViewLogin, Public: true},
		Route{Pattern: in.LogoutRoute, MatchOptions: prefix, View: ViewLogout, Public: true},
		Route{Pattern: in.InactivityRoute, MatchOptions: prefix, View: ViewLogoutInactivity, Public: true},
	)

	if userLocalStrategy(in) {
		t.Public = append(t.Public,
			Route{Pattern: PathForgot, MatchOptions: prefix, View: ViewForgotPassword, Public: true},
			Route{Pattern: PathReset, MatchOptions: prefix, View: ViewResetPassword, Public: true},
		)
	}

	for _, c := range in.Collections {
		if c.VerifyRouteEnabled() {
			t.Public = append(t.Public, Route{
				Pattern:      "/" + c.Slug + "/verify/:token",
				MatchOptions: exact,
				View:         ViewVerify,
				Public:       true,
				Slug:         c.Slug,
			})
		}
	}

	t.Protected = append(t.Protected,
		Route{Pattern: PathDashboard, MatchOptions: exact, View: ViewDashboard},
		Route{Pattern: PathAccount, MatchOptions: prefix, View: ViewAccount, Slug: in.UserSlug},
	)

	for _, c := range in.Collections {
		t.Protected = append(t.Protected, collectionRoutes(c)...)
	}
	for _, g := range in.Globals {
		t.Protected = append(t.Protected, globalRoutes(g)...)
	}
	return t
}

func userLocalStrategy(in BuildInput) bool {
	for _, c := range in.Collections {
		if c.Slug == in.UserSlug {
			return c.LocalStrategyEnabled()
		}
	}
	return false
}

func collectionRoutes(c schema.CollectionConfig) []Route {
	base := "/collections/" + c.Slug
	guard := func(a access.Action) Guard {
		return Guard{Entity: access.EntityCollection, Slug: c.Slug, Action: a}
	}
	exact := MatchOptions{Exact: true}

	routes := []Route{
		{Pattern: base, MatchOptions: exact, View: ViewList, Guard: guard(access.ActionRead), Slug: c.Slug},
		{Pattern: base + "/create", MatchOptions: exact, View: ViewCreate, Guard: guard(access.ActionCreate), Slug: c.Slug},
		{Pattern: base + "/:id", MatchOptions: exact, View: ViewEdit, Guard: guard(access.ActionRead), Slug: c.Slug},
	}
	if c.HasVersions() {
		routes = append(routes,
			Route{Pattern: base + "/:id/versions", MatchOptions: exact, View: ViewVersions, Guard: guard(access.ActionReadVersions), Slug: c.Slug},
			Route{Pattern: base + "/:id/versions/:versionID", MatchOptions: exact, View: ViewVersion, Guard: guard(access.ActionReadVersions), Slug: c.Slug},
		)
	}
	return routes
}

func globalRoutes(g schema.GlobalConfig) []Route {
	base := "/globals/" + g.Slug
	guard := func(a access.Action) Guard {
		return Guard{Entity: access.EntityGlobal, Slug: g.Slug, Action: a}
	}
	exact := MatchOptions{Exact: true}

	routes := []Route{
		{Pattern: base, MatchOptions: exact, View: ViewGlobal, Guard: guard(access.ActionRead), Slug: g.Slug},
	}
	if g.HasVersions() {
		routes = append(routes,
			Route{Pattern: base + "/versions", MatchOptions: exact, View: ViewGlobalVersions, Guard: guard(access.ActionReadVersions), Slug: g.Slug},
			Route{Pattern: base + "/versions/:versionID", MatchOptions: exact, View: ViewGlobalVersion, Guard: guard(access.ActionReadVersions), Slug: g.Slug},
		)
	}
	return routes
}
