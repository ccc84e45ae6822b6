// Package route builds the admin route table from the CMS schema and resolves
// a request path to exactly one view.
//
// Table construction is a pure function of configuration. Resolution is a
// pure function of the table, a session snapshot and the path, so the HTTP
// layer only has to gather the snapshot and render what it is told to.
package route

import (
	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
)

// View identifies a leaf screen of the admin panel.
type View string

const (
	ViewLoading          View = "loading"
	ViewCreateFirstUser  View = "create-first-user"
	ViewLogin            View = "login"
	ViewLogout           View = "logout"
	ViewLogoutInactivity View = "logout-inactivity"
	ViewForgotPassword   View = "forgot"
	ViewResetPassword    View = "reset"
	ViewVerify           View = "verify"
	ViewDashboard        View = "dashboard"
	ViewAccount          View = "account"
	ViewList             View = "list"
	ViewCreate           View = "create"
	ViewEdit             View = "edit"
	ViewVersions         View = "versions"
	ViewVersion          View = "version"
	ViewGlobal           View = "global"
	ViewGlobalVersions   View = "global-versions"
	ViewGlobalVersion    View = "global-version"
	ViewUnauthorized     View = "unauthorized"
	ViewNotFound         View = "not-found"
	ViewCustom           View = "custom"
)

// Guard names the permission an entity route requires. The zero Guard means ungated.
type Guard struct {
	Entity access.EntityType
	Slug   string
	Action access.Action
}

// IsZero reports whether the guard gates nothing.
func (g Guard) IsZero() bool { return g.Action == "" }

// Route is one (pattern, guard, view) entry of the table.
type Route struct {
	Pattern string
	MatchOptions
	View  View
	Guard Guard
	// Public routes render without a signed-in user.
	Public bool
	// Slug is the collection or global the route belongs to, if any.
	Slug string
	// Custom carries the renderer for ViewCustom routes.
	Custom *CustomRoute
}

// Template selects the page chrome a custom view renders inside.
type Template string

const (
	TemplateDefault Template = "default"
	TemplateMinimal Template = "minimal"
)

// Page is what a custom renderer produces.
type Page struct {
	Title    string
	Template Template
	Heading  string
	Body     string
	Links    []Link
}

// Link is a navigational anchor on a custom page. Href is relative to the admin root.
type Link struct {
	Label string
	Href  string
}

// RenderInput is handed to custom renderers.
type RenderInput struct {
	Params         Params
	User           *domainauth.User
	CanAccessAdmin *bool
}

// RenderFn renders a custom admin view.
type RenderFn func(in RenderInput) Page

// CustomRoute is a registered custom admin route.
type CustomRoute struct {
	Path string
	MatchOptions
	Render RenderFn
}
