package route

import (
	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
)

// InitStatus reports whether the install has its first admin user.
type InitStatus int

const (
	// InitUnknown means the probe has not completed (or timed out).
	InitUnknown InitStatus = iota
	InitUninitialized
	InitReady
)

func (s InitStatus) String() string {
	switch s {
	case InitUninitialized:
		return "uninitialized"
	case InitReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is the per-request state the router decides on.
type Snapshot struct {
	Init InitStatus
	// UserResolved is false while the current user is still being looked up.
	UserResolved bool
	User         *domainauth.User
	// Permissions is nil until evaluated for User.
	Permissions *access.PermissionSet
}

// Resolution is the router's decision. Exactly one of View or Redirect is meaningful:
// when Redirect is set the caller must redirect to that admin-relative path.
type Resolution struct {
	View     View
	Route    *Route
	Params   Params
	Redirect string
}

// Resolve selects one view for path (relative to the admin root). It never fails:
// unmatched paths resolve to ViewNotFound.
func (t *Table) Resolve(s Snapshot, path string) Resolution {
	if path == "" {
		path = "/"
	}

	switch s.Init {
	case InitUninitialized:
		if params, ok := Match(PathCreateFirstUser, MatchOptions{}, path); ok {
			return Resolution{View: ViewCreateFirstUser, Params: params}
		}
		return Resolution{Redirect: PathCreateFirstUser}
	case InitReady:
	default:
		return Resolution{View: ViewLoading}
	}

	if !s.UserResolved || (s.User != nil && s.Permissions.AdminAccess() == access.Unresolved) {
		return Resolution{View: ViewLoading}
	}

	if res, ok := matchFirst(t.Public, path); ok {
		return res
	}

	if s.User == nil {
		return Resolution{Redirect: PathLogin}
	}
	if s.Permissions.AdminAccess() == access.Denied {
		return Resolution{View: ViewUnauthorized}
	}

	res, ok := matchFirst(t.Protected, path)
	if !ok {
		return Resolution{View: ViewNotFound}
	}
	if res.Route.Guard.IsZero() {
		return res
	}

	g := res.Route.Guard
	switch s.Permissions.Decide(g.Entity, g.Slug, g.Action) {
	case access.Allowed:
		return res
	case access.Denied:
		return Resolution{View: ViewUnauthorized, Route: res.Route, Params: res.Params}
	default:
		return Resolution{View: ViewLoading, Route: res.Route, Params: res.Params}
	}
}

func matchFirst(routes []Route, path string) (Resolution, bool) {
	for i := range routes {
		r := &routes[i]
		if params, ok := Match(r.Pattern, r.MatchOptions, path); ok {
			return Resolution{View: r.View, Route: r, Params: params}, true
		}
	}
	return Resolution{}, false
}
