package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
)

// AdminHandlers serves the server-rendered admin panel. Every request is
// resolved against the route table to exactly one view before rendering.
type AdminHandlers struct {
	T        *TemplateRenderer
	Docs     DocumentServiceInterface
	Auth     AuthServiceInterface
	Init     InitStatusProvider
	Perms    PermissionProvider
	Hydrator HydratorInterface
	Table    *route.Table

	// Root is the mount point of the panel; APIPrefix is linked from edit views.
	Root      string
	APIPrefix string
	UserSlug  string
	// LogoutRoute is admin-relative.
	LogoutRoute string
	// PageLimits are the list view page sizes when a collection sets none.
	PageLimits []int
	// OAuthLogin shows the identity provider link on the login view.
	OAuthLogin   bool
	CookieDomain string
	Logger       *slog.Logger
}

// viewRequest is the router's decision for one request plus the snapshot it was made from.
type viewRequest struct {
	route.Resolution
	Snap route.Snapshot
	// Path is admin-relative.
	Path string
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AdminHandlers) jar() cookieJar { return cookieJar{Domain: h.CookieDomain} }

func (h *AdminHandlers) schema() *schema.Config { return h.Docs.Schema() }

// path joins an admin-relative path to the admin root.
func (h *AdminHandlers) path(rel string) string {
	root := strings.TrimSuffix(h.Root, "/")
	if rel == "" || rel == "/" {
		if root == "" {
			return "/"
		}
		return root
	}
	return root + "/" + strings.TrimPrefix(rel, "/")
}

// postViews accept form submissions.
var postViews = map[route.View]bool{
	route.ViewCreateFirstUser: true,
	route.ViewLogin:           true,
	route.ViewForgotPassword:  true,
	route.ViewResetPassword:   true,
	route.ViewAccount:         true,
	route.ViewCreate:          true,
	route.ViewEdit:            true,
	route.ViewGlobal:          true,
}

// minimalViews render without navigation.
var minimalViews = map[route.View]bool{
	route.ViewLoading:          true,
	route.ViewCreateFirstUser:  true,
	route.ViewLogin:            true,
	route.ViewLogout:           true,
	route.ViewLogoutInactivity: true,
	route.ViewForgotPassword:   true,
	route.ViewResetPassword:    true,
	route.ViewVerify:           true,
}

// ServeHTTP resolves the request to a view and renders it.
func (h *AdminHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(h.Root, "/"))
	if rel == "" {
		rel = "/"
	}

	snap := h.snapshot(r)
	res := h.Table.Resolve(snap, rel)
	if res.Redirect != "" {
		target := h.path(res.Redirect)
		if res.Redirect == route.PathLogin && rel != "/" {
			target += "?redirect=" + url.QueryEscape(r.URL.RequestURI())
		}
		redirectTo(w, r, target)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodPost:
		if !postViews[res.View] {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v := viewRequest{Resolution: res, Snap: snap, Path: rel}
	switch res.View {
	case route.ViewLoading:
		h.loading(w, r, v)
	case route.ViewCreateFirstUser:
		h.firstUser(w, r, v)
	case route.ViewLogin:
		h.login(w, r, v)
	case route.ViewLogout, route.ViewLogoutInactivity:
		h.logout(w, r, v)
	case route.ViewForgotPassword:
		h.forgot(w, r, v)
	case route.ViewResetPassword:
		h.reset(w, r, v)
	case route.ViewVerify:
		h.verify(w, r, v)
	case route.ViewDashboard:
		h.dashboard(w, r, v)
	case route.ViewList:
		h.list(w, r, v)
	case route.ViewAccount, route.ViewCreate, route.ViewEdit, route.ViewGlobal:
		h.edit(w, r, v)
	case route.ViewVersions, route.ViewGlobalVersions:
		h.versions(w, r, v)
	case route.ViewVersion, route.ViewGlobalVersion:
		h.version(w, r, v)
	case route.ViewUnauthorized:
		h.unauthorized(w, r, v)
	case route.ViewCustom:
		h.custom(w, r, v)
	default:
		h.notFound(w, r, v)
	}
}

func (h *AdminHandlers) snapshot(r *http.Request) route.Snapshot {
	auth, resolved := AuthFromContext(r.Context())
	s := route.Snapshot{
		Init:         h.Init.Status(r.Context()),
		UserResolved: resolved,
		User:         auth.User,
	}
	if s.User != nil && s.Init == route.InitReady {
		s.Permissions = h.Perms.Permissions(r.Context(), s.User)
	}
	return s
}

// base is the layout data shared by every view.
func (h *AdminHandlers) base(r *http.Request, v viewRequest, title string) *TemplateDataBuilder {
	data := map[string]any{
		"Title":      title,
		"View":       string(v.View),
		"AdminRoot":  h.path("/"),
		"APIRoot":    h.APIPrefix,
		"CSRFToken":  GetCSRFToken(r),
		"User":       v.Snap.User,
		"AccountURL": h.path(route.PathAccount),
		"LogoutURL":  h.path(h.LogoutRoute),
		"Minimal":    minimalViews[v.View],
	}
	if v.Snap.User != nil && v.Snap.Permissions.AdminAccess() == access.Allowed {
		data["NavCollections"], data["NavGlobals"] = h.nav(v)
	}
	return newTemplateData(data)
}

func (h *AdminHandlers) nav(v viewRequest) ([]NavLink, []NavLink) {
	sc := h.schema()
	perms := v.Snap.Permissions
	active := func(entity access.EntityType, slug string) bool {
		return v.Route != nil && v.Route.Slug == slug && v.Route.Guard.Entity == entity
	}

	var cols, globals []NavLink
	for _, c := range sc.Collections {
		if c.Admin.Hidden || !perms.Check(access.EntityCollection, c.Slug, access.ActionRead) {
			continue
		}
		cols = append(cols, NavLink{
			Label:  c.Labels.Plural,
			Href:   h.path("/collections/" + c.Slug),
			Active: active(access.EntityCollection, c.Slug),
		})
	}
	for _, g := range sc.Globals {
		if !perms.Check(access.EntityGlobal, g.Slug, access.ActionRead) {
			continue
		}
		globals = append(globals, NavLink{
			Label:  g.Label,
			Href:   h.path("/globals/" + g.Slug),
			Active: active(access.EntityGlobal, g.Slug),
		})
	}
	return cols, globals
}

// render picks the chrome: htmx swaps get the content area only.
func (h *AdminHandlers) render(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	var err error
	switch {
	case WantsPartial(r):
		err = h.T.RenderPartial(w, status, data)
	case data["Minimal"] == true:
		err = h.T.RenderMinimal(w, status, data)
	default:
		err = h.T.RenderFull(w, status, data)
	}
	if err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// formStatus keeps htmx form responses at 200 so the fragment is swapped in.
func formStatus(r *http.Request, status int) int {
	if IsHTMX(r) {
		return http.StatusOK
	}
	return status
}

func (h *AdminHandlers) loading(w http.ResponseWriter, r *http.Request, v viewRequest) {
	h.render(w, r, http.StatusOK, h.base(r, v, "Loading").Build())
}

func (h *AdminHandlers) notFound(w http.ResponseWriter, r *http.Request, v viewRequest) {
	v.View = route.ViewNotFound
	h.render(w, r, http.StatusNotFound, h.base(r, v, "Nothing found").Build())
}

func (h *AdminHandlers) unauthorized(w http.ResponseWriter, r *http.Request, v viewRequest) {
	v.View = route.ViewUnauthorized
	h.render(w, r, http.StatusForbidden, h.base(r, v, "Unauthorized").Build())
}

// dashboardCard is one collection or global tile.
type dashboardCard struct {
	Label     string
	Href      string
	CreateURL string
}

func (h *AdminHandlers) dashboard(w http.ResponseWriter, r *http.Request, v viewRequest) {
	sc := h.schema()
	perms := v.Snap.Permissions

	var cols, globals []dashboardCard
	for _, c := range sc.Collections {
		if c.Admin.Hidden || !perms.Check(access.EntityCollection, c.Slug, access.ActionRead) {
			continue
		}
		card := dashboardCard{Label: c.Labels.Plural, Href: h.path("/collections/" + c.Slug)}
		if perms.Check(access.EntityCollection, c.Slug, access.ActionCreate) {
			card.CreateURL = h.path("/collections/" + c.Slug + "/create")
		}
		cols = append(cols, card)
	}
	for _, g := range sc.Globals {
		if perms.Check(access.EntityGlobal, g.Slug, access.ActionRead) {
			globals = append(globals, dashboardCard{Label: g.Label, Href: h.path("/globals/" + g.Slug)})
		}
	}

	data := h.base(r, v, "Dashboard").
		With("Collections", cols).
		With("Globals", globals).
		Build()
	h.render(w, r, http.StatusOK, data)
}

func (h *AdminHandlers) custom(w http.ResponseWriter, r *http.Request, v viewRequest) {
	if v.Route == nil || v.Route.Custom == nil {
		h.notFound(w, r, v)
		return
	}
	in := route.RenderInput{Params: v.Params, User: v.Snap.User}
	if v.Snap.Permissions != nil {
		in.CanAccessAdmin = v.Snap.Permissions.CanAccessAdmin
	}
	page := v.Route.Custom.Render(in)

	links := make([]NavLink, 0, len(page.Links))
	for _, l := range page.Links {
		links = append(links, NavLink{Label: l.Label, Href: h.path(l.Href)})
	}
	data := h.base(r, v, page.Title).
		With("Page", page).
		With("PageLinks", links).
		With("Minimal", page.Template == route.TemplateMinimal).
		Build()
	h.render(w, r, http.StatusOK, data)
}

// limitsFor returns the page sizes offered for a collection.
func (h *AdminHandlers) limitsFor(c schema.CollectionConfig) []int {
	switch {
	case len(c.Admin.Pagination.Limits) > 0:
		return c.Admin.Pagination.Limits
	case len(h.PageLimits) > 0:
		return h.PageLimits
	}
	return model.DefaultPageLimits
}
