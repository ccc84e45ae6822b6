package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	folio "github.com/target/folio"
	"github.com/target/folio/internal/domain/route"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router serves.
type RouterServices struct {
	Docs     DocumentServiceInterface
	Auth     AuthServiceInterface
	Init     InitStatusProvider
	Perms    PermissionProvider
	Hydrator HydratorInterface
	Table    *route.Table

	AdminRoot   string
	APIPrefix   string
	UserSlug    string
	LogoutRoute string
	PageLimits  []int
	// OAuthLogin mounts the identity provider login flow under the API prefix.
	OAuthLogin   bool
	CookieDomain string

	// Ready lists the dependencies probed by /readyz.
	Ready map[string]Pinger
	// Metrics receives request metrics when set.
	Metrics statsd.Sink
	IsDev   bool // Development mode serves templates and assets from disk.
	Logger  *slog.Logger
}

// NewRouter wires the REST API, the admin panel, static assets and probes.
func NewRouter(s RouterServices) (http.Handler, error) {
	if s.Docs == nil || s.Auth == nil || s.Init == nil || s.Perms == nil || s.Hydrator == nil || s.Table == nil {
		return nil, errors.New("router: missing required service")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS, staticFS, err := assetFS(s.IsDev)
	if err != nil {
		return nil, err
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS:   templateFS,
		StaticPrefix: "/static",
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("router: templates: %w", err)
	}

	mux := http.NewServeMux()

	api := &APIHandlers{
		Docs:         s.Docs,
		Auth:         s.Auth,
		Init:         s.Init,
		Prefix:       s.APIPrefix,
		UserSlug:     s.UserSlug,
		CookieDomain: s.CookieDomain,
		Logger:       logger,
	}
	mux.Handle(s.APIPrefix+"/", api)

	if s.OAuthLogin {
		oauth := &AuthHandlers{Svc: s.Auth, CookieDomain: s.CookieDomain, AdminRoot: s.AdminRoot, Logger: logger}
		mux.HandleFunc("GET "+s.APIPrefix+"/oauth/login", oauth.Login)
		mux.HandleFunc("GET "+s.APIPrefix+"/oauth/callback", oauth.Callback)
	}

	admin := &AdminHandlers{
		T:            tr,
		Docs:         s.Docs,
		Auth:         s.Auth,
		Init:         s.Init,
		Perms:        s.Perms,
		Hydrator:     s.Hydrator,
		Table:        s.Table,
		Root:         s.AdminRoot,
		APIPrefix:    s.APIPrefix,
		UserSlug:     s.UserSlug,
		LogoutRoute:  s.LogoutRoute,
		PageLimits:   s.PageLimits,
		OAuthLogin:   s.OAuthLogin,
		CookieDomain: s.CookieDomain,
		Logger:       logger,
	}
	csrf := CSRFProtection(CSRFConfig{Path: s.AdminRoot, CookieDomain: s.CookieDomain})
	mux.Handle(s.AdminRoot, csrf(admin))
	mux.Handle(s.AdminRoot+"/", csrf(admin))

	mux.Handle("GET /static/", staticHandler(staticFS, s.IsDev))
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.Handle("GET /readyz", readyHandler(s.Ready, logger))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && IsBrowserRequest(r) {
			http.Redirect(w, r, s.AdminRoot, http.StatusFound)
			return
		}
		WriteAppError(w, r, apperrors.NotFound("The requested resource was not found."))
	})

	var h http.Handler = mux
	h = Authenticate(s.Auth)(h)
	h = BrowserDetection(s.APIPrefix)(h)
	h = Compression(logger)(h)
	h = Metrics(MetricsConfig{Sink: s.Metrics, APIPrefix: s.APIPrefix, AdminRoot: s.AdminRoot})(h)
	h = Logging(logger)(h)
	h = RequestID(h)
	h = Recover(logger)(h)
	return h, nil
}

// assetFS returns the template and static filesystems. Dev mode reads from
// disk for hot reloading; otherwise the embedded copies are used.
func assetFS(isDev bool) (fs.FS, fs.FS, error) {
	if isDev {
		return os.DirFS(TemplatePathFromRoot), os.DirFS("frontend/static"), nil
	}
	templates, err := fs.Sub(folio.TemplateFS, "frontend/templates")
	if err != nil {
		return nil, nil, fmt.Errorf("router: embedded templates: %w", err)
	}
	static, err := fs.Sub(folio.StaticFS, "frontend/static")
	if err != nil {
		return nil, nil, fmt.Errorf("router: embedded static assets: %w", err)
	}
	return templates, static, nil
}

// staticHandler serves /static/* with cache headers suited to the mode.
func staticHandler(static fs.FS, isDev bool) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		if isDev {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		files.ServeHTTP(w, r)
	})
}
