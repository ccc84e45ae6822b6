package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type browserRequestKey struct{}

// BrowserDetection records whether the request wants HTML (admin UI) or JSON
// (REST API) so error paths can answer in kind.
func BrowserDetection(apiPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, wantsHTML(r, apiPrefix))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest reports the BrowserDetection verdict, assuming an /api
// prefix when the middleware did not run.
func IsBrowserRequest(r *http.Request) bool {
	if v, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return v
	}
	return wantsHTML(r, "/api")
}

// wantsHTML: never under the API prefix or /static/, always for HTMX, and
// otherwise when Accept is absent or names text/html.
func wantsHTML(r *http.Request, apiPrefix string) bool {
	switch {
	case hasPathPrefix(r.URL.Path, apiPrefix), strings.HasPrefix(r.URL.Path, "/static/"):
		return false
	case IsHTMX(r):
		return true
	}
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html")
}

// hasPathPrefix reports whether path is prefix or lives beneath it.
func hasPathPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// redirectTo sends the browser to target. HTMX requests get HX-Redirect
// so the whole page navigates instead of swapping a fragment.
func redirectTo(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMX(r) {
		HTMX(w).Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirectFromURL reduces an absolute URL to its same-origin path and
// query. Scheme-relative references yield "".
func safeRedirectFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return ""
	case u.IsAbs():
		return safeRedirectPath(u.RequestURI())
	case u.Host != "":
		return ""
	}
	return safeRedirectPath(raw)
}

// safeRedirectPath returns candidate when it is a rooted local path and "/"
// otherwise.
func safeRedirectPath(candidate string) string {
	if candidate == "" || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
