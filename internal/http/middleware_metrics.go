package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/target/folio/internal/observability/metrics"
	"github.com/target/folio/internal/observability/statsd"
)

// MetricsConfig configures the request metrics middleware.
type MetricsConfig struct {
	Sink      statsd.Sink
	APIPrefix string
	AdminRoot string
}

// routeWords are the fixed path segments kept verbatim in route labels.
// Everything else (slugs, ids, tokens, custom route params) collapses to a
// placeholder so tag cardinality stays bounded.
var routeWords = map[string]bool{
	"globals": true, "collections": true, "versions": true, "create": true,
	"api-key": true, "verify": true, "init": true, "me": true,
	"login": true, "logout": true, "logout-inactivity": true,
	"first-register": true, "forgot-password": true, "reset-password": true,
	"forgot": true, "reset": true, "account": true, "create-first-user": true,
	"not-found": true, "oauth": true, "callback": true,
}

// Metrics returns a middleware that counts and times requests.
// A nil sink disables it.
func Metrics(cfg MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Sink == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			surface, route := routeLabel(r.URL.Path, cfg.APIPrefix, cfg.AdminRoot)
			metrics.EmitRequest(cfg.Sink, metrics.RequestMetric{
				Route:    route,
				Method:   r.Method,
				Status:   ww.status,
				Surface:  surface,
				Duration: time.Since(start),
			})
		})
	}
}

// routeLabel maps a request path onto its surface and a bounded label.
func routeLabel(path, apiPrefix, adminRoot string) (string, string) {
	switch {
	case path == "/healthz" || path == "/readyz":
		return "probe", path
	case strings.HasPrefix(path, "/static/"):
		return "static", "/static"
	case apiPrefix != "" && hasPathPrefix(path, apiPrefix):
		return "api", apiPrefix + labelSegments(strings.TrimPrefix(path, apiPrefix), true)
	case adminRoot != "" && hasPathPrefix(path, adminRoot):
		return "admin", adminRoot + labelSegments(strings.TrimPrefix(path, adminRoot), false)
	default:
		return "other", "other"
	}
}

func labelSegments(rest string, api bool) string {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return ""
	}
	seg := strings.Split(rest, "/")
	var b strings.Builder
	for i, s := range seg {
		b.WriteByte('/')
		switch {
		case api && i == 0 && s != "globals" && s != "oauth":
			b.WriteString("{slug}")
		case routeWords[s]:
			b.WriteString(s)
		case i > 0 && (seg[i-1] == "collections" || seg[i-1] == "globals"):
			b.WriteString("{slug}")
		default:
			b.WriteString("{param}")
		}
	}
	return b.String()
}
