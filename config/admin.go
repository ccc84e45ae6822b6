package config

import (
	"slices"
	"strings"
	"time"
)

// AdminConfig controls where the admin panel and REST API are mounted and
// which collection backs admin users.
type AdminConfig struct {
	// RoutePrefix is the mount point of the admin panel (e.g., "/admin").
	RoutePrefix string `env:"ADMIN_ROUTE" envDefault:"/admin"`

	// APIPrefix is the mount point of the REST API (e.g., "/api").
	APIPrefix string `env:"API_ROUTE" envDefault:"/api"`

	// UserSlug names the auth-enabled collection whose documents may sign in to the panel.
	UserSlug string `env:"ADMIN_USER_SLUG" envDefault:"users"`

	// LogoutRoute and InactivityRoute are mounted under RoutePrefix.
	LogoutRoute     string `env:"ADMIN_LOGOUT_ROUTE"     envDefault:"/logout"`
	InactivityRoute string `env:"ADMIN_INACTIVITY_ROUTE" envDefault:"/logout-inactivity"`

	// SchemaPath points at the YAML file describing collections, globals and custom routes.
	SchemaPath string `env:"SCHEMA_PATH" envDefault:"folio.yaml"`

	// SeedPath names a fixture file loaded at startup in development mode.
	SeedPath string `env:"SEED_PATH"`

	// InitProbeTimeout bounds the "does a first user exist" probe.
	// A probe that times out leaves the initialization status unknown.
	InitProbeTimeout time.Duration `env:"INIT_PROBE_TIMEOUT" envDefault:"5s"`

	// PaginationLimits are the page sizes offered by list views.
	PaginationLimits []int `env:"ADMIN_PAGINATION_LIMITS" envDefault:"5,10,25,50,100"`

	// DefaultLimit is used when a list request names no limit.
	DefaultLimit int `env:"ADMIN_DEFAULT_LIMIT" envDefault:"10"`
}

// Sanitize applies guardrails to admin configuration values.
func (a *AdminConfig) Sanitize() {
	a.RoutePrefix = normalizeRoute(a.RoutePrefix, "/admin")
	a.APIPrefix = normalizeRoute(a.APIPrefix, "/api")
	a.LogoutRoute = normalizeRoute(a.LogoutRoute, "/logout")
	a.InactivityRoute = normalizeRoute(a.InactivityRoute, "/logout-inactivity")

	a.SeedPath = strings.TrimSpace(a.SeedPath)
	if strings.TrimSpace(a.UserSlug) == "" {
		a.UserSlug = "users"
	}
	if a.InitProbeTimeout <= 0 {
		a.InitProbeTimeout = 5 * time.Second
	}

	limits := make([]int, 0, len(a.PaginationLimits))
	for _, l := range a.PaginationLimits {
		if l > 0 {
			limits = append(limits, l)
		}
	}
	if len(limits) == 0 {
		limits = []int{5, 10, 25, 50, 100}
	}
	slices.Sort(limits)
	a.PaginationLimits = slices.Compact(limits)

	if a.DefaultLimit <= 0 || !slices.Contains(a.PaginationLimits, a.DefaultLimit) {
		a.DefaultLimit = a.PaginationLimits[0]
		if slices.Contains(a.PaginationLimits, 10) {
			a.DefaultLimit = 10
		}
	}
}

// normalizeRoute ensures a single leading slash and no trailing slash.
func normalizeRoute(route, fallback string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return fallback
	}
	route = "/" + strings.Trim(route, "/")
	if route == "/" {
		return fallback
	}
	return route
}
