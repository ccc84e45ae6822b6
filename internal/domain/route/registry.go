package route

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidCustomRoute is returned when a custom route cannot be registered.
var ErrInvalidCustomRoute = errors.New("invalid custom route")

// Registry keeps custom routes keyed by path in registration order.
// Registering an existing path replaces its renderer in place.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	routes map[string]CustomRoute
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{routes: map[string]CustomRoute{}}
}

// Register adds or replaces the renderer for path.
func (r *Registry) Register(path string, opts MatchOptions, fn RenderFn) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidCustomRoute, path)
	}
	if fn == nil {
		return fmt.Errorf("%w: path %q has no renderer", ErrInvalidCustomRoute, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[path]; !exists {
		r.order = append(r.order, path)
	}
	r.routes[path] = CustomRoute{Path: path, MatchOptions: opts, Render: fn}
	return nil
}

// Routes returns a snapshot of the registered routes in registration order.
func (r *Registry) Routes() []CustomRoute {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CustomRoute, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.routes[p])
	}
	return out
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
