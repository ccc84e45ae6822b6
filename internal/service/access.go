package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/schema"
)

// ExpressionEvaluator abstracts JMESPath operations for testability.
type ExpressionEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements ExpressionEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// AccessServiceOptions groups dependencies for AccessService.
type AccessServiceOptions struct {
	Schema *schema.Config
	Cache  *core.PermissionCache // Optional
	Config AccessServiceConfig
}

// AccessServiceConfig holds optional AccessService settings.
type AccessServiceConfig struct {
	// UserSlug names the collection whose users may open the admin panel.
	UserSlug  string
	Evaluator ExpressionEvaluator
	Logger    *slog.Logger
}

// AccessService evaluates access expressions and builds per-user permission snapshots.
//
// Expressions are evaluated against {"user": <claims or null>} and allow the
// action when the result is truthy. An empty expression allows any signed-in user.
type AccessService struct {
	schema   *schema.Config
	cache    *core.PermissionCache
	userSlug string
	eval     ExpressionEvaluator
	logger   *slog.Logger
}

// NewAccessService validates every access expression in the schema and returns the service.
func NewAccessService(opts AccessServiceOptions) (*AccessService, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("access service: schema is required")
	}
	eval := opts.Config.Evaluator
	if eval == nil {
		eval = jmespathLibEvaluator{}
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &AccessService{
		schema:   opts.Schema,
		cache:    opts.Cache,
		userSlug: opts.Config.UserSlug,
		eval:     eval,
		logger:   logger.With("component", "access"),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AccessService) validate() error {
	check := func(owner string, rules schema.AccessRules) error {
		for _, expr := range []string{rules.Read, rules.Create, rules.Update, rules.Delete, rules.ReadVersions, rules.Admin} {
			if err := s.eval.Validate(expr); err != nil {
				return fmt.Errorf("%s: invalid access expression %q: %w", owner, expr, err)
			}
		}
		return nil
	}
	for _, c := range s.schema.Collections {
		if err := check("collection "+c.Slug, c.Access); err != nil {
			return err
		}
	}
	for _, g := range s.schema.Globals {
		if err := check("global "+g.Slug, g.Access); err != nil {
			return err
		}
	}
	return nil
}

// Allowed reports whether user may perform action on the entity.
// Unknown entities and unknown actions deny.
func (s *AccessService) Allowed(user *domainauth.User, entity access.EntityType, slug string, action access.Action) bool {
	var rules schema.AccessRules
	switch entity {
	case access.EntityCollection:
		c, ok := s.schema.Collection(slug)
		if !ok {
			return false
		}
		rules = c.Access
	case access.EntityGlobal:
		g, ok := s.schema.Global(slug)
		if !ok {
			return false
		}
		rules = g.Access
	default:
		return false
	}

	expr, ok := ruleFor(rules, action)
	if !ok {
		return false
	}
	return s.evaluate(user, expr)
}

// CanAccessAdmin reports whether user may open the admin panel: the user must
// belong to the admin user collection and pass its admin expression, if any.
func (s *AccessService) CanAccessAdmin(user *domainauth.User) bool {
	if user == nil || user.Collection != s.userSlug {
		return false
	}
	users, ok := s.schema.Collection(s.userSlug)
	if !ok {
		return false
	}
	return s.evaluate(user, users.Access.Admin)
}

// Permissions returns the permission snapshot for user, using the cache when configured.
// The result is always resolved (never nil).
func (s *AccessService) Permissions(ctx context.Context, user *domainauth.User) *access.PermissionSet {
	if user != nil {
		if cached := s.cache.Get(ctx, user.Collection, user.ID); cached != nil {
			return cached
		}
	}

	set := access.NewPermissionSet(s.CanAccessAdmin(user))
	for _, c := range s.schema.Collections {
		for _, a := range access.CollectionActions {
			if a == access.ActionReadVersions && !c.HasVersions() {
				continue
			}
			set.Set(access.EntityCollection, c.Slug, a, s.Allowed(user, access.EntityCollection, c.Slug, a))
		}
	}
	for _, g := range s.schema.Globals {
		for _, a := range access.GlobalActions {
			if a == access.ActionReadVersions && !g.HasVersions() {
				continue
			}
			set.Set(access.EntityGlobal, g.Slug, a, s.Allowed(user, access.EntityGlobal, g.Slug, a))
		}
	}

	if user != nil {
		s.cache.Set(ctx, user.Collection, user.ID, set)
	}
	return set
}

// Invalidate drops the cached snapshot of a user.
func (s *AccessService) Invalidate(ctx context.Context, collection, userID string) {
	if err := s.cache.Invalidate(ctx, collection, userID); err != nil {
		s.logger.WarnContext(ctx, "permission cache invalidation failed",
			"collection", collection, "user_id", userID, "error", err)
	}
}

func (s *AccessService) evaluate(user *domainauth.User, expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return user != nil
	}
	var claims any
	if user != nil {
		claims = user.Claims()
	}
	out, err := s.eval.Evaluate(expr, map[string]any{"user": claims})
	if err != nil {
		s.logger.Warn("access expression failed", "expression", expr, "error", err)
		return false
	}
	return truthy(out)
}

func ruleFor(rules schema.AccessRules, action access.Action) (string, bool) {
	switch action {
	case access.ActionRead:
		return rules.Read, true
	case access.ActionCreate:
		return rules.Create, true
	case access.ActionUpdate:
		return rules.Update, true
	case access.ActionDelete:
		return rules.Delete, true
	case access.ActionReadVersions:
		return rules.ReadVersions, true
	}
	return "", false
}

// truthy follows JMESPath truthiness: false, null, "", empty arrays and objects are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}
