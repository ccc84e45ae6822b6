package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // legacy index format, kept readable for existing keys
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
)

// APIKeyOutcome classifies an API-key authentication attempt.
type APIKeyOutcome int

const (
	// APIKeyNotApplicable means the header is not an API-key header for a known collection.
	APIKeyNotApplicable APIKeyOutcome = iota
	APIKeyMatched
	APIKeyNoMatch
	// APIKeyLookupFailed means the store errored. Callers treat it like APIKeyNoMatch.
	APIKeyLookupFailed
)

func (o APIKeyOutcome) String() string {
	switch o {
	case APIKeyMatched:
		return "matched"
	case APIKeyNoMatch:
		return "no-match"
	case APIKeyLookupFailed:
		return "lookup-failed"
	default:
		return "not-applicable"
	}
}

// APIKeyResult is the outcome of one attempt. User is set only when Outcome is APIKeyMatched.
type APIKeyResult struct {
	Outcome APIKeyOutcome
	User    *domainauth.User
	Err     error
}

// apiKeyFinder is the slice of DocumentService the strategy needs.
type apiKeyFinder interface {
	Find(ctx context.Context, req FindRequest) (*model.PaginatedDocs, error)
}

// APIKeyStrategyOptions groups dependencies for APIKeyStrategy.
type APIKeyStrategyOptions struct {
	Finder apiKeyFinder
	Schema *schema.Config
	Config APIKeyStrategyConfig
}

// APIKeyStrategyConfig holds APIKeyStrategy settings.
type APIKeyStrategyConfig struct {
	// Secret keys the HMAC digests stored in apiKeyIndex.
	Secret string
	Logger *slog.Logger
}

// APIKeyStrategy authenticates "Authorization: <slug> API-Key <token>" headers.
type APIKeyStrategy struct {
	finder apiKeyFinder
	schema *schema.Config
	secret []byte
	logger *slog.Logger
}

// ErrMissingSecret is returned when an API-key strategy is built without a secret.
var ErrMissingSecret = errors.New("api key strategy: secret is required")

// NewAPIKeyStrategy constructs a new APIKeyStrategy.
func NewAPIKeyStrategy(opts APIKeyStrategyOptions) (*APIKeyStrategy, error) {
	if opts.Finder == nil || opts.Schema == nil {
		return nil, errors.New("api key strategy: finder and schema are required")
	}
	if opts.Config.Secret == "" {
		return nil, ErrMissingSecret
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &APIKeyStrategy{
		finder: opts.Finder,
		schema: opts.Schema,
		secret: []byte(opts.Config.Secret),
		logger: logger.With("component", "api_key_auth"),
	}, nil
}

const apiKeyScheme = "API-Key"

// parseAPIKeyHeader splits "<slug> API-Key <token>". The token is everything after
// the scheme, spaces included. Any other shape returns ok == false.
func parseAPIKeyHeader(header string) (slug, token string, ok bool) {
	slug, token, found := strings.Cut(header, " "+apiKeyScheme+" ")
	if !found || slug == "" || token == "" || strings.ContainsAny(slug, " \t") {
		return "", "", false
	}
	return slug, token, true
}

// Authenticate resolves the header to a user. It never returns an error; store
// failures are reported as APIKeyLookupFailed with Err set.
func (s *APIKeyStrategy) Authenticate(ctx context.Context, header string) APIKeyResult {
	slug, token, ok := parseAPIKeyHeader(header)
	if !ok {
		return APIKeyResult{Outcome: APIKeyNotApplicable}
	}
	col, found := s.schema.Collection(slug)
	if !found || col.Auth == nil || !col.Auth.UseAPIKey {
		return APIKeyResult{Outcome: APIKeyNotApplicable}
	}

	res, err := s.finder.Find(ctx, FindRequest{
		Collection:        slug,
		Where:             s.lookupWhere(col, token),
		Limit:             1,
		DisablePagination: true,
		Read:              ReadOptions{Depth: col.Auth.Depth},
		Caller:            Caller{OverrideAccess: true},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "api key lookup failed", "collection", slug, "error", err)
		return APIKeyResult{Outcome: APIKeyLookupFailed, Err: err}
	}
	if len(res.Docs) == 0 {
		return APIKeyResult{Outcome: APIKeyNoMatch}
	}

	user := userFromFlat(slug, domainauth.StrategyAPIKey, res.Docs[0])
	return APIKeyResult{Outcome: APIKeyMatched, User: user}
}

// lookupWhere matches either digest of token, and requires verification when the collection does.
func (s *APIKeyStrategy) lookupWhere(col schema.CollectionConfig, token string) query.Where {
	match := query.Or(
		query.Equals(schema.KeyAPIKeyIndex, s.legacyIndex(token)),
		query.Equals(schema.KeyAPIKeyIndex, s.Index(token)),
	)
	if !col.Auth.Verify {
		return match
	}
	return query.And(match, query.Cond(schema.KeyVerified, query.OpNotEquals, false))
}

// Index returns the stored form of a new API key: hex HMAC-SHA256 under the secret.
func (s *APIKeyStrategy) Index(token string) string {
	return APIKeyIndex(s.secret, token)
}

func (s *APIKeyStrategy) legacyIndex(token string) string {
	mac := hmac.New(sha1.New, s.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyIndex computes the hex HMAC-SHA256 of token under secret.
func APIKeyIndex(secret []byte, token string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// userFromFlat builds a User from an output-shaped document.
func userFromFlat(collection string, strategy domainauth.Strategy, doc map[string]any) *domainauth.User {
	id, _ := doc["id"].(string)
	email, _ := doc["email"].(string)
	return &domainauth.User{
		ID:         id,
		Collection: collection,
		Strategy:   strategy,
		Email:      email,
		Data:       doc,
	}
}
