package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // legacy index format
	"encoding/hex"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
)

type finderFunc func(ctx context.Context, req FindRequest) (*model.PaginatedDocs, error)

func (f finderFunc) Find(ctx context.Context, req FindRequest) (*model.PaginatedDocs, error) {
	return f(ctx, req)
}

func newTestAPIKeys(t *testing.T, finder apiKeyFinder) *APIKeyStrategy {
	t.Helper()
	s, err := NewAPIKeyStrategy(APIKeyStrategyOptions{
		Finder: finder,
		Schema: testSchema(),
		Config: APIKeyStrategyConfig{Secret: testSecret},
	})
	require.NoError(t, err)
	return s
}

func TestNewAPIKeyStrategy_RequiresSecret(t *testing.T) {
	_, err := NewAPIKeyStrategy(APIKeyStrategyOptions{
		Finder: finderFunc(nil),
		Schema: testSchema(),
	})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestParseAPIKeyHeader(t *testing.T) {
	tests := []struct {
		header    string
		slug, key string
		ok        bool
	}{
		{"users API-Key abc", "users", "abc", true},
		{"  users   API-Key   abc  ", "", "", false},
		{"users api-key abc", "", "", false},
		{"Bearer abc", "", "", false},
		{"users API-Key", "", "", false},
		{"users API-Key ", "", "", false},
		{" API-Key abc", "", "", false},
		{"my users API-Key abc", "", "", false},
		{"users API-Key abc extra", "users", "abc extra", true},
		{"users API-Key key API-Key tail", "users", "key API-Key tail", true},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			slug, key, ok := parseAPIKeyHeader(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.slug, slug)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestAPIKeyStrategy_NotApplicableSkipsLookup(t *testing.T) {
	calls := 0
	s := newTestAPIKeys(t, finderFunc(func(context.Context, FindRequest) (*model.PaginatedDocs, error) {
		calls++
		return &model.PaginatedDocs{}, nil
	}))

	for _, header := range []string{
		"Bearer token",
		"posts API-Key abc",   // collection without API keys
		"missing API-Key abc", // unknown collection
	} {
		res := s.Authenticate(context.Background(), header)
		assert.Equal(t, APIKeyNotApplicable, res.Outcome, header)
		assert.Nil(t, res.User)
	}
	assert.Zero(t, calls)
}

func TestAPIKeyStrategy_LookupQuery(t *testing.T) {
	var got []FindRequest
	s := newTestAPIKeys(t, finderFunc(func(_ context.Context, req FindRequest) (*model.PaginatedDocs, error) {
		got = append(got, req)
		return &model.PaginatedDocs{}, nil
	}))

	res := s.Authenticate(context.Background(), "users API-Key tok")
	assert.Equal(t, APIKeyNoMatch, res.Outcome)
	res = s.Authenticate(context.Background(), "members API-Key tok")
	assert.Equal(t, APIKeyNoMatch, res.Outcome)
	require.Len(t, got, 2)

	byIndex := query.Or(
		query.Equals(schema.KeyAPIKeyIndex, s.legacyIndex("tok")),
		query.Equals(schema.KeyAPIKeyIndex, s.Index("tok")),
	)
	want := FindRequest{
		Collection:        "users",
		Where:             byIndex,
		Limit:             1,
		DisablePagination: true,
		Caller:            Caller{OverrideAccess: true},
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("users lookup mismatch (-want +got):\n%s", diff)
	}

	// Collections that verify emails also require a verified user.
	want.Collection = "members"
	want.Where = query.And(byIndex, query.Cond(schema.KeyVerified, query.OpNotEquals, false))
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Errorf("members lookup mismatch (-want +got):\n%s", diff)
	}
}

func TestAPIKeyStrategy_LookupFailure(t *testing.T) {
	boom := errors.New("db down")
	s := newTestAPIKeys(t, finderFunc(func(context.Context, FindRequest) (*model.PaginatedDocs, error) {
		return nil, boom
	}))

	res := s.Authenticate(context.Background(), "users API-Key tok")
	assert.Equal(t, APIKeyLookupFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.Nil(t, res.User)
	assert.Equal(t, "lookup-failed", res.Outcome.String())
}

func TestAPIKeyStrategy_MatchesLegacyIndex(t *testing.T) {
	docs := newMemoryDocs()
	cfg := testSchema()
	documents := newTestDocuments(t, cfg, DocumentRepos{Docs: docs}, DocumentServiceConfig{})
	s := newTestAPIKeys(t, documents)

	mac := hmac.New(sha1.New, []byte(testSecret))
	mac.Write([]byte("old-key"))
	_, err := docs.Create(context.Background(), model.CreateDocumentRequest{
		Collection: "users",
		Data: map[string]any{
			"email":               "legacy@example.com",
			schema.KeyAPIKeyIndex: hex.EncodeToString(mac.Sum(nil)),
		},
	})
	require.NoError(t, err)

	res := s.Authenticate(context.Background(), "users API-Key old-key")
	require.Equal(t, APIKeyMatched, res.Outcome)
	assert.Equal(t, "legacy@example.com", res.User.Email)
	assert.Equal(t, domainauth.StrategyAPIKey, res.User.Strategy)
	assert.NotContains(t, res.User.Data, schema.KeyAPIKeyIndex)
}

func TestAPIKeyIndex(t *testing.T) {
	a := APIKeyIndex([]byte("s1"), "key")
	assert.Len(t, a, 64)
	assert.Equal(t, a, APIKeyIndex([]byte("s1"), "key"))
	assert.NotEqual(t, a, APIKeyIndex([]byte("s2"), "key"))
	assert.NotContains(t, a, "key")
}

func TestAPIKeyOutcome_String(t *testing.T) {
	assert.Equal(t, "not-applicable", APIKeyNotApplicable.String())
	assert.Equal(t, "matched", APIKeyMatched.String())
	assert.Equal(t, "no-match", APIKeyNoMatch.String())
}
