package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/data"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
)

var _ core.DocumentRepository = (*memoryDocs)(nil)

// memoryDocs is an in-memory DocumentRepository. Its matcher supports the
// equals and not_equals operators on top-level keys, which is all the auth
// flows query with.
type memoryDocs struct {
	mu    sync.Mutex
	docs  map[string]map[string]*model.Document
	seq   int
	now   time.Time
	finds int
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{
		docs: map[string]map[string]*model.Document{},
		now:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (m *memoryDocs) Find(_ context.Context, p model.FindParams) (*model.FindResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	var matched []*model.Document
	for _, d := range m.sorted(p.Collection) {
		if match(d.Flatten(), p.Where) {
			matched = append(matched, clone(d))
		}
	}
	total := len(matched)
	start := (max(p.Page, 1) - 1) * p.Limit
	if p.Limit > 0 {
		if start > total {
			start = total
		}
		end := min(start+p.Limit, total)
		matched = matched[start:end]
	}
	return &model.FindResult{Docs: matched, PageInfo: model.NewPageInfo(total, p.Limit, p.Page)}, nil
}

func (m *memoryDocs) FindByID(_ context.Context, collection, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[collection][id]
	if !ok {
		return nil, data.ErrDocumentNotFound
	}
	return clone(d), nil
}

func (m *memoryDocs) FindByIDs(_ context.Context, collection string, ids []string) ([]*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := m.docs[collection][id]; ok {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

func (m *memoryDocs) Count(_ context.Context, collection string, where query.Where) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.docs[collection] {
		if match(d.Flatten(), where) {
			n++
		}
	}
	return n, nil
}

func (m *memoryDocs) Create(_ context.Context, req model.CreateDocumentRequest) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Email != nil {
		for _, d := range m.docs[req.Collection] {
			if d.Email != nil && *d.Email == *req.Email {
				return nil, fmt.Errorf("duplicate email")
			}
		}
	}
	m.seq++
	id := req.ID
	if id == "" {
		id = fmt.Sprintf("doc-%03d", m.seq)
	}
	d := &model.Document{
		ID:         id,
		Collection: req.Collection,
		Email:      req.Email,
		Data:       req.Data,
		CreatedAt:  m.now.Add(time.Duration(m.seq) * time.Second),
	}
	d.UpdatedAt = d.CreatedAt
	if m.docs[req.Collection] == nil {
		m.docs[req.Collection] = map[string]*model.Document{}
	}
	m.docs[req.Collection][id] = d
	return clone(d), nil
}

func (m *memoryDocs) Update(_ context.Context, req model.UpdateDocumentRequest) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[req.Collection][req.ID]
	if !ok {
		return nil, data.ErrDocumentNotFound
	}
	d.Email = req.Email
	d.Data = req.Data
	d.UpdatedAt = d.UpdatedAt.Add(time.Second)
	return clone(d), nil
}

func (m *memoryDocs) Delete(_ context.Context, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[collection][id]; !ok {
		return false, nil
	}
	delete(m.docs[collection], id)
	return true, nil
}

// raw returns the stored data of a document, hidden keys included.
func (m *memoryDocs) raw(collection, id string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[collection][id]; ok {
		return d.Flatten()
	}
	return nil
}

func (m *memoryDocs) sorted(collection string) []*model.Document {
	out := make([]*model.Document, 0, len(m.docs[collection]))
	for _, d := range m.docs[collection] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func clone(d *model.Document) *model.Document {
	cp := *d
	cp.Data = make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		cp.Data[k] = v
	}
	return &cp
}

func match(doc map[string]any, w query.Where) bool {
	switch {
	case len(w.And) > 0:
		for _, sub := range w.And {
			if !match(doc, sub) {
				return false
			}
		}
		return true
	case len(w.Or) > 0:
		for _, sub := range w.Or {
			if match(doc, sub) {
				return true
			}
		}
		return false
	case w.Field == "":
		return true
	}
	v := doc[w.Field]
	switch w.Op {
	case query.OpEquals:
		return fmt.Sprint(v) == fmt.Sprint(w.Value)
	case query.OpNotEquals:
		return fmt.Sprint(v) != fmt.Sprint(w.Value)
	}
	return false
}

const testSecret = "test-secret"

// testSchema has an auth collection "users" with API keys and lockouts, a
// verified auth collection "members", a versioned "posts" collection relating
// to users, and a "settings" global.
func testSchema() *schema.Config {
	cfg := &schema.Config{
		Collections: []schema.CollectionConfig{
			{
				Slug: "users",
				Auth: &schema.AuthConfig{UseAPIKey: true, MaxLoginAttempts: 3, LockTime: 600},
				Fields: []schema.Field{
					{Name: "name", Type: schema.FieldText},
					{Name: "roles", Type: schema.FieldSelect, HasMany: true, Options: []schema.Option{{Label: "Admin", Value: "admin"}, {Label: "Editor", Value: "editor"}}},
				},
				Access: schema.AccessRules{
					Create: "contains(user.roles || `[]`, 'admin')",
					Delete: "contains(user.roles || `[]`, 'admin')",
					Update: "contains(user.roles || `[]`, 'admin')",
				},
			},
			{
				Slug: "members",
				Auth: &schema.AuthConfig{Verify: true, UseAPIKey: true},
				Access: schema.AccessRules{
					Create: "`true`",
					Read:   "`true`",
				},
			},
			{
				Slug: "posts",
				Fields: []schema.Field{
					{Name: "title", Type: schema.FieldText, Required: true},
					{Name: "slug", Type: schema.FieldText, Unique: true},
					{Name: "author", Type: schema.FieldRelationship, RelationTo: "users"},
					{Name: "secret", Type: schema.FieldText, Hidden: true},
				},
				Versions: &schema.VersionsConfig{MaxPerDoc: 5},
				Access: schema.AccessRules{
					Read: "`true`",
				},
			},
		},
		Globals: []schema.GlobalConfig{
			{
				Slug:     "settings",
				Fields:   []schema.Field{{Name: "siteName", Type: schema.FieldText, DefaultValue: "Folio"}},
				Versions: &schema.VersionsConfig{},
			},
		},
	}
	cfg.Sanitize()
	return cfg
}

func newTestAccess(t *testing.T, cfg *schema.Config) *AccessService {
	t.Helper()
	svc, err := NewAccessService(AccessServiceOptions{
		Schema: cfg,
		Config: AccessServiceConfig{UserSlug: "users"},
	})
	require.NoError(t, err)
	return svc
}

func newTestDocuments(t *testing.T, cfg *schema.Config, repos DocumentRepos, dc DocumentServiceConfig) *DocumentService {
	t.Helper()
	dc.Schema = cfg
	return NewDocumentService(DocumentServiceOptions{
		Repos:  repos,
		Access: newTestAccess(t, cfg),
		Config: dc,
	})
}
