// Package devseed loads fixture documents from YAML for local development.
//
// A fixture file looks like:
//
//	collections:
//	  users:
//	    docs:
//	      - email: dev@example.com
//	        password: dev-password
//	        roles: [admin]
//	  posts:
//	    matchOn: slug
//	    docs:
//	      - title: Hello
//	        slug: hello
//	globals:
//	  settings:
//	    siteName: Folio (dev)
//
// Seeding is idempotent: a document whose matchOn value already exists is
// skipped, and a global is only written if it has never been saved.
package devseed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/service"
)

// Documents is the subset of the document service the seeder needs.
type Documents interface {
	Find(ctx context.Context, req service.FindRequest) (*model.PaginatedDocs, error)
	Create(ctx context.Context, req service.WriteRequest) (map[string]any, error)
	FindGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
	UpdateGlobal(ctx context.Context, req service.GlobalRequest) (map[string]any, error)
}

// File is a parsed fixture file.
type File struct {
	Collections map[string]CollectionFixture `yaml:"collections"`
	Globals     map[string]map[string]any    `yaml:"globals"`
}

// CollectionFixture lists the documents seeded into one collection.
type CollectionFixture struct {
	// MatchOn names the field used to detect an existing document.
	// Auth collections default to email.
	MatchOn string           `yaml:"matchOn"`
	Docs    []map[string]any `yaml:"docs"`
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
	Failed  int
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	f, err := os.Open(path) // #nosec G304 - operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes fixtures, rejecting unknown top-level keys.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := file.normalize(); err != nil {
		return nil, err
	}
	return &file, nil
}

// normalize re-encodes fixture values through JSON so they arrive in the
// same shape as an API request body: numbers as float64, timestamps as
// RFC3339 strings.
func (f *File) normalize() error {
	for slug, fixture := range f.Collections {
		for i, doc := range fixture.Docs {
			out, err := jsonShape(doc)
			if err != nil {
				return fmt.Errorf("collection %s doc %d: %w", slug, i, err)
			}
			fixture.Docs[i] = out
		}
	}
	for slug, data := range f.Globals {
		out, err := jsonShape(data)
		if err != nil {
			return fmt.Errorf("global %s: %w", slug, err)
		}
		f.Globals[slug] = out
	}
	return nil
}

func jsonShape(in map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Seeder writes fixtures through the document service with access checks bypassed.
type Seeder struct {
	docs   Documents
	schema *schema.Config
	logger *slog.Logger
}

// New constructs a Seeder.
func New(docs Documents, sc *schema.Config, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{docs: docs, schema: sc, logger: logger.With("component", "devseed")}
}

// Run seeds collections in schema order, then globals. Individual failures
// are logged and counted; Run reports an error if any occurred.
func (s *Seeder) Run(ctx context.Context, file *File) (Result, error) {
	var res Result
	if file == nil {
		return res, nil
	}

	for slug := range file.Collections {
		if _, ok := s.schema.Collection(slug); !ok {
			s.logger.ErrorContext(ctx, "fixture names unknown collection", "collection", slug)
			res.Failed++
		}
	}
	for slug := range file.Globals {
		if _, ok := s.schema.Global(slug); !ok {
			s.logger.ErrorContext(ctx, "fixture names unknown global", "global", slug)
			res.Failed++
		}
	}

	// Schema order lets fixtures for users and media land before the
	// collections that relate to them.
	for _, col := range s.schema.Collections {
		fixture, ok := file.Collections[col.Slug]
		if !ok {
			continue
		}
		s.seedCollection(ctx, col, fixture, &res)
	}
	for _, g := range s.schema.Globals {
		data, ok := file.Globals[g.Slug]
		if !ok {
			continue
		}
		s.seedGlobal(ctx, g.Slug, data, &res)
	}

	if res.Failed > 0 {
		return res, fmt.Errorf("%d seed errors; check logs", res.Failed)
	}
	return res, nil
}

func (s *Seeder) seedCollection(ctx context.Context, col schema.CollectionConfig, fixture CollectionFixture, res *Result) {
	matchOn := fixture.MatchOn
	if matchOn == "" && col.IsAuth() {
		matchOn = "email"
	}

	for i, doc := range fixture.Docs {
		key, hasKey := doc[matchOn]
		if matchOn != "" && hasKey {
			exists, err := s.exists(ctx, col.Slug, matchOn, key)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to look up fixture", "collection", col.Slug, "index", i, "error", err)
				res.Failed++
				continue
			}
			if exists {
				s.logger.InfoContext(ctx, "document already exists", "collection", col.Slug, matchOn, key)
				res.Skipped++
				continue
			}
		}

		created, err := s.docs.Create(ctx, service.WriteRequest{
			Collection: col.Slug,
			Data:       doc,
			Caller:     service.Caller{OverrideAccess: true},
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to create document", "collection", col.Slug, "index", i, "error", err)
			res.Failed++
			continue
		}
		s.logger.InfoContext(ctx, "created document", "collection", col.Slug, "id", created["id"])
		res.Created++
	}
}

func (s *Seeder) exists(ctx context.Context, collection, field string, value any) (bool, error) {
	page, err := s.docs.Find(ctx, service.FindRequest{
		Collection: collection,
		Where:      query.Equals(field, value),
		Limit:      1,
		Caller:     service.Caller{OverrideAccess: true},
	})
	if err != nil {
		return false, err
	}
	return len(page.Docs) > 0, nil
}

func (s *Seeder) seedGlobal(ctx context.Context, slug string, data map[string]any, res *Result) {
	current, err := s.docs.FindGlobal(ctx, service.GlobalRequest{
		Slug:   slug,
		Caller: service.Caller{OverrideAccess: true},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read global", "global", slug, "error", err)
		res.Failed++
		return
	}
	// A saved global always carries updatedAt.
	if _, saved := current["updatedAt"]; saved {
		s.logger.InfoContext(ctx, "global already saved", "global", slug)
		res.Skipped++
		return
	}

	if _, err := s.docs.UpdateGlobal(ctx, service.GlobalRequest{
		Slug:   slug,
		Data:   data,
		Caller: service.Caller{OverrideAccess: true},
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to seed global", "global", slug, "error", err)
		res.Failed++
		return
	}
	s.logger.InfoContext(ctx, "seeded global", "global", slug)
	res.Created++
}
