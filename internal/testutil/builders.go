// Package testutil provides database, Redis and schema fixtures for Folio tests.
package testutil

import (
	"github.com/target/folio/internal/domain/schema"
)

// CollectionBuilder provides a fluent interface for building collection configs in tests.
type CollectionBuilder struct {
	cfg schema.CollectionConfig
}

// NewCollection starts a collection with a single text "title" field.
func NewCollection(slug string) *CollectionBuilder {
	return &CollectionBuilder{cfg: schema.CollectionConfig{
		Slug:   slug,
		Fields: []schema.Field{{Name: "title", Type: schema.FieldText}},
	}}
}

// WithFields replaces the field list.
func (b *CollectionBuilder) WithFields(fields ...schema.Field) *CollectionBuilder {
	b.cfg.Fields = fields
	return b
}

// WithAuth enables auth on the collection.
func (b *CollectionBuilder) WithAuth(auth schema.AuthConfig) *CollectionBuilder {
	b.cfg.Auth = &auth
	return b
}

// WithVersions enables version history.
func (b *CollectionBuilder) WithVersions(maxPerDoc int) *CollectionBuilder {
	b.cfg.Versions = &schema.VersionsConfig{MaxPerDoc: maxPerDoc}
	return b
}

// WithAccess sets the access expressions.
func (b *CollectionBuilder) WithAccess(rules schema.AccessRules) *CollectionBuilder {
	b.cfg.Access = rules
	return b
}

// Build returns the collection config.
func (b *CollectionBuilder) Build() schema.CollectionConfig {
	return b.cfg
}

// NewSchema returns a sanitized schema holding a "users" auth collection
// followed by the given collections.
func NewSchema(collections ...schema.CollectionConfig) *schema.Config {
	users := NewCollection("users").WithFields().WithAuth(schema.AuthConfig{UseAPIKey: true}).Build()
	cfg := &schema.Config{Collections: append([]schema.CollectionConfig{users}, collections...)}
	cfg.Sanitize()
	return cfg
}
