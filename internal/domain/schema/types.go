// Package schema describes the collections and globals a Folio install serves.
// A Config is loaded once at startup and treated as immutable afterwards.
package schema

// FieldType enumerates the supported field kinds.
type FieldType string

const (
	FieldText         FieldType = "text"
	FieldTextarea     FieldType = "textarea"
	FieldEmail        FieldType = "email"
	FieldNumber       FieldType = "number"
	FieldCheckbox     FieldType = "checkbox"
	FieldSelect       FieldType = "select"
	FieldDate         FieldType = "date"
	FieldJSON         FieldType = "json"
	FieldRelationship FieldType = "relationship"
	FieldArray        FieldType = "array"
	FieldBlocks       FieldType = "blocks"
	FieldGroup        FieldType = "group"
	FieldRow          FieldType = "row"
	FieldCollapsible  FieldType = "collapsible"
	FieldUI           FieldType = "ui"
)

// Valid reports whether the field type is known.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldTextarea, FieldEmail, FieldNumber, FieldCheckbox, FieldSelect,
		FieldDate, FieldJSON, FieldRelationship, FieldArray, FieldBlocks, FieldGroup,
		FieldRow, FieldCollapsible, FieldUI:
		return true
	default:
		return false
	}
}

// Presentational reports whether the field only groups other fields without
// contributing a path segment of its own.
func (t FieldType) Presentational() bool {
	return t == FieldRow || t == FieldCollapsible
}

// HasData reports whether values of this field are stored on the document.
func (t FieldType) HasData() bool {
	return t != FieldUI && !t.Presentational()
}

// Option is a select choice.
type Option struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// FieldAdmin holds presentation-only settings.
type FieldAdmin struct {
	Description string `yaml:"description" json:"description,omitempty"`
	ReadOnly    bool   `yaml:"readOnly"    json:"readOnly,omitempty"`
	Hidden      bool   `yaml:"hidden"      json:"hidden,omitempty"`
	Position    string `yaml:"position"    json:"position,omitempty"`
}

// Field is one entry of an ordered field schema.
type Field struct {
	Name         string     `yaml:"name"         json:"name,omitempty"`
	Type         FieldType  `yaml:"type"         json:"type"`
	Label        string     `yaml:"label"        json:"label,omitempty"`
	Required     bool       `yaml:"required"     json:"required,omitempty"`
	Localized    bool       `yaml:"localized"    json:"localized,omitempty"`
	Unique       bool       `yaml:"unique"       json:"unique,omitempty"`
	Hidden       bool       `yaml:"hidden"       json:"hidden,omitempty"`
	DefaultValue any        `yaml:"defaultValue" json:"defaultValue,omitempty"`
	Options      []Option   `yaml:"options"      json:"options,omitempty"`
	HasMany      bool       `yaml:"hasMany"      json:"hasMany,omitempty"`
	RelationTo   string     `yaml:"relationTo"   json:"relationTo,omitempty"`
	Min          *float64   `yaml:"min"          json:"min,omitempty"`
	Max          *float64   `yaml:"max"          json:"max,omitempty"`
	MinLength    int        `yaml:"minLength"    json:"minLength,omitempty"`
	MaxLength    int        `yaml:"maxLength"    json:"maxLength,omitempty"`
	MinRows      int        `yaml:"minRows"      json:"minRows,omitempty"`
	MaxRows      int        `yaml:"maxRows"      json:"maxRows,omitempty"`
	Fields       []Field    `yaml:"fields"       json:"fields,omitempty"`
	Blocks       []Block    `yaml:"blocks"       json:"blocks,omitempty"`
	Admin        FieldAdmin `yaml:"admin"        json:"admin,omitempty"`
}

// Block is one selectable shape inside a blocks field.
type Block struct {
	Slug   string  `yaml:"slug"   json:"slug"`
	Label  string  `yaml:"label"  json:"label,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// BlockBySlug returns the block definition with the given slug.
func (f Field) BlockBySlug(slug string) (Block, bool) {
	for _, b := range f.Blocks {
		if b.Slug == slug {
			return b, true
		}
	}
	return Block{}, false
}

// Labels holds singular and plural display names.
type Labels struct {
	Singular string `yaml:"singular" json:"singular"`
	Plural   string `yaml:"plural"   json:"plural"`
}

// AuthConfig enables authentication on a collection.
type AuthConfig struct {
	Verify               bool `yaml:"verify"               json:"verify"`
	DisableLocalStrategy bool `yaml:"disableLocalStrategy" json:"disableLocalStrategy"`
	// Depth controls relationship population for users resolved by auth strategies.
	Depth int `yaml:"depth" json:"depth"`
	// UseAPIKey enables the "<slug> API-Key <token>" strategy for this collection.
	UseAPIKey        bool `yaml:"useAPIKey"        json:"useAPIKey"`
	TokenExpiration  int  `yaml:"tokenExpiration"  json:"tokenExpiration"`
	MaxLoginAttempts int  `yaml:"maxLoginAttempts" json:"maxLoginAttempts"`
	// LockTime is in seconds.
	LockTime int `yaml:"lockTime" json:"lockTime"`
}

// VersionsConfig enables version history.
type VersionsConfig struct {
	Drafts    bool `yaml:"drafts"    json:"drafts"`
	MaxPerDoc int  `yaml:"maxPerDoc" json:"maxPerDoc"`
}

// AccessRules are JMESPath expressions evaluated against {"user": ...}.
// An empty expression allows any authenticated user.
type AccessRules struct {
	Read         string `yaml:"read"         json:"read,omitempty"`
	Create       string `yaml:"create"       json:"create,omitempty"`
	Update       string `yaml:"update"       json:"update,omitempty"`
	Delete       string `yaml:"delete"       json:"delete,omitempty"`
	ReadVersions string `yaml:"readVersions" json:"readVersions,omitempty"`
	// Admin gates access to the admin panel. Only meaningful on the admin user collection.
	Admin string `yaml:"admin" json:"admin,omitempty"`
}

// Pagination overrides list view page sizes.
type Pagination struct {
	DefaultLimit int   `yaml:"defaultLimit" json:"defaultLimit,omitempty"`
	Limits       []int `yaml:"limits"       json:"limits,omitempty"`
}

// CollectionAdmin holds list and edit view presentation.
type CollectionAdmin struct {
	UseAsTitle     string     `yaml:"useAsTitle"     json:"useAsTitle,omitempty"`
	DefaultColumns []string   `yaml:"defaultColumns" json:"defaultColumns,omitempty"`
	Pagination     Pagination `yaml:"pagination"     json:"pagination,omitempty"`
	Hidden         bool       `yaml:"hidden"         json:"hidden,omitempty"`
}

// CollectionConfig describes a slug-keyed document type.
type CollectionConfig struct {
	Slug     string          `yaml:"slug"     json:"slug"`
	Labels   Labels          `yaml:"labels"   json:"labels"`
	Auth     *AuthConfig     `yaml:"auth"     json:"auth,omitempty"`
	Fields   []Field         `yaml:"fields"   json:"fields"`
	Versions *VersionsConfig `yaml:"versions" json:"versions,omitempty"`
	Access   AccessRules     `yaml:"access"   json:"-"`
	Admin    CollectionAdmin `yaml:"admin"    json:"admin"`
}

// HasVersions reports whether the collection keeps version history.
func (c CollectionConfig) HasVersions() bool { return c.Versions != nil }

// IsAuth reports whether the collection is auth-enabled.
func (c CollectionConfig) IsAuth() bool { return c.Auth != nil }

// LocalStrategyEnabled reports whether email/password login is available.
func (c CollectionConfig) LocalStrategyEnabled() bool {
	return c.Auth != nil && !c.Auth.DisableLocalStrategy
}

// VerifyRouteEnabled reports whether a public verify-by-token route exists for the collection.
func (c CollectionConfig) VerifyRouteEnabled() bool {
	return c.Auth != nil && c.Auth.Verify && !c.Auth.DisableLocalStrategy
}

// GlobalConfig describes a singleton document.
type GlobalConfig struct {
	Slug     string          `yaml:"slug"     json:"slug"`
	Label    string          `yaml:"label"    json:"label"`
	Fields   []Field         `yaml:"fields"   json:"fields"`
	Versions *VersionsConfig `yaml:"versions" json:"versions,omitempty"`
	Access   AccessRules     `yaml:"access"   json:"-"`
}

// HasVersions reports whether the global keeps version history.
func (g GlobalConfig) HasVersions() bool { return g.Versions != nil }

// CustomRoute declares an admin route rendered by a registered renderer.
type CustomRoute struct {
	Path      string `yaml:"path"      json:"path"`
	Exact     bool   `yaml:"exact"     json:"exact"`
	Strict    bool   `yaml:"strict"    json:"strict"`
	Sensitive bool   `yaml:"sensitive" json:"sensitive"`
	// Component names the renderer registered for this route.
	Component string `yaml:"component" json:"component"`
	Title     string `yaml:"title"     json:"title"`
}

// Localization lists supported locales.
type Localization struct {
	Locales       []string `yaml:"locales"       json:"locales"`
	DefaultLocale string   `yaml:"defaultLocale" json:"defaultLocale"`
}

// Config is the full CMS schema.
type Config struct {
	Collections  []CollectionConfig `yaml:"collections"  json:"collections"`
	Globals      []GlobalConfig     `yaml:"globals"      json:"globals"`
	CustomRoutes []CustomRoute      `yaml:"customRoutes" json:"customRoutes"`
	Localization *Localization      `yaml:"localization" json:"localization,omitempty"`
}

// Collection looks up a collection by slug.
func (c *Config) Collection(slug string) (CollectionConfig, bool) {
	for _, col := range c.Collections {
		if col.Slug == slug {
			return col, true
		}
	}
	return CollectionConfig{}, false
}

// Global looks up a global by slug.
func (c *Config) Global(slug string) (GlobalConfig, bool) {
	for _, g := range c.Globals {
		if g.Slug == slug {
			return g, true
		}
	}
	return GlobalConfig{}, false
}

// DefaultLocale returns the configured default locale, or "" when localization is off.
func (c *Config) DefaultLocale() string {
	if c.Localization == nil {
		return ""
	}
	return c.Localization.DefaultLocale
}

// HasLocale reports whether the locale is configured.
func (c *Config) HasLocale(locale string) bool {
	if c.Localization == nil {
		return false
	}
	for _, l := range c.Localization.Locales {
		if l == locale {
			return true
		}
	}
	return false
}
