package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrDuplicateSlug is returned when two collections or two globals share a slug.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrUserCollection is returned when the admin user collection is missing or not auth-enabled.
	ErrUserCollection = errors.New("admin user collection must exist and be auth-enabled")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Hidden keys persisted on auth-enabled documents. They are never returned by the API.
const (
	KeyHash                    = "hash"
	KeyAPIKeyIndex             = "apiKeyIndex"
	KeyEnableAPIKey            = "enableAPIKey"
	KeyVerified                = "_verified"
	KeyVerificationToken       = "_verificationToken"
	KeyResetPasswordToken      = "resetPasswordToken"
	KeyResetPasswordExpiration = "resetPasswordExpiration"
	KeyLoginAttempts           = "loginAttempts"
	KeyLockUntil               = "lockUntil"
)

// HiddenAuthKeys lists keys stripped from auth documents on output.
var HiddenAuthKeys = []string{
	KeyHash,
	KeyAPIKeyIndex,
	KeyVerificationToken,
	KeyResetPasswordToken,
	KeyResetPasswordExpiration,
	KeyLoginAttempts,
	KeyLockUntil,
}

// Sanitize fills defaults and injects auth fields. It is idempotent.
func (c *Config) Sanitize() {
	for i := range c.Collections {
		col := &c.Collections[i]
		if col.Labels.Singular == "" {
			col.Labels.Singular = titleize(col.Slug)
		}
		if col.Labels.Plural == "" {
			col.Labels.Plural = col.Labels.Singular
		}
		if col.Admin.UseAsTitle == "" {
			col.Admin.UseAsTitle = "id"
		}
		if col.Auth != nil {
			col.Fields = injectAuthFields(*col)
		}
	}
	for i := range c.Globals {
		g := &c.Globals[i]
		if g.Label == "" {
			g.Label = titleize(g.Slug)
		}
	}
	if c.Localization != nil && c.Localization.DefaultLocale == "" && len(c.Localization.Locales) > 0 {
		c.Localization.DefaultLocale = c.Localization.Locales[0]
	}
}

func injectAuthFields(col CollectionConfig) []Field {
	if col.Auth.DisableLocalStrategy {
		return col.Fields
	}
	for _, f := range col.Fields {
		if f.Name == "email" {
			return col.Fields
		}
	}
	email := Field{Name: "email", Type: FieldEmail, Label: "Email", Required: true, Unique: true}
	return append([]Field{email}, col.Fields...)
}

// Validate checks the schema for structural errors. userSlug names the admin user collection.
func (c *Config) Validate(userSlug string) error {
	seen := make(map[string]struct{}, len(c.Collections))
	for _, col := range c.Collections {
		if !slugPattern.MatchString(col.Slug) {
			return fmt.Errorf("collection %q: invalid slug", col.Slug)
		}
		if _, dup := seen[col.Slug]; dup {
			return fmt.Errorf("collection %q: %w", col.Slug, ErrDuplicateSlug)
		}
		seen[col.Slug] = struct{}{}
		if err := c.validateFields(col.Fields, "collection "+col.Slug); err != nil {
			return err
		}
	}

	globals := make(map[string]struct{}, len(c.Globals))
	for _, g := range c.Globals {
		if !slugPattern.MatchString(g.Slug) {
			return fmt.Errorf("global %q: invalid slug", g.Slug)
		}
		if _, dup := globals[g.Slug]; dup {
			return fmt.Errorf("global %q: %w", g.Slug, ErrDuplicateSlug)
		}
		globals[g.Slug] = struct{}{}
		if err := c.validateFields(g.Fields, "global "+g.Slug); err != nil {
			return err
		}
	}

	users, ok := c.Collection(userSlug)
	if !ok || !users.IsAuth() {
		return fmt.Errorf("%q: %w", userSlug, ErrUserCollection)
	}

	for _, r := range c.CustomRoutes {
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("custom route %q: path must start with /", r.Path)
		}
	}
	return nil
}

func (c *Config) validateFields(fields []Field, owner string) error {
	names := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if !f.Type.Valid() {
			return fmt.Errorf("%s: field %q: unknown type %q", owner, f.Name, f.Type)
		}
		if f.Type.HasData() {
			if f.Name == "" {
				return fmt.Errorf("%s: %s field requires a name", owner, f.Type)
			}
			if strings.Contains(f.Name, ".") {
				return fmt.Errorf("%s: field %q: name must not contain dots", owner, f.Name)
			}
			if _, dup := names[f.Name]; dup {
				return fmt.Errorf("%s: duplicate field %q", owner, f.Name)
			}
			names[f.Name] = struct{}{}
		}

		switch f.Type {
		case FieldSelect:
			if len(f.Options) == 0 {
				return fmt.Errorf("%s: select field %q requires options", owner, f.Name)
			}
		case FieldRelationship:
			if _, ok := c.Collection(f.RelationTo); !ok {
				return fmt.Errorf("%s: field %q: unknown relationTo %q", owner, f.Name, f.RelationTo)
			}
		case FieldBlocks:
			if len(f.Blocks) == 0 {
				return fmt.Errorf("%s: blocks field %q requires blocks", owner, f.Name)
			}
			for _, b := range f.Blocks {
				if b.Slug == "" {
					return fmt.Errorf("%s: blocks field %q: block requires a slug", owner, f.Name)
				}
				if err := c.validateFields(b.Fields, owner+" block "+b.Slug); err != nil {
					return err
				}
			}
		case FieldArray, FieldGroup:
			if err := c.validateFields(f.Fields, owner+" "+f.Name); err != nil {
				return err
			}
		case FieldRow, FieldCollapsible:
			// Presentational children share the parent's namespace.
			for _, child := range f.Fields {
				if child.Type.HasData() {
					if _, dup := names[child.Name]; dup {
						return fmt.Errorf("%s: duplicate field %q", owner, child.Name)
					}
					names[child.Name] = struct{}{}
				}
			}
			if err := c.validateFields(f.Fields, owner); err != nil {
				return err
			}
		}
	}
	return nil
}

// titleize turns "blog-posts" into "Blog Posts".
func titleize(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
