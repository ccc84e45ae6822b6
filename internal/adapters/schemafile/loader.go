// Package schemafile loads the CMS schema (collections, globals, admin
// options) from a YAML document.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/target/folio/internal/domain/schema"
)

// ErrEmptySchema is returned for a document with no collections.
var ErrEmptySchema = errors.New("schema declares no collections")

// Load reads, sanitizes and validates the schema file at path.
func Load(path, userSlug string) (*schema.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(b), userSlug)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(r io.Reader, userSlug string) (*schema.Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg schema.Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySchema
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(cfg.Collections) == 0 {
		return nil, ErrEmptySchema
	}

	cfg.Sanitize()
	if err := cfg.Validate(userSlug); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *schema.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
