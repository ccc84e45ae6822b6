package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrGlobalNotFound   = errors.New("global not found")
	ErrVersionNotFound  = errors.New("version not found")

	// ErrInvalidQuery wraps where/sort inputs that cannot be translated to SQL.
	ErrInvalidQuery = errors.New("invalid query")
)
