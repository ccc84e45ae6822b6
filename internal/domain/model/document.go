//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"time"

	"github.com/target/folio/internal/domain/query"
)

const (
	// TimeLayout is used for createdAt/updatedAt in API payloads.
	TimeLayout = time.RFC3339Nano

	DefaultPageLimit = 10
)

// DefaultPageLimits are the list view page sizes offered when a collection sets none.
var DefaultPageLimits = []int{5, 10, 25, 50, 100}

// Document is a stored collection entry. Data holds every schema field.
type Document struct {
	ID         string         `json:"id"        db:"id"`
	Collection string         `json:"-"         db:"collection"`
	Email      *string        `json:"-"         db:"email"`
	Data       map[string]any `json:"-"         db:"data"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time      `json:"updatedAt" db:"updated_at"`
}

// Flatten returns Data with id, createdAt and updatedAt overlaid.
func (d *Document) Flatten() map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d.Data)+3)
	for k, v := range d.Data {
		out[k] = v
	}
	out["id"] = d.ID
	out["createdAt"] = d.CreatedAt.UTC().Format(TimeLayout)
	out["updatedAt"] = d.UpdatedAt.UTC().Format(TimeLayout)
	return out
}

// CreateDocumentRequest represents parameters to insert a document. ID is
// generated when empty.
type CreateDocumentRequest struct {
	ID         string
	Collection string
	Email      *string
	Data       map[string]any
}

// UpdateDocumentRequest replaces the stored data of a document.
type UpdateDocumentRequest struct {
	Collection string
	ID         string
	Email      *string
	Data       map[string]any
}

// FindParams controls a collection query.
// Sort is a field name, prefixed with "-" for descending; empty means "-createdAt".
// With Pagination false, Limit caps the result and no count query runs.
type FindParams struct {
	Collection string
	Where      query.Where
	Sort       string
	Limit      int
	Page       int
	Pagination bool
}

// PageInfo describes the position of a page within a result set.
type PageInfo struct {
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasPrevPage bool `json:"hasPrevPage"`
	HasNextPage bool `json:"hasNextPage"`
	PrevPage    *int `json:"prevPage"`
	NextPage    *int `json:"nextPage"`
}

// NewPageInfo computes page metadata. A limit <= 0 means everything fits on one page.
func NewPageInfo(total, limit, page int) PageInfo {
	if page < 1 {
		page = 1
	}
	pages := 1
	if limit > 0 {
		pages = (total + limit - 1) / limit
		if pages < 1 {
			pages = 1
		}
	}
	info := PageInfo{
		TotalDocs:   total,
		Limit:       limit,
		Page:        page,
		TotalPages:  pages,
		HasPrevPage: page > 1,
		HasNextPage: page < pages,
	}
	if info.HasPrevPage {
		p := page - 1
		info.PrevPage = &p
	}
	if info.HasNextPage {
		n := page + 1
		info.NextPage = &n
	}
	return info
}

// FindResult is one page of documents.
type FindResult struct {
	Docs []*Document
	PageInfo
}

// PaginatedDocs is the API shape of a FindResult after output shaping.
type PaginatedDocs struct {
	Docs []map[string]any `json:"docs"`
	PageInfo
}

// Global is the single stored document of a global.
type Global struct {
	Slug      string         `db:"slug"`
	Data      map[string]any `db:"data"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Flatten returns Data with globalType and updatedAt overlaid.
func (g *Global) Flatten() map[string]any {
	if g == nil {
		return nil
	}
	out := make(map[string]any, len(g.Data)+3)
	for k, v := range g.Data {
		out[k] = v
	}
	out["globalType"] = g.Slug
	out["createdAt"] = g.CreatedAt.UTC().Format(TimeLayout)
	out["updatedAt"] = g.UpdatedAt.UTC().Format(TimeLayout)
	return out
}

// VersionEntity distinguishes collection and global version history.
type VersionEntity string

const (
	VersionEntityCollection VersionEntity = "collection"
	VersionEntityGlobal     VersionEntity = "global"
)

// Version is a snapshot of a document or global taken before it was overwritten.
type Version struct {
	ID         string         `json:"id"        db:"id"`
	EntityType VersionEntity  `json:"-"         db:"entity_type"`
	Slug       string         `json:"-"         db:"slug"`
	ParentID   string         `json:"parent"    db:"parent_id"`
	Data       map[string]any `json:"version"   db:"data"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// VersionListParams selects the history of one document or global.
type VersionListParams struct {
	EntityType VersionEntity
	Slug       string
	ParentID   string
	Limit      int
	Page       int
}

// PruneVersionsParams selects the history to trim and how many entries survive.
type PruneVersionsParams struct {
	EntityType VersionEntity
	Slug       string
	ParentID   string
	Keep       int
}

// VersionPage is one page of version history.
type VersionPage struct {
	Docs []*Version `json:"docs"`
	PageInfo
}
