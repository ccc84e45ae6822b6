package httpx

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/target/folio/internal/domain/model"
)

// NavLink is one entry of the admin sidebar.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// PaginationData is the page navigation of a list view.
type PaginationData struct {
	Page       int
	TotalPages int
	TotalDocs  int
	StartIndex int
	EndIndex   int
	PrevURL    string
	NextURL    string
}

// LimitOption is one choice of the per-page selector.
type LimitOption struct {
	Limit  int
	URL    string
	Active bool
}

// SortLinks are the ascending and descending links of a sortable column.
type SortLinks struct {
	AscURL     string
	DescURL    string
	AscActive  bool
	DescActive bool
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
}

// newTemplateData starts from the shared layout data.
func newTemplateData(base map[string]any) *TemplateDataBuilder {
	return &TemplateDataBuilder{data: base}
}

// WithPagination adds page navigation built from a paginated result.
func (b *TemplateDataBuilder) WithPagination(basePath string, q url.Values, info model.PageInfo) *TemplateDataBuilder {
	b.data["Pagination"] = buildPagination(basePath, q, info)
	return b
}

// WithError sets a general error message.
func (b *TemplateDataBuilder) WithError(msg string) *TemplateDataBuilder {
	b.data["Error"] = true
	b.data["ErrorMessage"] = msg
	return b
}

// WithMessage sets a success notice.
func (b *TemplateDataBuilder) WithMessage(msg string) *TemplateDataBuilder {
	if msg != "" {
		b.data["Message"] = msg
	}
	return b
}

// WithFieldErrors adds field-level validation errors keyed by form path.
func (b *TemplateDataBuilder) WithFieldErrors(errs map[string]string) *TemplateDataBuilder {
	if len(errs) > 0 {
		b.data["Errors"] = errs
	}
	return b
}

// With adds a custom field to the template data.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the final template data map.
func (b *TemplateDataBuilder) Build() map[string]any {
	return b.data
}

func buildPagination(basePath string, q url.Values, info model.PageInfo) PaginationData {
	p := PaginationData{
		Page:       info.Page,
		TotalPages: info.TotalPages,
		TotalDocs:  info.TotalDocs,
	}
	if info.TotalDocs > 0 && info.Limit > 0 {
		p.StartIndex = (info.Page-1)*info.Limit + 1
		p.EndIndex = min(info.Page*info.Limit, info.TotalDocs)
	}
	if info.HasPrevPage && info.PrevPage != nil {
		p.PrevURL = withQuery(basePath, q, "page", strconv.Itoa(*info.PrevPage))
	}
	if info.HasNextPage && info.NextPage != nil {
		p.NextURL = withQuery(basePath, q, "page", strconv.Itoa(*info.NextPage))
	}
	return p
}

// limitOptions builds the per-page selector. Choosing a limit keeps every
// other query parameter.
func limitOptions(basePath string, q url.Values, limits []int, current int) []LimitOption {
	out := make([]LimitOption, 0, len(limits))
	for _, l := range limits {
		out = append(out, LimitOption{
			Limit:  l,
			URL:    withQuery(basePath, q, "limit", strconv.Itoa(l)),
			Active: l == current,
		})
	}
	return out
}

// sortLinks builds the links of a sortable column: "name" sorts ascending
// and "-name" descending.
func sortLinks(basePath string, q url.Values, name string) SortLinks {
	current := q.Get("sort")
	desc := "-" + name
	return SortLinks{
		AscURL:     withQuery(basePath, q, "sort", name),
		DescURL:    withQuery(basePath, q, "sort", desc),
		AscActive:  current == name,
		DescActive: current == desc,
	}
}

// withQuery returns basePath with q cloned and key set to value.
// Transient htmx parameters and empty values are dropped.
func withQuery(basePath string, q url.Values, key, value string) string {
	qq := make(url.Values, len(q)+1)
	for k, v := range q {
		if strings.HasPrefix(k, "hx-") || strings.HasPrefix(k, "hx_") {
			continue
		}
		vals := slices.DeleteFunc(slices.Clone(v), func(s string) bool { return strings.TrimSpace(s) == "" })
		if len(vals) > 0 {
			qq[k] = vals
		}
	}
	qq.Set(key, value)
	return basePath + "?" + qq.Encode()
}
