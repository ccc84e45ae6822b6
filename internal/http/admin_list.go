package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/service"
)

// listColumn is one table column of a list view.
type listColumn struct {
	Name     string
	Label    string
	Sortable bool
	Sort     SortLinks
}

// listRow is one document of a list view. Cells line up with the columns.
type listRow struct {
	ID    string
	URL   string
	Cells []any
}

// maxAutoColumns bounds the data columns picked when a collection names none.
const maxAutoColumns = 3

// listColumns returns the configured default columns, or the title field,
// the first few simple fields and the creation date.
func listColumns(c schema.CollectionConfig) []string {
	if len(c.Admin.DefaultColumns) > 0 {
		return c.Admin.DefaultColumns
	}
	cols := []string{c.Admin.UseAsTitle}
	if cols[0] == "" {
		cols[0] = "id"
	}
	for _, f := range schema.DataFields(c.Fields) {
		if len(cols) > maxAutoColumns {
			break
		}
		if f.Name == cols[0] || f.Hidden || f.Admin.Hidden || !simpleColumn(f.Type) {
			continue
		}
		cols = append(cols, f.Name)
	}
	return append(cols, "createdAt")
}

func simpleColumn(t schema.FieldType) bool {
	switch t {
	case schema.FieldArray, schema.FieldBlocks, schema.FieldGroup, schema.FieldJSON:
		return false
	}
	return true
}

func columnLabel(fields []schema.Field, name string) string {
	switch name {
	case "id":
		return "ID"
	case "createdAt":
		return "Created At"
	case "updatedAt":
		return "Updated At"
	}
	if f, ok := schema.FieldAtPath(fields, strings.Split(name, ".")); ok {
		return fieldLabel(f)
	}
	return name
}

func (h *AdminHandlers) list(w http.ResponseWriter, r *http.Request, v viewRequest) {
	c, ok := h.schema().Collection(v.Route.Slug)
	if !ok {
		h.notFound(w, r, v)
		return
	}
	q := r.URL.Query()
	base := h.base(r, v, c.Labels.Plural)

	where, err := query.FromValues(q, "where")
	if err != nil {
		h.render(w, r, http.StatusBadRequest, base.WithError("The filter in the address is not valid.").Build())
		return
	}
	search := strings.TrimSpace(q.Get("search"))
	if search != "" && c.Admin.UseAsTitle != "" && c.Admin.UseAsTitle != "id" {
		where = query.And(where, query.Cond(c.Admin.UseAsTitle, query.OpLike, search))
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	locale := h.locale(r)

	res, err := h.Docs.Find(r.Context(), service.FindRequest{
		Collection: c.Slug,
		Where:      where,
		Sort:       q.Get("sort"),
		Limit:      max(limit, 0),
		Page:       max(page, 1),
		Read:       service.ReadOptions{Depth: 0, Locale: locale},
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		status, msg := h.userMessage(r, err)
		h.render(w, r, status, base.WithError(msg).Build())
		return
	}

	listPath := h.path("/collections/" + c.Slug)
	names := listColumns(c)
	cols := make([]listColumn, 0, len(names))
	for _, n := range names {
		cols = append(cols, listColumn{
			Name:     n,
			Label:    columnLabel(c.Fields, n),
			Sortable: !strings.Contains(n, "."),
			Sort:     sortLinks(listPath, q, n),
		})
	}
	rows := make([]listRow, 0, len(res.Docs))
	for _, doc := range res.Docs {
		id := fmt.Sprint(doc["id"])
		row := listRow{ID: id, URL: listPath + "/" + id, Cells: make([]any, 0, len(names))}
		for _, n := range names {
			row.Cells = append(row.Cells, lookupPath(doc, n))
		}
		rows = append(rows, row)
	}

	b := base.
		With("Slug", c.Slug).
		With("Columns", cols).
		With("Rows", rows).
		With("Search", search).
		With("SearchEnabled", c.Admin.UseAsTitle != "" && c.Admin.UseAsTitle != "id").
		With("ListURL", listPath).
		With("Limits", limitOptions(listPath, q, h.limitsFor(c), res.Limit)).
		WithPagination(listPath, q, res.PageInfo)
	if v.Snap.Permissions.Check(access.EntityCollection, c.Slug, access.ActionCreate) {
		b.With("CreateURL", listPath+"/create")
	}
	h.render(w, r, http.StatusOK, b.Build())
}

// lookupPath reads a dotted path from a document.
func lookupPath(doc map[string]any, path string) any {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

// versionTarget resolves the owner of a versions view.
func (h *AdminHandlers) versionTarget(v viewRequest) (entity model.VersionEntity, slug, parentID, ownerPath, label string, ok bool) {
	sc := h.schema()
	if v.View == route.ViewGlobalVersions || v.View == route.ViewGlobalVersion {
		g, found := sc.Global(v.Route.Slug)
		if !found {
			return "", "", "", "", "", false
		}
		return model.VersionEntityGlobal, g.Slug, "", "/globals/" + g.Slug, g.Label, true
	}
	c, found := sc.Collection(v.Route.Slug)
	if !found {
		return "", "", "", "", "", false
	}
	id := v.Params["id"]
	return model.VersionEntityCollection, c.Slug, id, "/collections/" + c.Slug + "/" + id, c.Labels.Singular, true
}

// versionRow is one entry of the versions table.
type versionRow struct {
	ID        string
	URL       string
	CreatedAt any
}

func (h *AdminHandlers) versions(w http.ResponseWriter, r *http.Request, v viewRequest) {
	entity, slug, parentID, ownerPath, label, ok := h.versionTarget(v)
	if !ok {
		h.notFound(w, r, v)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	base := h.base(r, v, "Versions of "+label)

	res, err := h.Docs.ListVersions(r.Context(), service.VersionsRequest{
		Entity:   entity,
		Slug:     slug,
		ParentID: parentID,
		Limit:    max(limit, 0),
		Page:     max(page, 1),
		Caller:   callerFromContext(r.Context()),
	})
	if err != nil {
		status, msg := h.userMessage(r, err)
		h.render(w, r, status, base.WithError(msg).Build())
		return
	}

	versionsPath := h.path(ownerPath + "/versions")
	rows := make([]versionRow, 0, len(res.Docs))
	for _, ver := range res.Docs {
		rows = append(rows, versionRow{ID: ver.ID, URL: versionsPath + "/" + ver.ID, CreatedAt: ver.CreatedAt})
	}
	data := base.
		With("Versions", rows).
		With("OwnerURL", h.path(ownerPath)).
		With("Label", label).
		WithPagination(versionsPath, q, res.PageInfo).
		Build()
	h.render(w, r, http.StatusOK, data)
}

func (h *AdminHandlers) version(w http.ResponseWriter, r *http.Request, v viewRequest) {
	entity, slug, _, ownerPath, label, ok := h.versionTarget(v)
	if !ok {
		h.notFound(w, r, v)
		return
	}
	ver, err := h.Docs.FindVersion(r.Context(), service.VersionRequest{
		Entity: entity,
		Slug:   slug,
		ID:     v.Params["versionID"],
		Caller: callerFromContext(r.Context()),
	})
	if h.loadFailed(w, r, v, err) {
		return
	}
	data := h.base(r, v, "Version "+ver.ID).
		With("Version", ver).
		With("Label", label).
		With("OwnerURL", h.path(ownerPath)).
		With("VersionsURL", h.path(ownerPath+"/versions")).
		Build()
	h.render(w, r, http.StatusOK, data)
}
