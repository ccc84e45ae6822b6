package httpx

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/service"
)

// APIHandlers serves the REST API under the API prefix.
//
// Paths are dispatched by segment rather than with ServeMux patterns because
// collection slugs share the first segment with "globals" and with the fixed
// auth operations, which ServeMux rejects as conflicting wildcards.
type APIHandlers struct {
	Docs   DocumentServiceInterface
	Auth   AuthServiceInterface
	Init   InitStatusProvider
	Prefix string
	// UserSlug is the admin user collection; init and first-register exist only there.
	UserSlug string
	// CookieDomain is used for the session cookie set by login.
	CookieDomain string
	Logger       *slog.Logger
}

func (h *APIHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *APIHandlers) jar() cookieJar { return cookieJar{Domain: h.CookieDomain} }

// authOps are the collection-level auth endpoints. They take precedence over document ids.
var authOps = map[string]string{
	"init":            http.MethodGet,
	"me":              http.MethodGet,
	"login":           http.MethodPost,
	"logout":          http.MethodPost,
	"first-register":  http.MethodPost,
	"forgot-password": http.MethodPost,
	"reset-password":  http.MethodPost,
}

// ServeHTTP dispatches an API request.
func (h *APIHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, h.Prefix)
	seg := strings.Split(strings.Trim(rest, "/"), "/")
	if len(seg) == 0 || seg[0] == "" {
		h.notFound(w, r)
		return
	}

	if seg[0] == "globals" && len(seg) > 1 {
		h.serveGlobal(w, r, seg[1:])
		return
	}

	slug := seg[0]
	switch len(seg) {
	case 1:
		h.route(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  func(w http.ResponseWriter, r *http.Request) { h.find(w, r, slug) },
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) { h.create(w, r, slug) },
		})
	case 2:
		if method, ok := authOps[seg[1]]; ok {
			op := seg[1]
			h.route(w, r, map[string]http.HandlerFunc{
				method: func(w http.ResponseWriter, r *http.Request) { h.authOp(w, r, slug, op) },
			})
			return
		}
		if seg[1] == "versions" {
			h.route(w, r, map[string]http.HandlerFunc{
				http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
					h.listVersions(w, r, model.VersionEntityCollection, slug, r.URL.Query().Get("parent"))
				},
			})
			return
		}
		id := seg[1]
		h.route(w, r, map[string]http.HandlerFunc{
			http.MethodGet:    func(w http.ResponseWriter, r *http.Request) { h.findByID(w, r, slug, id) },
			http.MethodPatch:  func(w http.ResponseWriter, r *http.Request) { h.update(w, r, slug, id) },
			http.MethodDelete: func(w http.ResponseWriter, r *http.Request) { h.delete(w, r, slug, id) },
		})
	case 3:
		switch {
		case seg[1] == "verify":
			token := seg[2]
			h.route(w, r, map[string]http.HandlerFunc{
				http.MethodPost: func(w http.ResponseWriter, r *http.Request) { h.verify(w, r, slug, token) },
			})
		case seg[1] == "versions":
			id := seg[2]
			h.route(w, r, map[string]http.HandlerFunc{
				http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
					h.findVersion(w, r, model.VersionEntityCollection, slug, id)
				},
			})
		case seg[2] == "api-key":
			id := seg[1]
			h.route(w, r, map[string]http.HandlerFunc{
				http.MethodPost: func(w http.ResponseWriter, r *http.Request) { h.rotateAPIKey(w, r, slug, id) },
			})
		case seg[2] == "versions":
			id := seg[1]
			h.route(w, r, map[string]http.HandlerFunc{
				http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
					h.listVersions(w, r, model.VersionEntityCollection, slug, id)
				},
			})
		default:
			h.notFound(w, r)
		}
	default:
		h.notFound(w, r)
	}
}

func (h *APIHandlers) serveGlobal(w http.ResponseWriter, r *http.Request, seg []string) {
	slug := seg[0]
	switch {
	case len(seg) == 1:
		h.route(w, r, map[string]http.HandlerFunc{
			http.MethodGet:  func(w http.ResponseWriter, r *http.Request) { h.findGlobal(w, r, slug) },
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) { h.updateGlobal(w, r, slug) },
		})
	case len(seg) == 2 && seg[1] == "versions":
		h.route(w, r, map[string]http.HandlerFunc{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
				h.listVersions(w, r, model.VersionEntityGlobal, slug, "")
			},
		})
	case len(seg) == 3 && seg[1] == "versions":
		id := seg[2]
		h.route(w, r, map[string]http.HandlerFunc{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
				h.findVersion(w, r, model.VersionEntityGlobal, slug, id)
			},
		})
	default:
		h.notFound(w, r)
	}
}

// route picks the handler for the request method or answers 405 with Allow.
func (h *APIHandlers) route(w http.ResponseWriter, r *http.Request, byMethod map[string]http.HandlerFunc) {
	if fn, ok := byMethod[r.Method]; ok {
		fn(w, r)
		return
	}
	allow := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allow = append(allow, m)
	}
	slices.Sort(allow)
	w.Header().Set("Allow", strings.Join(allow, ", "))
	WriteJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: "Method not allowed."})
}

func (h *APIHandlers) notFound(w http.ResponseWriter, r *http.Request) {
	WriteAppError(w, r, apperrors.NotFound("The requested resource was not found."))
}

// readOptions parses depth, locale and fallback-locale.
func readOptions(r *http.Request) (service.ReadOptions, error) {
	q := r.URL.Query()
	opts := service.ReadOptions{
		Depth:          service.DefaultDepth,
		Locale:         q.Get("locale"),
		FallbackLocale: q.Get("fallback-locale"),
	}
	if raw := q.Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			return opts, apperrors.ValidationField("depth", "depth must be a non-negative integer")
		}
		opts.Depth = min(d, service.MaxDepth)
	}
	return opts, nil
}

// positiveInt parses an optional positive query integer.
func positiveInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.ValidationField(name, name+" must be a non-negative integer")
	}
	return n, nil
}

func (h *APIHandlers) find(w http.ResponseWriter, r *http.Request, slug string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	where, err := query.FromValues(r.URL.Query(), "where")
	if err != nil {
		WriteAppError(w, r, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid where clause"))
		return
	}
	limit, err := positiveInt(r, "limit")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	page, err := positiveInt(r, "page")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}

	res, err := h.Docs.Find(r.Context(), service.FindRequest{
		Collection:        slug,
		Where:             where,
		Sort:              r.URL.Query().Get("sort"),
		Limit:             limit,
		Page:              page,
		DisablePagination: r.URL.Query().Get("pagination") == "false",
		Read:              read,
		Caller:            callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *APIHandlers) findByID(w http.ResponseWriter, r *http.Request, slug, id string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	doc, err := h.Docs.FindByID(r.Context(), service.GetRequest{
		Collection: slug,
		ID:         id,
		Read:       read,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// docResponse is the body of successful writes.
type docResponse struct {
	Message string         `json:"message"`
	Doc     map[string]any `json:"doc"`
}

func (h *APIHandlers) create(w http.ResponseWriter, r *http.Request, slug string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var data map[string]any
	if !DecodeJSON(w, r, &data) {
		return
	}
	doc, err := h.Docs.Create(r.Context(), service.WriteRequest{
		Collection: slug,
		Data:       data,
		Locale:     read.Locale,
		Read:       read,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, docResponse{Message: "Successfully created.", Doc: doc})
}

func (h *APIHandlers) update(w http.ResponseWriter, r *http.Request, slug, id string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var data map[string]any
	if !DecodeJSON(w, r, &data) {
		return
	}
	doc, err := h.Docs.Update(r.Context(), service.WriteRequest{
		Collection: slug,
		ID:         id,
		Data:       data,
		Locale:     read.Locale,
		Read:       read,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, docResponse{Message: "Updated successfully.", Doc: doc})
}

func (h *APIHandlers) delete(w http.ResponseWriter, r *http.Request, slug, id string) {
	doc, err := h.Docs.Delete(r.Context(), service.DeleteRequest{
		Collection: slug,
		ID:         id,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

func (h *APIHandlers) findGlobal(w http.ResponseWriter, r *http.Request, slug string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	doc, err := h.Docs.FindGlobal(r.Context(), service.GlobalRequest{
		Slug:   slug,
		Read:   read,
		Caller: callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

func (h *APIHandlers) updateGlobal(w http.ResponseWriter, r *http.Request, slug string) {
	read, err := readOptions(r)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	var data map[string]any
	if !DecodeJSON(w, r, &data) {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	doc, err := h.Docs.UpdateGlobal(r.Context(), service.GlobalRequest{
		Slug:   slug,
		Data:   data,
		Locale: read.Locale,
		Read:   read,
		Caller: callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, docResponse{Message: "Updated successfully.", Doc: doc})
}

func (h *APIHandlers) listVersions(w http.ResponseWriter, r *http.Request, entity model.VersionEntity, slug, parentID string) {
	limit, err := positiveInt(r, "limit")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	page, err := positiveInt(r, "page")
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	res, err := h.Docs.ListVersions(r.Context(), service.VersionsRequest{
		Entity:   entity,
		Slug:     slug,
		ParentID: parentID,
		Limit:    limit,
		Page:     page,
		Caller:   callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *APIHandlers) findVersion(w http.ResponseWriter, r *http.Request, entity model.VersionEntity, slug, id string) {
	v, err := h.Docs.FindVersion(r.Context(), service.VersionRequest{
		Entity: entity,
		Slug:   slug,
		ID:     id,
		Caller: callerFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}
