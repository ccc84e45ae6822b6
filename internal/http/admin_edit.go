package httpx

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/service"
)

// editTarget is the document an edit view works on.
type editTarget struct {
	Mode     FormMode
	Entity   access.EntityType
	Slug     string
	ID       string
	Label    string
	Fields   []schema.Field
	Title    string
	Versions bool
	Auth     *schema.AuthConfig
	Account  bool
}

func (t editTarget) basePath() string {
	if t.Entity == access.EntityGlobal {
		return "/globals/" + t.Slug
	}
	return "/collections/" + t.Slug
}

func (h *AdminHandlers) editTarget(v viewRequest) (editTarget, bool) {
	sc := h.schema()
	if v.View == route.ViewGlobal {
		g, ok := sc.Global(v.Route.Slug)
		if !ok {
			return editTarget{}, false
		}
		return editTarget{
			Mode:     FormModeEdit,
			Entity:   access.EntityGlobal,
			Slug:     g.Slug,
			Label:    g.Label,
			Fields:   g.Fields,
			Versions: g.HasVersions(),
		}, true
	}

	slug := v.Route.Slug
	t := editTarget{Mode: FormModeEdit, Entity: access.EntityCollection, ID: v.Params["id"]}
	switch v.View {
	case route.ViewCreate:
		t.Mode = FormModeCreate
	case route.ViewAccount:
		if v.Snap.User == nil {
			return editTarget{}, false
		}
		slug = v.Snap.User.Collection
		t.ID = v.Snap.User.ID
		t.Account = true
	}
	c, ok := sc.Collection(slug)
	if !ok {
		return editTarget{}, false
	}
	t.Slug = c.Slug
	t.Label = c.Labels.Singular
	t.Fields = c.Fields
	t.Title = c.Admin.UseAsTitle
	t.Versions = c.HasVersions()
	t.Auth = c.Auth
	return t, true
}

// editForm is the template model of an edit view.
type editForm struct {
	Mode        FormMode
	Heading     string
	ID          string
	Fields      []fieldView
	Action      string
	APIURL      string
	ListURL     string
	VersionsURL string
	UpdatedAt   string
	Locales     []NavLink
	CanSave     bool
	CanDelete   bool
	// Password shows the password inputs of a local-auth collection.
	Password bool
	// APIKey offers key rotation; NewAPIKey is shown once after rotating.
	APIKey    bool
	NewAPIKey string
}

// locale returns the requested locale when configured, else the default.
func (h *AdminHandlers) locale(r *http.Request) string {
	sc := h.schema()
	if l := r.URL.Query().Get("locale"); l != "" && sc.HasLocale(l) {
		return l
	}
	return sc.DefaultLocale()
}

// hydrationSlot identifies one editor: the session and the page it edits.
func hydrationSlot(r *http.Request) string {
	owner := ""
	if s := SessionFromContext(r.Context()); s != nil {
		owner = s.ID
	} else if u := UserFromContext(r.Context()); u != nil {
		owner = u.Collection + "/" + u.ID
	}
	return owner + ":" + r.URL.Path
}

func (h *AdminHandlers) hydrate(r *http.Request, t editTarget, locale string, data map[string]any) (*service.Hydration, error) {
	return h.Hydrator.Hydrate(r.Context(), service.HydrateRequest{
		Slot:   hydrationSlot(r),
		Entity: t.Entity,
		Slug:   t.Slug,
		ID:     t.ID,
		Locale: locale,
		Data:   data,
		Caller: callerFromContext(r.Context()),
	})
}

func (h *AdminHandlers) edit(w http.ResponseWriter, r *http.Request, v viewRequest) {
	t, ok := h.editTarget(v)
	if !ok {
		h.notFound(w, r, v)
		return
	}
	locale := h.locale(r)

	if r.Method != http.MethodPost {
		hyd, err := h.hydrate(r, t, locale, nil)
		if h.loadFailed(w, r, v, err) {
			return
		}
		msg := ""
		if r.URL.Query().Get("created") == "1" {
			msg = "Created successfully."
		}
		h.renderEdit(w, r, v, t, locale, hyd, nil, http.StatusOK, func(b *TemplateDataBuilder) { b.WithMessage(msg) })
		return
	}

	op := r.PostFormValue(formOpField)
	switch {
	case op == formOpDelete:
		h.deleteDoc(w, r, v, t)
	case op == formOpRotateKey:
		h.rotateKey(w, r, v, t, locale)
	case strings.HasPrefix(op, formOpAddRow+":"), strings.HasPrefix(op, formOpRemoveRow+":"):
		h.rowOp(w, r, v, t, locale, op)
	default:
		h.save(w, r, v, t, locale)
	}
}

// loadFailed handles errors loading a document; it reports whether the response was written.
// Anything other than stale hydration or denied access lands on the not-found view.
func (h *AdminHandlers) loadFailed(w http.ResponseWriter, r *http.Request, v viewRequest, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, service.ErrStaleHydration):
		HTMX(w).Discard()
	case apperrors.IsForbidden(err), apperrors.IsUnauthorized(err):
		h.unauthorized(w, r, v)
	default:
		if !apperrors.IsNotFound(err) {
			h.logger().ErrorContext(r.Context(), "admin document load failed", "path", v.Path, "error", err)
		}
		redirectTo(w, r, h.path(route.PathNotFound))
	}
	return true
}

func (h *AdminHandlers) save(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget, locale string) {
	data, decodeErrs := decodeForm(t.Fields, r.PostForm)
	if t.Auth != nil && !t.Auth.DisableLocalStrategy {
		if pw := r.PostFormValue("password"); pw != "" {
			if pw != r.PostFormValue("confirmPassword") {
				decodeErrs["confirmPassword"] = "Passwords do not match."
			}
			data["password"] = pw
		}
	}
	if len(decodeErrs) > 0 {
		h.rerender(w, r, v, t, locale, data, decodeErrs, http.StatusBadRequest, "")
		return
	}

	caller := callerFromContext(r.Context())
	read := service.ReadOptions{Depth: 0, Locale: locale, FallbackLocale: service.NoFallbackLocale}
	var (
		saved map[string]any
		err   error
	)
	switch {
	case t.Entity == access.EntityGlobal:
		saved, err = h.Docs.UpdateGlobal(r.Context(), service.GlobalRequest{
			Slug: t.Slug, Data: data, Locale: locale, Read: read, Caller: caller,
		})
	case t.Mode == FormModeCreate:
		saved, err = h.Docs.Create(r.Context(), service.WriteRequest{
			Collection: t.Slug, Data: data, Locale: locale, Read: read, Caller: caller,
		})
	default:
		saved, err = h.Docs.Update(r.Context(), service.WriteRequest{
			Collection: t.Slug, ID: t.ID, Data: data, Locale: locale, Read: read, Caller: caller,
		})
	}

	if err != nil {
		switch {
		case apperrors.IsValidation(err), apperrors.IsConflict(err):
			_, msg := h.userMessage(r, err)
			errs := map[string]string{}
			if field := apperrors.GetField(err); field != "" {
				errs[field] = msg
			}
			h.rerender(w, r, v, t, locale, data, errs, http.StatusBadRequest, msg)
		case apperrors.IsNotFound(err):
			redirectTo(w, r, h.path(route.PathNotFound))
		case apperrors.IsForbidden(err):
			h.unauthorized(w, r, v)
		default:
			status, msg := h.userMessage(r, err)
			h.rerender(w, r, v, t, locale, data, nil, status, msg)
		}
		return
	}

	if t.Mode == FormModeCreate {
		q := url.Values{"created": {"1"}}
		if locale != "" {
			q.Set("locale", locale)
		}
		redirectTo(w, r, h.path(fmt.Sprintf("%s/%v", t.basePath(), saved["id"]))+"?"+q.Encode())
		return
	}

	hyd, err := h.hydrate(r, t, locale, saved)
	if h.loadFailed(w, r, v, err) {
		return
	}
	h.renderEdit(w, r, v, t, locale, hyd, nil, http.StatusOK, func(b *TemplateDataBuilder) {
		b.WithMessage("Updated successfully.")
	})
}

// rerender shows posted data again with errors. Field errors found by the
// form state are merged with the ones reported by the save.
func (h *AdminHandlers) rerender(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget, locale string, data map[string]any, errs map[string]string, status int, msg string) {
	hyd, err := h.hydrate(r, t, locale, data)
	if h.loadFailed(w, r, v, err) {
		return
	}
	all := hyd.State.Errors()
	maps.Copy(all, errs)
	h.renderEdit(w, r, v, t, locale, hyd, all, formStatus(r, status), func(b *TemplateDataBuilder) {
		if msg == "" && len(all) > 0 {
			msg = "Please correct the invalid fields."
		}
		if msg != "" {
			b.WithError(msg)
		}
	})
}

// rowOp adds or removes a row without saving.
func (h *AdminHandlers) rowOp(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget, locale, raw string) {
	data, _ := decodeForm(t.Fields, r.PostForm)
	op, ok := parseRowOp(raw)
	if !ok {
		h.rerender(w, r, v, t, locale, data, nil, http.StatusBadRequest, "Unknown form operation.")
		return
	}
	if err := applyRowOp(t.Fields, data, op); err != nil {
		h.logger().DebugContext(r.Context(), "row operation rejected", "op", raw, "error", err)
		h.rerender(w, r, v, t, locale, data, nil, http.StatusBadRequest, "That row change is not allowed.")
		return
	}
	hyd, err := h.hydrate(r, t, locale, data)
	if h.loadFailed(w, r, v, err) {
		return
	}
	h.renderEdit(w, r, v, t, locale, hyd, nil, http.StatusOK, nil)
}

func (h *AdminHandlers) deleteDoc(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget) {
	if t.Entity != access.EntityCollection || t.Mode != FormModeEdit || t.Account {
		h.rerender(w, r, v, t, h.locale(r), nil, nil, http.StatusBadRequest, "This document cannot be deleted here.")
		return
	}
	_, err := h.Docs.Delete(r.Context(), service.DeleteRequest{
		Collection: t.Slug,
		ID:         t.ID,
		Caller:     callerFromContext(r.Context()),
	})
	switch {
	case err == nil, apperrors.IsNotFound(err):
		redirectTo(w, r, h.path(t.basePath()))
	case apperrors.IsForbidden(err):
		h.unauthorized(w, r, v)
	default:
		status, msg := h.userMessage(r, err)
		h.rerender(w, r, v, t, h.locale(r), nil, nil, status, msg)
	}
}

// rotateKey issues a new API key and shows it exactly once. The key is never logged.
func (h *AdminHandlers) rotateKey(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget, locale string) {
	if t.Auth == nil || !t.Auth.UseAPIKey || t.Mode != FormModeEdit {
		h.rerender(w, r, v, t, locale, nil, nil, http.StatusBadRequest, "API keys are not enabled for this collection.")
		return
	}
	key, err := h.Auth.RotateAPIKey(r.Context(), service.RotateAPIKeyInput{
		Collection: t.Slug,
		ID:         t.ID,
		Caller:     callerFromContext(r.Context()),
	})
	if err != nil {
		status, msg := h.userMessage(r, err)
		if apperrors.IsForbidden(err) {
			h.unauthorized(w, r, v)
			return
		}
		h.rerender(w, r, v, t, locale, nil, nil, status, msg)
		return
	}
	hyd, err := h.hydrate(r, t, locale, nil)
	if h.loadFailed(w, r, v, err) {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.renderEdit(w, r, v, t, locale, hyd, nil, http.StatusOK, func(b *TemplateDataBuilder) {
		b.WithMessage("A new API key was generated. Copy it now; it will not be shown again.")
		form := b.data["Form"].(*editForm)
		form.NewAPIKey = key
	})
}

func (h *AdminHandlers) renderEdit(w http.ResponseWriter, r *http.Request, v viewRequest, t editTarget, locale string, hyd *service.Hydration, errs map[string]string, status int, extra func(*TemplateDataBuilder)) {
	form := h.buildEditForm(r, v, t, locale, hyd, errs)
	b := h.base(r, v, form.Heading).With("Form", form).WithFieldErrors(errs)
	if extra != nil {
		extra(b)
	}
	h.render(w, r, status, b.Build())
}

func (h *AdminHandlers) buildEditForm(r *http.Request, v viewRequest, t editTarget, locale string, hyd *service.Hydration, errs map[string]string) *editForm {
	perms := v.Snap.Permissions
	form := &editForm{
		Mode:      t.Mode,
		ID:        t.ID,
		Fields:    buildFieldViews(t.Fields, hyd.State, "", errs),
		UpdatedAt: hyd.UpdatedAt,
		ListURL:   h.path(t.basePath()),
	}

	docPath := t.basePath()
	apiPath := h.APIPrefix + "/" + t.Slug
	switch {
	case t.Entity == access.EntityGlobal:
		form.Heading = t.Label
		apiPath = h.APIPrefix + "/globals/" + t.Slug
		form.CanSave = perms.Check(access.EntityGlobal, t.Slug, access.ActionUpdate)
		if t.Versions {
			form.VersionsURL = h.path(docPath + "/versions")
		}
	case t.Mode == FormModeCreate:
		form.Heading = "Create New " + t.Label
		docPath += "/create"
		form.CanSave = perms.Check(access.EntityCollection, t.Slug, access.ActionCreate)
	default:
		form.Heading = documentTitle(hyd.Data, t.Title, t.ID)
		docPath += "/" + t.ID
		apiPath += "/" + t.ID
		form.CanSave = perms.Check(access.EntityCollection, t.Slug, access.ActionUpdate)
		form.CanDelete = !t.Account && perms.Check(access.EntityCollection, t.Slug, access.ActionDelete)
		if t.Versions {
			form.VersionsURL = h.path(docPath + "/versions")
		}
	}
	if t.Account {
		form.Heading = "Account"
		docPath = route.PathAccount
	}

	q := url.Values{}
	if locale != "" {
		q.Set("locale", locale)
	}
	form.Action = h.path(docPath)
	if len(q) > 0 {
		form.Action += "?" + q.Encode()
	}
	q.Set("depth", "0")
	q.Set("fallback-locale", service.NoFallbackLocale)
	form.APIURL = apiPath + "?" + q.Encode()

	if t.Auth != nil {
		form.Password = !t.Auth.DisableLocalStrategy
		form.APIKey = t.Auth.UseAPIKey && t.Mode == FormModeEdit
	}

	if loc := h.schema().Localization; loc != nil {
		for _, l := range loc.Locales {
			form.Locales = append(form.Locales, NavLink{
				Label:  l,
				Href:   h.path(docPath) + "?locale=" + url.QueryEscape(l),
				Active: l == locale,
			})
		}
	}
	return form
}

// documentTitle is the useAsTitle value, falling back to the id.
func documentTitle(data map[string]any, useAsTitle, id string) string {
	if useAsTitle != "" && useAsTitle != "id" {
		if s, ok := data[useAsTitle].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if id == "" {
		if v, ok := data["id"]; ok {
			return fmt.Sprint(v)
		}
	}
	return id
}
