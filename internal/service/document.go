package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/data"
	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/document"
	"github.com/target/folio/internal/domain/formstate"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/ports"
)

const (
	// MaxDepth caps relationship population.
	MaxDepth = 10
	// DefaultDepth is used by the REST API when no depth is requested.
	DefaultDepth = 2
	// NoFallbackLocale disables locale fallback ("fallback-locale=null").
	NoFallbackLocale = "null"
)

// Caller identifies who is asking. OverrideAccess bypasses access expressions
// and is reserved for internal callers such as auth strategies.
type Caller struct {
	User           *domainauth.User
	OverrideAccess bool
}

// ReadOptions shape returned documents.
type ReadOptions struct {
	Depth          int
	Locale         string
	FallbackLocale string
	// ShowHiddenFields keeps hidden fields and auth secrets. Internal use only.
	ShowHiddenFields bool
}

// FindRequest queries a collection.
type FindRequest struct {
	Collection string
	Where      query.Where
	Sort       string
	// Limit <= 0 uses the collection's default page size.
	Limit             int
	Page              int
	DisablePagination bool
	Read              ReadOptions
	Caller            Caller
}

// GetRequest reads one document.
type GetRequest struct {
	Collection string
	ID         string
	Read       ReadOptions
	Caller     Caller
}

// WriteRequest creates (empty ID) or updates a document.
type WriteRequest struct {
	Collection string
	ID         string
	Data       map[string]any
	// Locale selects the slot written for localized fields.
	Locale string
	Read   ReadOptions
	Caller Caller
}

// DeleteRequest removes a document.
type DeleteRequest struct {
	Collection string
	ID         string
	Caller     Caller
}

// GlobalRequest reads (nil Data) or updates a global.
type GlobalRequest struct {
	Slug   string
	Data   map[string]any
	Locale string
	Read   ReadOptions
	Caller Caller
}

// VersionsRequest lists the history of a document or global.
type VersionsRequest struct {
	Entity   model.VersionEntity
	Slug     string
	ParentID string
	Limit    int
	Page     int
	Caller   Caller
}

// VersionRequest reads one version.
type VersionRequest struct {
	Entity model.VersionEntity
	Slug   string
	ID     string
	Caller Caller
}

// DocumentRepos bundles the storage ports used by DocumentService.
type DocumentRepos struct {
	Docs     core.DocumentRepository
	Globals  core.GlobalRepository
	Versions core.VersionRepository // Optional: nil disables version history
}

// MailSettings configures emails sent on document writes.
type MailSettings struct {
	Mailer ports.Mailer
	// AdminURL is the absolute admin root used in emailed links.
	AdminURL string
}

// DocumentServiceConfig holds DocumentService settings.
type DocumentServiceConfig struct {
	Schema   *schema.Config
	Sessions ports.SessionRevoker // Optional: revoked when an auth document is deleted
	Mail     MailSettings         // Optional
	NewID    func() string
	Logger   *slog.Logger
}

// DocumentServiceOptions groups dependencies for DocumentService.
type DocumentServiceOptions struct {
	Repos  DocumentRepos
	Access *AccessService
	Config DocumentServiceConfig
}

// DocumentService implements collection and global reads and writes on top of the repositories.
type DocumentService struct {
	docs     core.DocumentRepository
	globals  core.GlobalRepository
	versions core.VersionRepository
	access   *AccessService
	schema   *schema.Config
	sessions ports.SessionRevoker
	mail     MailSettings
	newID    func() string
	logger   *slog.Logger
}

// NewDocumentService constructs a new DocumentService. Docs, Access and Schema are required.
func NewDocumentService(opts DocumentServiceOptions) *DocumentService {
	if opts.Repos.Docs == nil {
		panic("DocumentService: Docs repository is required")
	}
	if opts.Access == nil {
		panic("DocumentService: Access is required")
	}
	if opts.Config.Schema == nil {
		panic("DocumentService: Schema is required")
	}
	newID := opts.Config.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		docs:     opts.Repos.Docs,
		globals:  opts.Repos.Globals,
		versions: opts.Repos.Versions,
		access:   opts.Access,
		schema:   opts.Config.Schema,
		sessions: opts.Config.Sessions,
		mail:     opts.Config.Mail,
		newID:    newID,
		logger:   logger.With("component", "documents"),
	}
}

// Schema returns the schema the service was built with.
func (s *DocumentService) Schema() *schema.Config { return s.schema }

func (s *DocumentService) collection(slug string) (schema.CollectionConfig, error) {
	col, ok := s.schema.Collection(slug)
	if !ok {
		return schema.CollectionConfig{}, apperrors.NotFoundf("collection %q not found", slug)
	}
	return col, nil
}

func (s *DocumentService) global(slug string) (schema.GlobalConfig, error) {
	g, ok := s.schema.Global(slug)
	if !ok {
		return schema.GlobalConfig{}, apperrors.NotFoundf("global %q not found", slug)
	}
	return g, nil
}

func (s *DocumentService) authorize(c Caller, entity access.EntityType, slug string, action access.Action) error {
	if c.OverrideAccess || s.access.Allowed(c.User, entity, slug, action) {
		return nil
	}
	if c.User == nil {
		return apperrors.Unauthorized("you must be signed in to perform this action")
	}
	return apperrors.Forbidden("you are not allowed to perform this action")
}

// Find returns one page of documents.
func (s *DocumentService) Find(ctx context.Context, req FindRequest) (*model.PaginatedDocs, error) {
	col, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityCollection, col.Slug, access.ActionRead); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit(col)
	}
	res, err := s.docs.Find(ctx, model.FindParams{
		Collection: col.Slug,
		Where:      req.Where,
		Sort:       req.Sort,
		Limit:      limit,
		Page:       max(req.Page, 1),
		Pagination: !req.DisablePagination,
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}

	out := &model.PaginatedDocs{PageInfo: res.PageInfo, Docs: make([]map[string]any, 0, len(res.Docs))}
	for _, d := range res.Docs {
		out.Docs = append(out.Docs, s.shapeDoc(ctx, col, d, req.Read, req.Caller))
	}
	return out, nil
}

// FindByID returns one document.
func (s *DocumentService) FindByID(ctx context.Context, req GetRequest) (map[string]any, error) {
	col, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityCollection, col.Slug, access.ActionRead); err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByID(ctx, col.Slug, req.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return s.shapeDoc(ctx, col, doc, req.Read, req.Caller), nil
}

// Create validates and stores a new document.
func (s *DocumentService) Create(ctx context.Context, req WriteRequest) (map[string]any, error) {
	col, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityCollection, col.Slug, access.ActionCreate); err != nil {
		return nil, err
	}

	incoming, authKeys, password := splitIncoming(col, req.Data, req.Caller.OverrideAccess)
	stored := s.merger(req.Locale).Merge(col.Fields, nil, incoming)
	applyDefaults(col.Fields, stored)
	for k, v := range authKeys {
		stored[k] = v
	}

	var verifyToken string
	if col.IsAuth() {
		if password == "" && col.LocalStrategyEnabled() && !req.Caller.OverrideAccess {
			return nil, apperrors.ValidationField("password", "This field is required.")
		}
		if err := setPassword(stored, password); err != nil {
			return nil, err
		}
		normalizeEmail(stored)
		if col.Auth.Verify {
			if _, set := stored[schema.KeyVerified]; !set {
				verifyToken = s.newID()
				stored[schema.KeyVerified] = false
				stored[schema.KeyVerificationToken] = verifyToken
			}
		}
	}

	if err := validateData(col.Fields, stored, formstate.OperationCreate, s.writeLocale(req.Locale)); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, col, stored, ""); err != nil {
		return nil, err
	}

	doc, err := s.docs.Create(ctx, model.CreateDocumentRequest{
		Collection: col.Slug,
		Email:      emailColumn(col, stored),
		Data:       stored,
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.logger.InfoContext(ctx, "document created", "collection", col.Slug, "id", doc.ID)

	if verifyToken != "" {
		s.sendVerification(ctx, col, doc, verifyToken)
	}
	return s.shapeDoc(ctx, col, doc, req.Read, req.Caller), nil
}

// Update merges req.Data into the stored document.
func (s *DocumentService) Update(ctx context.Context, req WriteRequest) (map[string]any, error) {
	col, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityCollection, col.Slug, access.ActionUpdate); err != nil {
		return nil, err
	}
	existing, err := s.docs.FindByID(ctx, col.Slug, req.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	incoming, authKeys, password := splitIncoming(col, req.Data, req.Caller.OverrideAccess)
	stored := s.merger(req.Locale).Merge(col.Fields, existing.Data, incoming)
	for k, v := range authKeys {
		if v == nil {
			delete(stored, k)
			continue
		}
		stored[k] = v
	}
	if col.IsAuth() {
		if err := setPassword(stored, password); err != nil {
			return nil, err
		}
		normalizeEmail(stored)
		if enabled, ok := stored[schema.KeyEnableAPIKey].(bool); ok && !enabled {
			delete(stored, schema.KeyAPIKeyIndex)
		}
	}

	if err := validateData(col.Fields, stored, formstate.OperationUpdate, s.writeLocale(req.Locale)); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, col, stored, existing.ID); err != nil {
		return nil, err
	}
	if col.HasVersions() {
		if err := s.snapshot(ctx, model.VersionEntityCollection, col.Slug, existing.ID, existing.Flatten(), col.Versions.MaxPerDoc); err != nil {
			return nil, err
		}
	}

	doc, err := s.docs.Update(ctx, model.UpdateDocumentRequest{
		Collection: col.Slug,
		ID:         existing.ID,
		Email:      emailColumn(col, stored),
		Data:       stored,
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if col.IsAuth() {
		s.access.Invalidate(ctx, col.Slug, doc.ID)
	}
	return s.shapeDoc(ctx, col, doc, req.Read, req.Caller), nil
}

// Delete removes a document with its history and returns it as it was.
func (s *DocumentService) Delete(ctx context.Context, req DeleteRequest) (map[string]any, error) {
	col, err := s.collection(req.Collection)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityCollection, col.Slug, access.ActionDelete); err != nil {
		return nil, err
	}
	existing, err := s.docs.FindByID(ctx, col.Slug, req.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	deleted, err := s.docs.Delete(ctx, col.Slug, existing.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !deleted {
		return nil, apperrors.NotFound("document not found")
	}

	if col.HasVersions() && s.versions != nil {
		if err := s.versions.DeleteForParent(ctx, col.Slug, existing.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete versions", "collection", col.Slug, "id", existing.ID, "error", err)
		}
	}
	if col.IsAuth() {
		s.access.Invalidate(ctx, col.Slug, existing.ID)
		if s.sessions != nil {
			if err := s.sessions.DeleteForUser(ctx, col.Slug, existing.ID); err != nil {
				s.logger.WarnContext(ctx, "failed to revoke sessions", "collection", col.Slug, "id", existing.ID, "error", err)
			}
		}
	}
	s.logger.InfoContext(ctx, "document deleted", "collection", col.Slug, "id", existing.ID)
	return s.shapeDoc(ctx, col, existing, ReadOptions{}, req.Caller), nil
}

// FindGlobal returns a global. A global that was never saved reads as empty.
func (s *DocumentService) FindGlobal(ctx context.Context, req GlobalRequest) (map[string]any, error) {
	g, err := s.global(req.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityGlobal, g.Slug, access.ActionRead); err != nil {
		return nil, err
	}
	stored, err := s.loadGlobal(ctx, g.Slug)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return map[string]any{"globalType": g.Slug}, nil
	}
	return s.shape(ctx, shapeInput{fields: g.Fields, data: stored.Flatten()}, req.Read, req.Caller), nil
}

// UpdateGlobal merges req.Data into the global, snapshotting the previous value when versioned.
func (s *DocumentService) UpdateGlobal(ctx context.Context, req GlobalRequest) (map[string]any, error) {
	g, err := s.global(req.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(req.Caller, access.EntityGlobal, g.Slug, access.ActionUpdate); err != nil {
		return nil, err
	}
	existing, err := s.loadGlobal(ctx, g.Slug)
	if err != nil {
		return nil, err
	}

	var current map[string]any
	if existing != nil {
		current = existing.Data
	}
	stored := s.merger(req.Locale).Merge(g.Fields, current, req.Data)
	if existing == nil {
		applyDefaults(g.Fields, stored)
	}
	if err := validateData(g.Fields, stored, formstate.OperationUpdate, s.writeLocale(req.Locale)); err != nil {
		return nil, err
	}
	if g.HasVersions() && existing != nil {
		if err := s.snapshot(ctx, model.VersionEntityGlobal, g.Slug, "", existing.Flatten(), g.Versions.MaxPerDoc); err != nil {
			return nil, err
		}
	}

	saved, err := s.globals.Upsert(ctx, g.Slug, stored)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return s.shape(ctx, shapeInput{fields: g.Fields, data: saved.Flatten()}, req.Read, req.Caller), nil
}

func (s *DocumentService) loadGlobal(ctx context.Context, slug string) (*model.Global, error) {
	if s.globals == nil {
		return nil, apperrors.Internal("globals are not configured")
	}
	stored, err := s.globals.Get(ctx, slug)
	if errors.Is(err, data.ErrGlobalNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return stored, nil
}

// ListVersions returns one page of history, newest first.
func (s *DocumentService) ListVersions(ctx context.Context, req VersionsRequest) (*model.VersionPage, error) {
	fields, auth, err := s.versionTarget(req.Entity, req.Slug, req.Caller)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = model.DefaultPageLimit
	}
	page, err := s.versions.List(ctx, model.VersionListParams{
		EntityType: req.Entity,
		Slug:       req.Slug,
		ParentID:   req.ParentID,
		Limit:      limit,
		Page:       max(req.Page, 1),
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	for _, v := range page.Docs {
		v.Data = document.StripHidden(fields, v.Data, auth)
	}
	return page, nil
}

// FindVersion returns one version.
func (s *DocumentService) FindVersion(ctx context.Context, req VersionRequest) (*model.Version, error) {
	fields, auth, err := s.versionTarget(req.Entity, req.Slug, req.Caller)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.Get(ctx, req.Entity, req.Slug, req.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	v.Data = document.StripHidden(fields, v.Data, auth)
	return v, nil
}

func (s *DocumentService) versionTarget(entity model.VersionEntity, slug string, c Caller) ([]schema.Field, bool, error) {
	var (
		fields    []schema.Field
		auth      bool
		versioned bool
		kind      access.EntityType
	)
	switch entity {
	case model.VersionEntityCollection:
		col, err := s.collection(slug)
		if err != nil {
			return nil, false, err
		}
		fields, auth, versioned, kind = col.Fields, col.IsAuth(), col.HasVersions(), access.EntityCollection
	case model.VersionEntityGlobal:
		g, err := s.global(slug)
		if err != nil {
			return nil, false, err
		}
		fields, versioned, kind = g.Fields, g.HasVersions(), access.EntityGlobal
	default:
		return nil, false, apperrors.Validationf("unknown version entity %q", entity)
	}
	if !versioned || s.versions == nil {
		return nil, false, apperrors.NotFoundf("%s %q has no versions", entity, slug)
	}
	if err := s.authorize(c, kind, slug, access.ActionReadVersions); err != nil {
		return nil, false, err
	}
	return fields, auth, nil
}

func (s *DocumentService) snapshot(ctx context.Context, entity model.VersionEntity, slug, parentID string, prev map[string]any, keep int) error {
	if s.versions == nil {
		return nil
	}
	if _, err := s.versions.Create(ctx, &model.Version{
		EntityType: entity,
		Slug:       slug,
		ParentID:   parentID,
		Data:       prev,
	}); err != nil {
		return fmt.Errorf("save version: %w", mapRepoErr(err))
	}
	if keep > 0 {
		if _, err := s.versions.Prune(ctx, model.PruneVersionsParams{
			EntityType: entity,
			Slug:       slug,
			ParentID:   parentID,
			Keep:       keep,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to prune versions", "slug", slug, "parent", parentID, "error", err)
		}
	}
	return nil
}

func (s *DocumentService) merger(locale string) document.Merger {
	return document.Merger{Locale: s.writeLocale(locale), NewID: s.newID}
}

// writeLocale is the locale slot a write lands in, or "" when localization is off.
func (s *DocumentService) writeLocale(locale string) string {
	if s.schema.Localization == nil {
		return ""
	}
	if locale == "" {
		return s.schema.DefaultLocale()
	}
	return locale
}

// checkUnique enforces unique fields other than the auth email, which the
// database enforces on its own column.
func (s *DocumentService) checkUnique(ctx context.Context, col schema.CollectionConfig, stored map[string]any, excludeID string) error {
	for _, f := range schema.DataFields(col.Fields) {
		if !f.Unique || f.Localized || (col.IsAuth() && f.Name == "email") {
			continue
		}
		v, ok := stored[f.Name]
		if !ok || v == nil || v == "" {
			continue
		}
		where := query.Equals(f.Name, v)
		if excludeID != "" {
			where = query.And(where, query.Cond("id", query.OpNotEquals, excludeID))
		}
		n, err := s.docs.Count(ctx, col.Slug, where)
		if err != nil {
			return mapRepoErr(err)
		}
		if n > 0 {
			e := apperrors.Conflictf("a %s with this %s already exists", col.Labels.Singular, f.Name)
			e.Field = f.Name
			return e
		}
	}
	return nil
}

func (s *DocumentService) sendVerification(ctx context.Context, col schema.CollectionConfig, doc *model.Document, token string) {
	if s.mail.Mailer == nil || doc.Email == nil {
		return
	}
	link := strings.TrimRight(s.mail.AdminURL, "/") + "/" + col.Slug + "/verify/" + token
	err := s.mail.Mailer.Send(ctx, ports.MailMessage{
		To:      *doc.Email,
		Subject: "Verify your email",
		Body:    "Please verify your email by opening this link:\n\n" + link + "\n",
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to send verification email", "collection", col.Slug, "id", doc.ID, "error", err)
	}
}

// shapeDoc turns a stored document into API output.
func (s *DocumentService) shapeDoc(ctx context.Context, col schema.CollectionConfig, doc *model.Document, read ReadOptions, c Caller) map[string]any {
	return s.shape(ctx, shapeInput{fields: col.Fields, data: doc.Flatten(), auth: col.IsAuth()}, read, c)
}

type shapeInput struct {
	fields []schema.Field
	data   map[string]any
	auth   bool
}

func (s *DocumentService) shape(ctx context.Context, in shapeInput, read ReadOptions, c Caller) map[string]any {
	out := in.data
	if !read.ShowHiddenFields {
		out = document.StripHidden(in.fields, out, in.auth)
	}
	if depth := min(read.Depth, MaxDepth); depth > 0 {
		read.Depth = depth
		out = s.populate(ctx, in.fields, out, read, c)
	}
	locale, fallback := s.locales(read)
	return document.Localize(in.fields, out, locale, fallback)
}

func (s *DocumentService) locales(read ReadOptions) (string, string) {
	def := s.schema.DefaultLocale()
	locale := read.Locale
	if locale == "" {
		locale = def
	}
	fallback := read.FallbackLocale
	switch strings.ToLower(fallback) {
	case NoFallbackLocale, "none", "false":
		fallback = ""
	case "":
		fallback = def
	}
	return locale, fallback
}

func defaultLimit(col schema.CollectionConfig) int {
	if col.Admin.Pagination.DefaultLimit > 0 {
		return col.Admin.Pagination.DefaultLimit
	}
	return model.DefaultPageLimit
}

// splitIncoming separates schema data, auth bookkeeping keys and the plain
// password. Auth bookkeeping keys are only accepted from trusted callers.
func splitIncoming(col schema.CollectionConfig, in map[string]any, trusted bool) (map[string]any, map[string]any, string) {
	if !col.IsAuth() {
		return in, nil, ""
	}
	data := make(map[string]any, len(in))
	authKeys := map[string]any{}
	var password string
	for k, v := range in {
		switch {
		case k == "password":
			password, _ = v.(string)
		case k == schema.KeyEnableAPIKey:
			authKeys[k] = v
		case isAuthKey(k):
			if trusted {
				authKeys[k] = v
			}
		default:
			data[k] = v
		}
	}
	return data, authKeys, password
}

func isAuthKey(k string) bool {
	if k == schema.KeyVerified {
		return true
	}
	for _, h := range schema.HiddenAuthKeys {
		if h == k {
			return true
		}
	}
	return false
}

func setPassword(stored map[string]any, password string) error {
	if password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperrors.ValidationField("password", "This password is too long.")
		}
		return fmt.Errorf("hash password: %w", err)
	}
	stored[schema.KeyHash] = string(hash)
	return nil
}

func normalizeEmail(stored map[string]any) {
	if email, ok := stored["email"].(string); ok {
		stored["email"] = strings.ToLower(strings.TrimSpace(email))
	}
}

// emailColumn returns the value for the unique email column of auth collections.
func emailColumn(col schema.CollectionConfig, stored map[string]any) *string {
	if !col.IsAuth() {
		return nil
	}
	email, ok := stored["email"].(string)
	if !ok || email == "" {
		return nil
	}
	return &email
}

// applyDefaults fills absent top-level fields with their default value.
func applyDefaults(fields []schema.Field, stored map[string]any) {
	for _, f := range schema.DataFields(fields) {
		if _, ok := stored[f.Name]; !ok && f.DefaultValue != nil {
			stored[f.Name] = f.DefaultValue
		}
	}
}

// validateData reports the first invalid path in lexical order.
func validateData(fields []schema.Field, stored map[string]any, op formstate.Operation, locale string) error {
	errs := formstate.Build(formstate.BuildInput{Fields: fields, Data: stored, Operation: op, Locale: locale}).Errors()
	if len(errs) == 0 {
		return nil
	}
	paths := make([]string, 0, len(errs))
	for p := range errs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return apperrors.ValidationField(paths[0], errs[paths[0]])
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, data.ErrDocumentNotFound),
		errors.Is(err, data.ErrGlobalNotFound),
		errors.Is(err, data.ErrVersionNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "not found")
	case errors.Is(err, data.ErrInvalidQuery), errors.Is(err, query.ErrInvalidWhere):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid query")
	}
	return err
}
