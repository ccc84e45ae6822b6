package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/formstate"
	"github.com/target/folio/internal/domain/schema"
)

// ErrStaleHydration is returned when a newer hydration for the same editor slot
// started before this one finished. The result must be discarded.
var ErrStaleHydration = errors.New("hydration superseded")

const defaultHydrateTimeout = 10 * time.Second

// HydrationKey identifies what a form state was built from.
type HydrationKey struct {
	ID     string
	Locale string
	Schema string
}

// HydrateRequest describes one edit view load.
type HydrateRequest struct {
	// Slot identifies the editor instance, typically session id plus entity path.
	Slot   string
	Entity access.EntityType
	Slug   string
	// ID is empty for create and for globals.
	ID     string
	Locale string
	// Data skips the fetch, used to re-hydrate from a freshly saved document.
	Data   map[string]any
	Caller Caller
}

// Hydration is a completed form state for the edit view.
type Hydration struct {
	Key       HydrationKey
	Operation formstate.Operation
	State     formstate.FormState
	Data      map[string]any
	UpdatedAt string
}

type hydrateReader interface {
	FindByID(ctx context.Context, req GetRequest) (map[string]any, error)
	FindGlobal(ctx context.Context, req GlobalRequest) (map[string]any, error)
}

// HydratorOptions groups dependencies for NewHydrator.
type HydratorOptions struct {
	Documents hydrateReader
	Schema    *schema.Config
	Config    HydratorConfig
}

// HydratorConfig holds optional settings for the Hydrator.
type HydratorConfig struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Hydrator loads documents into form state for the admin edit view.
type Hydrator struct {
	docs        hydrateReader
	schema      *schema.Config
	timeout     time.Duration
	logger      *slog.Logger
	coord       *hydrationCoordinator
	fingerprint map[string]string
}

// NewHydrator constructs a Hydrator. Schema fingerprints are computed once.
func NewHydrator(opts HydratorOptions) *Hydrator {
	if opts.Documents == nil {
		panic("Documents is required")
	}
	if opts.Schema == nil {
		panic("Schema is required")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Config.Timeout
	if timeout <= 0 {
		timeout = defaultHydrateTimeout
	}

	h := &Hydrator{
		docs:        opts.Documents,
		schema:      opts.Schema,
		timeout:     timeout,
		logger:      logger.With("component", "hydrator"),
		coord:       newHydrationCoordinator(),
		fingerprint: map[string]string{},
	}
	for _, c := range opts.Schema.Collections {
		h.fingerprint[entityKey(access.EntityCollection, c.Slug)] = fingerprint(c.Slug, c.Fields)
	}
	for _, g := range opts.Schema.Globals {
		h.fingerprint[entityKey(access.EntityGlobal, g.Slug)] = fingerprint(g.Slug, g.Fields)
	}
	return h
}

func entityKey(entity access.EntityType, slug string) string {
	return string(entity) + ":" + slug
}

func fingerprint(slug string, fields []schema.Field) string {
	b, err := json.Marshal(fields)
	if err != nil {
		return slug
	}
	sum := sha256.Sum256(b)
	return slug + "@" + hex.EncodeToString(sum[:8])
}

// Hydrate builds form state for req. It returns ErrStaleHydration when a newer
// request for the same slot began first; fetch errors are returned as is.
func (h *Hydrator) Hydrate(ctx context.Context, req HydrateRequest) (*Hydration, error) {
	fields, err := h.fields(req.Entity, req.Slug)
	if err != nil {
		return nil, err
	}
	locale := req.Locale
	if h.schema.Localization != nil && locale == "" {
		locale = h.schema.DefaultLocale()
	}
	key := HydrationKey{ID: req.ID, Locale: locale, Schema: h.fingerprint[entityKey(req.Entity, req.Slug)]}
	ticket := h.coord.begin(req.Slot, key)

	op := formstate.OperationCreate
	if req.ID != "" || req.Entity == access.EntityGlobal {
		op = formstate.OperationUpdate
	}

	data := req.Data
	if data == nil && op == formstate.OperationUpdate {
		data, err = h.fetch(ctx, req, locale)
		if err != nil {
			h.coord.finish(ticket)
			return nil, err
		}
	}

	state := formstate.Build(formstate.BuildInput{
		Fields:    fields,
		Data:      data,
		Operation: op,
		Locale:    locale,
		ID:        req.ID,
	})

	if !h.coord.finish(ticket) {
		h.logger.DebugContext(ctx, "discarding stale hydration",
			"slug", req.Slug, "id", req.ID, "locale", locale)
		return nil, ErrStaleHydration
	}

	out := &Hydration{Key: key, Operation: op, State: state, Data: data}
	if v, ok := data["updatedAt"].(string); ok {
		out.UpdatedAt = v
	}
	return out, nil
}

func (h *Hydrator) fields(entity access.EntityType, slug string) ([]schema.Field, error) {
	switch entity {
	case access.EntityCollection:
		if c, ok := h.schema.Collection(slug); ok {
			return c.Fields, nil
		}
	case access.EntityGlobal:
		if g, ok := h.schema.Global(slug); ok {
			return g.Fields, nil
		}
	}
	return nil, fmt.Errorf("hydrate %s %q: %w", entity, slug, errUnknownEntity)
}

var errUnknownEntity = errors.New("unknown entity")

// fetch reads the raw stored document: depth 0 and no locale fallback so the
// form shows exactly what is saved for the locale.
func (h *Hydrator) fetch(ctx context.Context, req HydrateRequest, locale string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	read := ReadOptions{Depth: 0, Locale: locale, FallbackLocale: NoFallbackLocale}
	if req.Entity == access.EntityGlobal {
		return h.docs.FindGlobal(ctx, GlobalRequest{Slug: req.Slug, Read: read, Caller: req.Caller})
	}
	return h.docs.FindByID(ctx, GetRequest{Collection: req.Slug, ID: req.ID, Read: read, Caller: req.Caller})
}

// Forget drops the slot, making any in-flight hydration for it stale.
func (h *Hydrator) Forget(slot string) { h.coord.forget(slot) }

// hydrationCoordinator hands out tickets per editor slot. Generations come from
// one process-wide counter so a ticket never collides with a later slot reuse.
type hydrationCoordinator struct {
	gen   atomic.Uint64
	mu    sync.Mutex
	slots map[string]hydrationTicket
}

type hydrationTicket struct {
	slot string
	gen  uint64
	key  HydrationKey
}

func newHydrationCoordinator() *hydrationCoordinator {
	return &hydrationCoordinator{slots: map[string]hydrationTicket{}}
}

func (c *hydrationCoordinator) begin(slot string, key HydrationKey) hydrationTicket {
	t := hydrationTicket{slot: slot, gen: c.gen.Add(1), key: key}
	c.mu.Lock()
	c.slots[slot] = t
	c.mu.Unlock()
	return t
}

// finish reports whether t is still the newest ticket for its slot and
// releases the slot when it is.
func (c *hydrationCoordinator) finish(t hydrationTicket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.slots[t.slot]
	if !ok || cur.gen != t.gen || cur.key != t.key {
		return false
	}
	delete(c.slots, t.slot)
	return true
}

func (c *hydrationCoordinator) forget(slot string) {
	c.mu.Lock()
	delete(c.slots, slot)
	c.mu.Unlock()
}

func (c *hydrationCoordinator) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
