package service

import (
	"context"

	"github.com/target/folio/internal/domain/access"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/schema"
)

// populate replaces relationship ids with the related documents, one level per
// unit of read.Depth. Related documents the caller may not read stay as ids.
func (s *DocumentService) populate(ctx context.Context, fields []schema.Field, in map[string]any, read ReadOptions, c Caller) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	s.populateFields(ctx, fields, out, read, c)
	return out
}

func (s *DocumentService) populateFields(ctx context.Context, fields []schema.Field, data map[string]any, read ReadOptions, c Caller) {
	for _, f := range schema.DataFields(fields) {
		v, ok := data[f.Name]
		if !ok || v == nil {
			continue
		}
		// Localized values are stored as {locale: value} until output localization.
		if f.Localized && s.schema.Localization != nil {
			if slots, isMap := v.(map[string]any); isMap {
				populated := make(map[string]any, len(slots))
				for locale, slot := range slots {
					populated[locale] = s.populateValue(ctx, f, slot, read, c)
				}
				data[f.Name] = populated
				continue
			}
		}
		data[f.Name] = s.populateValue(ctx, f, v, read, c)
	}
}

func (s *DocumentService) populateValue(ctx context.Context, f schema.Field, v any, read ReadOptions, c Caller) any {
	switch f.Type {
	case schema.FieldRelationship:
		return s.populateRelation(ctx, f, v, read, c)
	case schema.FieldGroup:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		return s.populate(ctx, f.Fields, m, read, c)
	case schema.FieldArray, schema.FieldBlocks:
		rows, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(rows))
		for i, r := range rows {
			row, isMap := r.(map[string]any)
			if !isMap {
				out[i] = r
				continue
			}
			rowFields := f.Fields
			if f.Type == schema.FieldBlocks {
				blockType, _ := row["blockType"].(string)
				block, _ := f.BlockBySlug(blockType)
				rowFields = block.Fields
			}
			out[i] = s.populate(ctx, rowFields, row, read, c)
		}
		return out
	}
	return v
}

func (s *DocumentService) populateRelation(ctx context.Context, f schema.Field, v any, read ReadOptions, c Caller) any {
	target, ok := s.schema.Collection(f.RelationTo)
	if !ok {
		return v
	}
	if !c.OverrideAccess && !s.access.Allowed(c.User, access.EntityCollection, target.Slug, access.ActionRead) {
		return v
	}

	ids := relationIDs(v)
	if len(ids) == 0 {
		return v
	}
	docs, err := s.docs.FindByIDs(ctx, target.Slug, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "relationship population failed",
			"field", f.Name, "relation_to", target.Slug, "error", err)
		return v
	}
	byID := make(map[string]*model.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	next := read
	next.Depth--
	resolve := func(id string) any {
		if d, found := byID[id]; found {
			return s.shapeDoc(ctx, target, d, next, c)
		}
		return id
	}

	switch t := v.(type) {
	case string:
		return resolve(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			if id, isID := item.(string); isID {
				out[i] = resolve(id)
				continue
			}
			out[i] = item
		}
		return out
	}
	return v
}

func relationIDs(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		ids := make([]string, 0, len(t))
		for _, item := range t {
			if id, ok := item.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	return nil
}
