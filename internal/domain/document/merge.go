// Package document applies incoming writes to stored document data and shapes
// stored data for output, following the field schema.
package document

import (
	"github.com/target/folio/internal/domain/schema"
)

// Merger writes incoming field values over stored data.
//
// Top-level fields and groups are patched: omitted keys keep their stored value.
// Array and blocks rows that carry the id of a stored row are merged into that row;
// rows without an id (or with an unknown id) start empty. Stored rows missing from
// the incoming list are dropped, and the incoming order wins.
type Merger struct {
	// Locale selects the slot written for localized fields. Empty disables localization.
	Locale string
	// NewID generates ids for new array and blocks rows.
	NewID func() string
}

// Merge returns a new map; neither input is modified.
func (m Merger) Merge(fields []schema.Field, stored, incoming map[string]any) map[string]any {
	out := cloneMap(stored)
	m.mergeInto(fields, out, incoming)
	return out
}

func (m Merger) mergeInto(fields []schema.Field, out, incoming map[string]any) {
	for _, f := range schema.DataFields(fields) {
		in, present := incoming[f.Name]
		if !present {
			continue
		}
		current := out[f.Name]
		if m.localize(f) {
			slots, _ := current.(map[string]any)
			slots = cloneMap(slots)
			slots[m.Locale] = m.mergeValue(f, slots[m.Locale], in)
			out[f.Name] = slots
			continue
		}
		out[f.Name] = m.mergeValue(f, current, in)
	}
}

func (m Merger) localize(f schema.Field) bool {
	return f.Localized && m.Locale != ""
}

func (m Merger) mergeValue(f schema.Field, current, in any) any {
	switch f.Type {
	case schema.FieldGroup:
		inMap, ok := in.(map[string]any)
		if !ok {
			return in
		}
		cur, _ := current.(map[string]any)
		merged := cloneMap(cur)
		m.mergeInto(f.Fields, merged, inMap)
		return merged
	case schema.FieldArray, schema.FieldBlocks:
		inRows, ok := in.([]any)
		if !ok {
			return in
		}
		return m.mergeRows(f, current, inRows)
	default:
		return in
	}
}

func (m Merger) mergeRows(f schema.Field, current any, inRows []any) []any {
	stored := map[string]map[string]any{}
	if curRows, ok := current.([]any); ok {
		for _, r := range curRows {
			if row, isMap := r.(map[string]any); isMap {
				if id, hasID := row["id"].(string); hasID && id != "" {
					stored[id] = row
				}
			}
		}
	}

	out := make([]any, 0, len(inRows))
	for _, r := range inRows {
		inRow, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id, _ := inRow["id"].(string)
		base, known := stored[id]
		var row map[string]any
		if known {
			row = cloneMap(base)
		} else {
			row = map[string]any{}
			if id == "" && m.NewID != nil {
				id = m.NewID()
			}
		}
		row["id"] = id

		rowFields := f.Fields
		if f.Type == schema.FieldBlocks {
			blockType, _ := inRow["blockType"].(string)
			if blockType == "" {
				blockType, _ = row["blockType"].(string)
			}
			row["blockType"] = blockType
			block, _ := f.BlockBySlug(blockType)
			rowFields = block.Fields
		}
		m.mergeInto(rowFields, row, inRow)
		out = append(out, row)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
