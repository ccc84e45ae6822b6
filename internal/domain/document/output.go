package document

import (
	"github.com/target/folio/internal/domain/schema"
)

// LocaleAll returns localized fields with every locale slot.
const LocaleAll = "all"

// Localize flattens localized fields to the value for locale. When the slot is
// empty, fallback is used if set. Non-schema keys are copied through unchanged.
func Localize(fields []schema.Field, data map[string]any, locale, fallback string) map[string]any {
	if data == nil {
		return nil
	}
	if locale == "" || locale == LocaleAll {
		return data
	}
	out := cloneMap(data)
	localizeInto(schema.DataFields(fields), out, locale, fallback)
	return out
}

func localizeInto(fields []schema.Field, out map[string]any, locale, fallback string) {
	for _, f := range fields {
		v, ok := out[f.Name]
		if !ok {
			continue
		}
		if f.Localized {
			if slots, isMap := v.(map[string]any); isMap {
				v = slots[locale]
				if v == nil && fallback != "" {
					v = slots[fallback]
				}
			}
		}
		out[f.Name] = localizeNested(f, v, locale, fallback)
	}
}

func localizeNested(f schema.Field, v any, locale, fallback string) any {
	switch f.Type {
	case schema.FieldGroup:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		c := cloneMap(m)
		localizeInto(schema.DataFields(f.Fields), c, locale, fallback)
		return c
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
			c := cloneMap(row)
			rowFields := f.Fields
			if f.Type == schema.FieldBlocks {
				blockType, _ := row["blockType"].(string)
				block, _ := f.BlockBySlug(blockType)
				rowFields = block.Fields
			}
			localizeInto(schema.DataFields(rowFields), c, locale, fallback)
			out[i] = c
		}
		return out
	}
	return v
}

// StripHidden removes auth secrets and fields marked hidden from a copy of data.
func StripHidden(fields []schema.Field, data map[string]any, auth bool) map[string]any {
	if data == nil {
		return nil
	}
	out := cloneMap(data)
	if auth {
		for _, k := range schema.HiddenAuthKeys {
			delete(out, k)
		}
	}
	for _, f := range schema.DataFields(fields) {
		if f.Hidden {
			delete(out, f.Name)
		}
	}
	return out
}
