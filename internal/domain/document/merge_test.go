package document

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/folio/internal/domain/schema"
)

var arrayFields = []schema.Field{
	{
		Name: "array",
		Type: schema.FieldArray,
		Fields: []schema.Field{
			{Name: "required", Type: schema.FieldText, Required: true, Localized: true},
			{Name: "optional", Type: schema.FieldText, Localized: true},
		},
	},
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("row-%d", n)
	}
}

func rowsOf(t *testing.T, data map[string]any) []map[string]any {
	t.Helper()
	raw, ok := data["array"].([]any)
	require.True(t, ok, "array field missing")
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func TestMerger_RowWithIDKeepsOmittedFields(t *testing.T) {
	m := Merger{NewID: seqIDs()}
	created := m.Merge(arrayFields, nil, map[string]any{
		"array": []any{
			map[string]any{"required": "a required field here", "optional": "some optional text"},
			map[string]any{"required": "another required field here", "optional": "this is cool"},
		},
	})
	rows := rowsOf(t, created)
	require.Len(t, rows, 2)
	assert.Equal(t, "row-1", rows[0]["id"])

	updated := m.Merge(arrayFields, created, map[string]any{
		"array": []any{
			map[string]any{"id": rows[0]["id"], "required": "new text"},
			rows[1],
		},
	})
	got := rowsOf(t, updated)
	assert.Equal(t, "new text", got[0]["required"])
	assert.Equal(t, "some optional text", got[0]["optional"])
}

func TestMerger_RowWithoutIDReplaces(t *testing.T) {
	m := Merger{NewID: seqIDs()}
	created := m.Merge(arrayFields, nil, map[string]any{
		"array": []any{
			map[string]any{"required": "a required field here", "optional": "some optional text"},
			map[string]any{"required": "test", "optional": "optional test"},
		},
	})
	rows := rowsOf(t, created)

	updated := m.Merge(arrayFields, created, map[string]any{
		"array": []any{
			map[string]any{"required": "here is some new text"},
			map[string]any{"id": rows[1]["id"], "required": "test"},
		},
	})
	got := rowsOf(t, updated)
	assert.Equal(t, "here is some new text", got[0]["required"])
	_, hasOptional := got[0]["optional"]
	assert.False(t, hasOptional)
	assert.Equal(t, "optional test", got[1]["optional"])
	assert.Equal(t, rows[1]["id"], got[1]["id"])
}

func TestMerger_LocalizedRowsFollowIDs(t *testing.T) {
	en := Merger{Locale: "en", NewID: seqIDs()}
	de := Merger{Locale: "de", NewID: seqIDs()}

	doc := en.Merge(arrayFields, nil, map[string]any{
		"array": []any{
			map[string]any{"required": "first", "optional": "first optional"},
			map[string]any{"required": "second", "optional": "second optional"},
			map[string]any{"required": "third", "optional": "third optional"},
		},
	})
	rows := rowsOf(t, doc)
	id0, id1, id2 := rows[0]["id"], rows[1]["id"], rows[2]["id"]

	doc = de.Merge(arrayFields, doc, map[string]any{
		"array": []any{
			map[string]any{"id": id0, "required": "erste"},
			map[string]any{"id": id1, "required": "zweite"},
			map[string]any{"id": id2, "required": "dritte"},
		},
	})

	t.Run("swap order", func(t *testing.T) {
		swapped := en.Merge(arrayFields, doc, map[string]any{
			"array": []any{
				map[string]any{"id": id1, "required": "second"},
				map[string]any{"id": id0, "required": "first"},
				map[string]any{"id": id2, "required": "third"},
			},
		})
		enDoc := Localize(arrayFields, swapped, "en", "")
		deDoc := Localize(arrayFields, swapped, "de", "")

		enRows, deRows := rowsOf(t, enDoc), rowsOf(t, deDoc)
		assert.Equal(t, id1, enRows[0]["id"])
		assert.Equal(t, "second", enRows[0]["required"])
		assert.Equal(t, "second optional", enRows[0]["optional"])
		assert.Equal(t, id1, deRows[0]["id"])
		assert.Equal(t, "zweite", deRows[0]["required"])
		assert.Equal(t, "erste", deRows[1]["required"])
	})

	t.Run("delete by id", func(t *testing.T) {
		trimmed := en.Merge(arrayFields, doc, map[string]any{
			"array": []any{
				map[string]any{"id": id0, "required": "first"},
				map[string]any{"id": id2, "required": "third"},
			},
		})
		deRows := rowsOf(t, Localize(arrayFields, trimmed, "de", ""))
		require.Len(t, deRows, 2)
		assert.Equal(t, id0, deRows[0]["id"])
		assert.Equal(t, "erste", deRows[0]["required"])
		assert.Equal(t, id2, deRows[1]["id"])
		assert.Equal(t, "dritte", deRows[1]["required"])
	})
}

func TestMerger_PatchesTopLevelAndGroups(t *testing.T) {
	fields := []schema.Field{
		{Name: "title", Type: schema.FieldText},
		{Name: "meta", Type: schema.FieldGroup, Fields: []schema.Field{
			{Name: "description", Type: schema.FieldText},
			{Name: "keywords", Type: schema.FieldText},
		}},
	}
	stored := map[string]any{
		"title": "old",
		"meta":  map[string]any{"description": "d", "keywords": "k"},
		"hash":  "secret",
	}
	out := Merger{}.Merge(fields, stored, map[string]any{
		"meta": map[string]any{"keywords": "k2"},
		"hash": "attacker",
	})

	assert.Equal(t, "old", out["title"])
	assert.Equal(t, map[string]any{"description": "d", "keywords": "k2"}, out["meta"])
	assert.Equal(t, "secret", out["hash"], "non-schema keys are not writable")
	assert.Equal(t, "k", stored["meta"].(map[string]any)["keywords"], "input not mutated")
}

func TestMerger_Blocks(t *testing.T) {
	fields := []schema.Field{{
		Name: "layout",
		Type: schema.FieldBlocks,
		Blocks: []schema.Block{
			{Slug: "cta", Fields: []schema.Field{{Name: "label", Type: schema.FieldText}, {Name: "href", Type: schema.FieldText}}},
		},
	}}
	m := Merger{NewID: seqIDs()}
	doc := m.Merge(fields, nil, map[string]any{
		"layout": []any{map[string]any{"blockType": "cta", "label": "Go", "href": "/go"}},
	})
	rows := doc["layout"].([]any)
	id := rows[0].(map[string]any)["id"]

	doc = m.Merge(fields, doc, map[string]any{
		"layout": []any{map[string]any{"id": id, "label": "Run"}},
	})
	row := doc["layout"].([]any)[0].(map[string]any)
	assert.Equal(t, "cta", row["blockType"])
	assert.Equal(t, "Run", row["label"])
	assert.Equal(t, "/go", row["href"])
}

func TestLocalize_Fallback(t *testing.T) {
	fields := []schema.Field{{Name: "title", Type: schema.FieldText, Localized: true}}
	data := map[string]any{"title": map[string]any{"en": "Hello"}}

	assert.Equal(t, "Hello", Localize(fields, data, "de", "en")["title"])
	assert.Nil(t, Localize(fields, data, "de", "")["title"])
	assert.Equal(t, data, Localize(fields, data, LocaleAll, ""))
}

func TestStripHidden(t *testing.T) {
	fields := []schema.Field{
		{Name: "email", Type: schema.FieldEmail},
		{Name: "internalNote", Type: schema.FieldText, Hidden: true},
	}
	data := map[string]any{
		"email":        "a@example.com",
		"internalNote": "x",
		"hash":         "h",
		"apiKeyIndex":  "i",
		"_verified":    true,
	}
	out := StripHidden(fields, data, true)
	assert.Equal(t, map[string]any{"email": "a@example.com", "_verified": true}, out)
	assert.Contains(t, data, "hash", "input not mutated")
}
