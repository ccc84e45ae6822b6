package httpx

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/target/folio/internal/domain/formstate"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/http/uiutil"
)

// fieldView is one rendered form control. Container fields carry Children,
// array and blocks fields carry Rows.
type fieldView struct {
	Path        string
	Label       string
	Type        string
	Required    bool
	ReadOnly    bool
	Description string
	Value       string
	Checked     bool
	HasMany     bool
	Options     []optionView
	Error       string
	Children    []fieldView
	Rows        []rowView
	Blocks      []schema.Block
	CanAddRow   bool
}

type optionView struct {
	Label    string
	Value    string
	Selected bool
}

type rowView struct {
	Index      int
	Path       string
	ID         string
	BlockType  string
	BlockLabel string
	Fields     []fieldView
}

// buildFieldViews turns form state into controls. errs holds the messages to
// show, keyed by path; state validity alone does not surface an error so a
// fresh create form is not painted red.
func buildFieldViews(fields []schema.Field, state formstate.FormState, prefix string, errs map[string]string) []fieldView {
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		if f.Hidden || f.Admin.Hidden {
			continue
		}
		fv := fieldView{
			Label:       fieldLabel(f),
			Type:        string(f.Type),
			Required:    f.Required,
			ReadOnly:    f.Admin.ReadOnly,
			Description: f.Admin.Description,
		}
		switch {
		case f.Type == schema.FieldUI:
			continue
		case f.Type.Presentational():
			fv.Children = buildFieldViews(f.Fields, state, prefix, errs)
			out = append(out, fv)
			continue
		}

		fv.Path = prefix + f.Name
		fv.Error = errs[fv.Path]
		st := state[fv.Path]

		switch f.Type {
		case schema.FieldGroup:
			fv.Children = buildFieldViews(f.Fields, state, fv.Path+".", errs)
		case schema.FieldArray, schema.FieldBlocks:
			fv.Rows = buildRowViews(f, fv.Path, st, state, errs)
			fv.Blocks = f.Blocks
			fv.CanAddRow = !fv.ReadOnly && (f.MaxRows == 0 || len(fv.Rows) < f.MaxRows)
		case schema.FieldCheckbox:
			b, _ := st.Value.(bool)
			fv.Checked = b
		case schema.FieldSelect:
			fv.HasMany = f.HasMany
			fv.Options = selectOptions(f.Options, st.Value)
		case schema.FieldRelationship:
			fv.HasMany = f.HasMany
			fv.Value = relationshipValue(st.Value)
		default:
			fv.Value = inputValue(f.Type, st.Value)
		}
		out = append(out, fv)
	}
	return out
}

func buildRowViews(f schema.Field, base string, st formstate.FieldState, state formstate.FormState, errs map[string]string) []rowView {
	rows := make([]rowView, 0, len(st.Rows))
	for i, row := range st.Rows {
		path := base + "." + strconv.Itoa(i)
		rv := rowView{Index: i, Path: path, ID: row.ID, BlockType: row.BlockType}
		fields := f.Fields
		if f.Type == schema.FieldBlocks {
			block, ok := f.BlockBySlug(row.BlockType)
			if !ok {
				rv.BlockLabel = row.BlockType
				rows = append(rows, rv)
				continue
			}
			rv.BlockLabel = block.Label
			if rv.BlockLabel == "" {
				rv.BlockLabel = block.Slug
			}
			fields = block.Fields
		}
		rv.Fields = buildFieldViews(fields, state, path+".", errs)
		rows = append(rows, rv)
	}
	return rows
}

func fieldLabel(f schema.Field) string {
	if f.Label != "" {
		return f.Label
	}
	if f.Name == "" {
		return ""
	}
	return strings.ToUpper(f.Name[:1]) + f.Name[1:]
}

func selectOptions(opts []schema.Option, value any) []optionView {
	selected := map[string]bool{}
	switch v := value.(type) {
	case string:
		selected[v] = true
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				selected[s] = true
			}
		}
	}
	out := make([]optionView, 0, len(opts))
	for _, o := range opts {
		label := o.Label
		if label == "" {
			label = o.Value
		}
		out = append(out, optionView{Label: label, Value: o.Value, Selected: selected[o.Value]})
	}
	return out
}

// relationshipValue renders related ids comma separated. Populated
// relationships arrive as objects carrying an id.
func relationshipValue(v any) string {
	id := func(item any) string {
		if m, ok := item.(map[string]any); ok {
			item = m["id"]
		}
		if item == nil {
			return ""
		}
		return fmt.Sprint(item)
	}
	if items, ok := v.([]any); ok {
		ids := make([]string, 0, len(items))
		for _, item := range items {
			if s := id(item); s != "" {
				ids = append(ids, s)
			}
		}
		return strings.Join(ids, ", ")
	}
	return id(v)
}

func inputValue(t schema.FieldType, v any) string {
	if v == nil {
		return ""
	}
	switch t {
	case schema.FieldJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	case schema.FieldDate:
		if ts, ok := uiutil.ParseTimestamp(v); ok {
			return ts.UTC().Format(dateInputLayout)
		}
	case schema.FieldNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

const dateInputLayout = "2006-01-02"
