// Package formstate converts a stored document and its field schema into the
// editable state the admin edit view renders.
package formstate

import (
	"fmt"
	"net/mail"
	"strconv"

	"github.com/target/folio/internal/domain/schema"
)

// Operation is the edit mode the state is built for.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Row describes one array or blocks row.
type Row struct {
	ID        string `json:"id"`
	BlockType string `json:"blockType,omitempty"`
}

// FieldState is the editable state of one field path.
type FieldState struct {
	Value        any    `json:"value"`
	InitialValue any    `json:"initialValue"`
	Valid        bool   `json:"valid"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	// Rows is set for array and blocks fields; Value then holds the row count.
	Rows []Row `json:"rows,omitempty"`
}

// FormState maps dotted field paths ("items.0.title") to state.
type FormState map[string]FieldState

// Valid reports whether every field is valid.
func (s FormState) Valid() bool {
	for _, f := range s {
		if !f.Valid {
			return false
		}
	}
	return true
}

// Errors returns path → message for invalid fields.
func (s FormState) Errors() map[string]string {
	out := map[string]string{}
	for path, f := range s {
		if !f.Valid {
			out[path] = f.ErrorMessage
		}
	}
	return out
}

// BuildInput groups inputs for Build.
type BuildInput struct {
	Fields    []schema.Field
	Data      map[string]any
	Operation Operation
	Locale    string
	// ID identifies the document being edited; empty on create.
	ID string
}

// Build produces state for every leaf path reachable from the schema.
// Values come from Data when the key is present, else from the field default.
func Build(in BuildInput) FormState {
	state := FormState{}
	b := builder{state: state, locale: in.Locale, op: in.Operation}
	b.fields(in.Fields, in.Data, "")
	return state
}

type builder struct {
	state  FormState
	locale string
	op     Operation
}

func (b builder) fields(fields []schema.Field, data map[string]any, prefix string) {
	for _, f := range fields {
		switch {
		case f.Type.Presentational():
			b.fields(f.Fields, data, prefix)
			continue
		case !f.Type.HasData():
			continue
		}

		path := prefix + f.Name
		raw, present := data[f.Name]
		value := b.localized(f, raw)
		// On update a stored null stays null; only absent keys take the default.
		if !present || (value == nil && b.op == OperationCreate) {
			value = f.DefaultValue
		}

		switch f.Type {
		case schema.FieldGroup:
			sub, _ := value.(map[string]any)
			b.fields(f.Fields, sub, path+".")
		case schema.FieldArray:
			b.rows(f, value, path, func(i int, row map[string]any) []schema.Field {
				return f.Fields
			})
		case schema.FieldBlocks:
			b.rows(f, value, path, func(i int, row map[string]any) []schema.Field {
				blockType, _ := row["blockType"].(string)
				rowPath := fmt.Sprintf("%s.%d.blockType", path, i)
				block, ok := f.BlockBySlug(blockType)
				st := FieldState{Value: blockType, InitialValue: blockType, Valid: ok}
				if !ok {
					st.ErrorMessage = "Unknown block type."
				}
				b.state[rowPath] = st
				return block.Fields
			})
		default:
			msg := Validate(f, value)
			b.state[path] = FieldState{
				Value:        value,
				InitialValue: value,
				Valid:        msg == "",
				ErrorMessage: msg,
			}
		}
	}
}

func (b builder) rows(f schema.Field, value any, path string, fieldsFor func(int, map[string]any) []schema.Field) {
	items, _ := value.([]any)
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		row, _ := item.(map[string]any)
		id, _ := row["id"].(string)
		blockType, _ := row["blockType"].(string)
		rows = append(rows, Row{ID: id, BlockType: blockType})

		rowPrefix := path + "." + strconv.Itoa(i) + "."
		b.state[rowPrefix+"id"] = FieldState{Value: id, InitialValue: id, Valid: true}
		b.fields(fieldsFor(i, row), row, rowPrefix)
	}

	msg := validateRows(f, len(items))
	b.state[path] = FieldState{
		Value:        len(items),
		InitialValue: len(items),
		Valid:        msg == "",
		ErrorMessage: msg,
		Rows:         rows,
	}
}

// localized picks the value for the builder's locale when a localized field
// arrives as a locale map.
func (b builder) localized(f schema.Field, raw any) any {
	if !f.Localized || b.locale == "" {
		return raw
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if f.Type == schema.FieldGroup || f.Type == schema.FieldJSON {
		if v, has := m[b.locale]; has {
			return v
		}
		return raw
	}
	return m[b.locale]
}

func validateRows(f schema.Field, n int) string {
	switch {
	case f.Required && n == 0:
		return "This field requires at least one row."
	case f.MinRows > 0 && n < f.MinRows:
		return fmt.Sprintf("This field requires at least %d rows.", f.MinRows)
	case f.MaxRows > 0 && n > f.MaxRows:
		return fmt.Sprintf("This field requires no more than %d rows.", f.MaxRows)
	}
	return ""
}

// Validate returns an error message for value, or "" when it is acceptable.
func Validate(f schema.Field, value any) string {
	if isEmpty(value) {
		if f.Required {
			return "This field is required."
		}
		return ""
	}

	switch f.Type {
	case schema.FieldText, schema.FieldTextarea:
		s, ok := value.(string)
		if !ok {
			return "This field must be text."
		}
		n := len([]rune(s))
		if f.MinLength > 0 && n < f.MinLength {
			return fmt.Sprintf("This value must be at least %d characters.", f.MinLength)
		}
		if f.MaxLength > 0 && n > f.MaxLength {
			return fmt.Sprintf("This value must be no more than %d characters.", f.MaxLength)
		}
	case schema.FieldEmail:
		s, ok := value.(string)
		if !ok {
			return "Please enter a valid email address."
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return "Please enter a valid email address."
		}
	case schema.FieldNumber:
		n, ok := toFloat(value)
		if !ok {
			return "Please enter a valid number."
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("%v is less than the min allowed value of %v.", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("%v is greater than the max allowed value of %v.", n, *f.Max)
		}
	case schema.FieldCheckbox:
		if _, ok := value.(bool); !ok {
			return "This field must be true or false."
		}
	case schema.FieldSelect:
		return validateSelect(f, value)
	}
	return ""
}

func validateSelect(f schema.Field, value any) string {
	allowed := make(map[string]struct{}, len(f.Options))
	for _, o := range f.Options {
		allowed[o.Value] = struct{}{}
	}
	check := func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, ok = allowed[s]
		return ok
	}
	if f.HasMany {
		items, ok := value.([]any)
		if !ok {
			return "This field has an invalid selection."
		}
		for _, it := range items {
			if !check(it) {
				return "This field has an invalid selection."
			}
		}
		return ""
	}
	if !check(value) {
		return "This field has an invalid selection."
	}
	return ""
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
