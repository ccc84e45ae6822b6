package httpx

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/folio/internal/domain/schema"
)

// decodeForm rebuilds document data from an edit form post. Field names are
// dotted paths matching the form state ("items.0.title"). Values that fail to
// parse are reported per path and left out of the data.
func decodeForm(fields []schema.Field, form url.Values) (map[string]any, map[string]string) {
	d := formDecoder{form: form, errs: map[string]string{}}
	data := map[string]any{}
	d.fields(fields, data, "")
	return data, d.errs
}

type formDecoder struct {
	form url.Values
	errs map[string]string
}

func (d formDecoder) fields(fields []schema.Field, out map[string]any, prefix string) {
	for _, f := range fields {
		switch {
		case f.Type.Presentational():
			d.fields(f.Fields, out, prefix)
			continue
		case !f.Type.HasData(), f.Hidden, f.Admin.Hidden, f.Admin.ReadOnly:
			continue
		}

		path := prefix + f.Name
		switch f.Type {
		case schema.FieldGroup:
			sub := map[string]any{}
			d.fields(f.Fields, sub, path+".")
			out[f.Name] = sub
		case schema.FieldArray, schema.FieldBlocks:
			if _, posted := d.form[path]; !posted {
				continue
			}
			out[f.Name] = d.rows(f, path)
		default:
			if _, posted := d.form[path]; !posted {
				continue
			}
			v, err := d.value(f, path)
			if err != "" {
				d.errs[path] = err
				continue
			}
			out[f.Name] = v
		}
	}
}

// rows reads an array or blocks field. The row count is posted under the
// field path; each row posts its id and, for blocks, its block type.
func (d formDecoder) rows(f schema.Field, path string) []any {
	n, _ := strconv.Atoi(d.form.Get(path))
	rows := make([]any, 0, max(n, 0))
	for i := range max(n, 0) {
		rowPath := path + "." + strconv.Itoa(i)
		row := map[string]any{}
		if id := d.form.Get(rowPath + ".id"); id != "" {
			row["id"] = id
		}
		fields := f.Fields
		if f.Type == schema.FieldBlocks {
			blockType := d.form.Get(rowPath + ".blockType")
			row["blockType"] = blockType
			block, ok := f.BlockBySlug(blockType)
			if !ok {
				d.errs[rowPath+".blockType"] = "Unknown block type."
				rows = append(rows, row)
				continue
			}
			fields = block.Fields
		}
		d.fields(fields, row, rowPath+".")
		rows = append(rows, row)
	}
	return rows
}

func (d formDecoder) value(f schema.Field, path string) (any, string) {
	vals := d.form[path]
	last := strings.TrimSpace(vals[len(vals)-1])

	switch f.Type {
	case schema.FieldCheckbox:
		// A hidden "false" precedes the checkbox so unchecked boxes still post.
		return last == "true" || last == "on", ""
	case schema.FieldNumber:
		if last == "" {
			return nil, ""
		}
		n, err := strconv.ParseFloat(last, 64)
		if err != nil {
			return nil, "Please enter a valid number."
		}
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), ""
		}
		return n, ""
	case schema.FieldJSON:
		if last == "" {
			return nil, ""
		}
		var v any
		if err := json.Unmarshal([]byte(last), &v); err != nil {
			return nil, "This field must contain valid JSON."
		}
		return v, ""
	case schema.FieldDate:
		if last == "" {
			return nil, ""
		}
		if t, err := time.Parse(dateInputLayout, last); err == nil {
			return t.UTC().Format(time.RFC3339), ""
		}
		if t, err := time.Parse(time.RFC3339, last); err == nil {
			return t.UTC().Format(time.RFC3339), ""
		}
		return nil, "Please enter a valid date."
	case schema.FieldSelect:
		if f.HasMany {
			return nonEmpty(vals), ""
		}
		if last == "" {
			return nil, ""
		}
		return last, ""
	case schema.FieldRelationship:
		ids := splitIDs(vals)
		if f.HasMany {
			return ids, ""
		}
		if len(ids) == 0 {
			return nil, ""
		}
		return ids[0], ""
	}
	return vals[len(vals)-1], ""
}

func nonEmpty(vals []string) []any {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// splitIDs accepts repeated values as well as one comma separated value.
func splitIDs(vals []string) []any {
	out := []any{}
	for _, v := range vals {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// rowOp is an add or remove row request posted through the _op field.
type rowOp struct {
	Add       bool
	Path      string
	Index     int
	BlockType string
}

// parseRowOp reads "add-row:items[:blockSlug]" and "remove-row:items.2".
func parseRowOp(op string) (rowOp, bool) {
	kind, arg, ok := strings.Cut(op, ":")
	if !ok || arg == "" {
		return rowOp{}, false
	}
	switch kind {
	case formOpAddRow:
		path, block, _ := strings.Cut(arg, ":")
		return rowOp{Add: true, Path: path, BlockType: block}, true
	case formOpRemoveRow:
		i := strings.LastIndex(arg, ".")
		if i <= 0 {
			return rowOp{}, false
		}
		idx, err := strconv.Atoi(arg[i+1:])
		if err != nil || idx < 0 {
			return rowOp{}, false
		}
		return rowOp{Path: arg[:i], Index: idx}, true
	}
	return rowOp{}, false
}

// applyRowOp edits the rows slice at op.Path inside data.
func applyRowOp(fields []schema.Field, data map[string]any, op rowOp) error {
	segs := strings.Split(op.Path, ".")
	f, ok := schema.FieldAtPath(fields, withoutIndexes(segs))
	if !ok || (f.Type != schema.FieldArray && f.Type != schema.FieldBlocks) {
		return fmt.Errorf("no array field at %q", op.Path)
	}

	parent, err := containerAt(data, segs[:len(segs)-1])
	if err != nil {
		return err
	}
	name := segs[len(segs)-1]
	rows, _ := parent[name].([]any)

	if !op.Add {
		if op.Index >= len(rows) {
			return fmt.Errorf("row %d out of range at %q", op.Index, op.Path)
		}
		parent[name] = append(rows[:op.Index:op.Index], rows[op.Index+1:]...)
		return nil
	}

	if f.MaxRows > 0 && len(rows) >= f.MaxRows {
		return fmt.Errorf("%q already has %d rows", op.Path, f.MaxRows)
	}
	row := map[string]any{"id": uuid.NewString()}
	if f.Type == schema.FieldBlocks {
		if _, ok := f.BlockBySlug(op.BlockType); !ok {
			return fmt.Errorf("unknown block type %q", op.BlockType)
		}
		row["blockType"] = op.BlockType
	}
	parent[name] = append(rows, row)
	return nil
}

func withoutIndexes(segs []string) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if _, err := strconv.Atoi(s); err != nil {
			out = append(out, s)
		}
	}
	return out
}

// containerAt walks map keys and row indexes to the map that holds the
// final path segment, creating empty groups along the way.
func containerAt(data map[string]any, segs []string) (map[string]any, error) {
	cur := data
	for i := 0; i < len(segs); i++ {
		key := segs[i]
		if rows, ok := cur[key].([]any); ok {
			if i+1 >= len(segs) {
				return nil, fmt.Errorf("path ends on rows at %q", key)
			}
			idx, err := strconv.Atoi(segs[i+1])
			if err != nil || idx < 0 || idx >= len(rows) {
				return nil, fmt.Errorf("invalid row index %q", segs[i+1])
			}
			i++
			row, ok := rows[idx].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d of %q is not an object", idx, key)
			}
			cur = row
			continue
		}
		m, ok := cur[key].(map[string]any)
		if !ok {
			m = map[string]any{}
			cur[key] = m
		}
		cur = m
	}
	return cur, nil
}
