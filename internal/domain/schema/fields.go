package schema

// DataFields returns the fields that store values at this level, unwrapping
// row and collapsible containers and dropping UI-only fields.
func DataFields(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		switch {
		case f.Type.Presentational():
			out = append(out, DataFields(f.Fields)...)
		case f.Type.HasData():
			out = append(out, f)
		}
	}
	return out
}

// FieldByName finds a data field at this level.
func FieldByName(fields []Field, name string) (Field, bool) {
	for _, f := range DataFields(fields) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldAtPath resolves a dotted path ("meta.title", "items.title") to its field.
// Array and blocks rows are addressed without their index.
func FieldAtPath(fields []Field, path []string) (Field, bool) {
	if len(path) == 0 {
		return Field{}, false
	}
	f, ok := FieldByName(fields, path[0])
	if !ok {
		return Field{}, false
	}
	if len(path) == 1 {
		return f, true
	}
	switch f.Type {
	case FieldGroup, FieldArray:
		return FieldAtPath(f.Fields, path[1:])
	case FieldBlocks:
		for _, b := range f.Blocks {
			if sub, found := FieldAtPath(b.Fields, path[1:]); found {
				return sub, true
			}
		}
	}
	return Field{}, false
}
