// Package query models document predicates in the
// {and|or: [{field: {operator: value}}]} shape shared by the REST API,
// the auth strategies and the storage layer.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Operator is a field comparison.
type Operator string

const (
	OpEquals           Operator = "equals"
	OpNotEquals        Operator = "not_equals"
	OpIn               Operator = "in"
	OpNotIn            Operator = "not_in"
	OpExists           Operator = "exists"
	OpLike             Operator = "like"
	OpContains         Operator = "contains"
	OpGreaterThan      Operator = "greater_than"
	OpGreaterThanEqual Operator = "greater_than_equal"
	OpLessThan         Operator = "less_than"
	OpLessThanEqual    Operator = "less_than_equal"
)

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpExists, OpLike, OpContains,
		OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual:
		return true
	default:
		return false
	}
}

// ErrInvalidWhere is returned for malformed predicates.
var ErrInvalidWhere = errors.New("invalid where")

// Where is a predicate node. Exactly one of And, Or or Field is set; the zero
// Where matches everything.
type Where struct {
	And   []Where
	Or    []Where
	Field string
	Op    Operator
	Value any
}

// IsZero reports whether the predicate matches everything.
func (w Where) IsZero() bool {
	return len(w.And) == 0 && len(w.Or) == 0 && w.Field == ""
}

// Cond builds a field comparison.
func Cond(field string, op Operator, value any) Where {
	return Where{Field: field, Op: op, Value: value}
}

// Equals is shorthand for Cond(field, OpEquals, value).
func Equals(field string, value any) Where { return Cond(field, OpEquals, value) }

// And combines predicates; zero predicates are dropped.
func And(ws ...Where) Where {
	return Where{And: nonZero(ws)}
}

// Or combines predicates; zero predicates are dropped.
func Or(ws ...Where) Where {
	return Where{Or: nonZero(ws)}
}

func nonZero(ws []Where) []Where {
	out := make([]Where, 0, len(ws))
	for _, w := range ws {
		if !w.IsZero() {
			out = append(out, w)
		}
	}
	return out
}

// MarshalJSON renders the canonical {and|or|field} shape.
func (w Where) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.toMap())
}

func (w Where) toMap() map[string]any {
	switch {
	case len(w.And) > 0:
		return map[string]any{"and": toMaps(w.And)}
	case len(w.Or) > 0:
		return map[string]any{"or": toMaps(w.Or)}
	case w.Field != "":
		return map[string]any{w.Field: map[string]any{string(w.Op): w.Value}}
	default:
		return map[string]any{}
	}
}

func toMaps(ws []Where) []any {
	out := make([]any, len(ws))
	for i, w := range ws {
		out[i] = w.toMap()
	}
	return out
}

// UnmarshalJSON accepts the {and|or|field} shape. Several keys at one level
// are combined with AND.
func (w *Where) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWhere, err)
	}
	parsed, err := FromMap(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// FromMap converts a decoded predicate object into a Where.
func FromMap(raw map[string]any) (Where, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]Where, 0, len(keys))
	for _, k := range keys {
		switch strings.ToLower(k) {
		case "and", "or":
			list, err := fromList(raw[k])
			if err != nil {
				return Where{}, fmt.Errorf("%s: %w", k, err)
			}
			if strings.EqualFold(k, "and") {
				parts = append(parts, And(list...))
			} else {
				parts = append(parts, Or(list...))
			}
		default:
			conds, err := fromField(k, raw[k])
			if err != nil {
				return Where{}, err
			}
			parts = append(parts, conds...)
		}
	}

	parts = nonZero(parts)
	switch len(parts) {
	case 0:
		return Where{}, nil
	case 1:
		return parts[0], nil
	default:
		return Where{And: parts}, nil
	}
}

func fromList(v any) ([]Where, error) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		// Query-string arrays arrive as {"0": ..., "1": ...}.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return indexLess(keys[i], keys[j]) })
		for _, k := range keys {
			items = append(items, t[k])
		}
	default:
		return nil, fmt.Errorf("%w: expected a list", ErrInvalidWhere)
	}

	out := make([]Where, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an object", ErrInvalidWhere)
		}
		w, err := FromMap(m)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func fromField(field string, v any) ([]Where, error) {
	ops, ok := v.(map[string]any)
	if !ok || len(ops) == 0 {
		return nil, fmt.Errorf("%w: field %q needs an operator object", ErrInvalidWhere, field)
	}
	names := make([]string, 0, len(ops))
	for k := range ops {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Where, 0, len(ops))
	for _, name := range names {
		op := Operator(name)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: field %q: unknown operator %q", ErrInvalidWhere, field, name)
		}
		out = append(out, Cond(field, op, ops[name]))
	}
	return out, nil
}

func indexLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Fields returns every field name referenced by the predicate.
func (w Where) Fields() []string {
	seen := map[string]struct{}{}
	var walk func(Where)
	walk = func(n Where) {
		if n.Field != "" {
			seen[n.Field] = struct{}{}
		}
		for _, c := range n.And {
			walk(c)
		}
		for _, c := range n.Or {
			walk(c)
		}
	}
	walk(w)
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
