package data

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/target/folio/internal/data/database"
	"github.com/target/folio/internal/domain/query"
)

const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"

	defaultSort = "-createdAt"
)

var fieldPathRe = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

type columnKind int

const (
	columnText columnKind = iota
	columnTime
	columnJSON
)

// columnRef is the SQL side of a document field: either a real column or a
// path into the data JSONB.
type columnRef struct {
	text  string // text-valued expression
	value string // jsonb-valued expression, JSON fields only
	kind  columnKind
}

func resolveField(field string) (columnRef, error) {
	switch field {
	case "id":
		return columnRef{text: `"id"`, kind: columnText}, nil
	case "createdAt":
		return columnRef{text: `"created_at"`, kind: columnTime}, nil
	case "updatedAt":
		return columnRef{text: `"updated_at"`, kind: columnTime}, nil
	}
	if !fieldPathRe.MatchString(field) {
		return columnRef{}, fmt.Errorf("%w: field %q", ErrInvalidQuery, field)
	}
	path := strings.Split(field, ".")
	return columnRef{
		text:  database.JSONTextPath("data", path),
		value: database.JSONValuePath("data", path),
		kind:  columnJSON,
	}, nil
}

// param renders placeholder n with the cast the column needs.
func (c columnRef) param(n int) string {
	if c.kind == columnTime {
		return fmt.Sprintf("$%d::timestamptz", n)
	}
	return fmt.Sprintf("$%d", n)
}

func (c columnRef) arrayParam(n int) string {
	if c.kind == columnTime {
		return fmt.Sprintf("$%d::timestamptz[]", n)
	}
	return fmt.Sprintf("$%d::text[]", n)
}

// whereCondition translates a predicate tree into a query-builder condition.
func whereCondition(w query.Where) (database.Condition, error) {
	switch {
	case len(w.And) > 0, len(w.Or) > 0:
		children := w.And
		if len(w.Or) > 0 {
			children = w.Or
		}
		conds := make([]database.Condition, 0, len(children))
		for _, child := range children {
			c, err := whereCondition(child)
			if err != nil {
				return database.Condition{}, err
			}
			conds = append(conds, c)
		}
		if len(w.Or) > 0 {
			return database.WhereAny(conds...), nil
		}
		return database.WhereAll(conds...), nil
	case w.Field != "":
		return leafCondition(w)
	default:
		return database.WhereAll(), nil
	}
}

func leafCondition(w query.Where) (database.Condition, error) {
	col, err := resolveField(w.Field)
	if err != nil {
		return database.Condition{}, err
	}

	switch w.Op {
	case query.OpEquals:
		if w.Value == nil {
			return database.WhereRawCond(col.text + " IS NULL"), nil
		}
		return database.WhereRawCond(col.text+" = "+col.param(1), textValue(w.Value)), nil

	case query.OpNotEquals:
		if w.Value == nil {
			return database.WhereRawCond(col.text + " IS NOT NULL"), nil
		}
		return database.WhereRawCond(col.text+" IS DISTINCT FROM "+col.param(1), textValue(w.Value)), nil

	case query.OpIn:
		return database.WhereRawCond(col.text+" = ANY ("+col.arrayParam(1)+")", textList(w.Value)), nil

	case query.OpNotIn:
		return database.WhereRawCond(
			"("+col.text+" IS NULL OR NOT ("+col.text+" = ANY ("+col.arrayParam(1)+")))",
			textList(w.Value),
		), nil

	case query.OpExists:
		if truthy(w.Value) {
			return database.WhereRawCond(col.text + " IS NOT NULL"), nil
		}
		return database.WhereRawCond(col.text + " IS NULL"), nil

	case query.OpLike:
		words := strings.Fields(textValue(w.Value))
		conds := make([]database.Condition, 0, len(words))
		for _, word := range words {
			conds = append(conds, database.WhereRawCond(col.text+" ILIKE $1", "%"+escapeLike(word)+"%"))
		}
		return database.WhereAll(conds...), nil

	case query.OpContains:
		pattern := "%" + escapeLike(textValue(w.Value)) + "%"
		if col.kind != columnJSON {
			return database.WhereRawCond(col.text+" ILIKE $1", pattern), nil
		}
		// hasMany values are JSON arrays; match membership as well as substring.
		return database.WhereRawCond(
			"("+col.text+" ILIKE $1 OR "+col.value+" @> jsonb_build_array($2::text))",
			pattern, textValue(w.Value),
		), nil

	case query.OpGreaterThan, query.OpGreaterThanEqual, query.OpLessThan, query.OpLessThanEqual:
		return comparisonCondition(col, w)
	}
	return database.Condition{}, fmt.Errorf("%w: operator %q", ErrInvalidQuery, w.Op)
}

var comparisonOps = map[query.Operator]string{
	query.OpGreaterThan:      ">",
	query.OpGreaterThanEqual: ">=",
	query.OpLessThan:         "<",
	query.OpLessThanEqual:    "<=",
}

func comparisonCondition(col columnRef, w query.Where) (database.Condition, error) {
	op := comparisonOps[w.Op]
	if col.kind == columnJSON {
		if n, ok := numericValue(w.Value); ok {
			expr := fmt.Sprintf(
				"(CASE WHEN jsonb_typeof(%s) = 'number' THEN (%s)::numeric END) %s $1::numeric",
				col.value, col.text, op,
			)
			return database.WhereRawCond(expr, n), nil
		}
	}
	// Dates are stored as RFC 3339 strings and compare lexically.
	return database.WhereRawCond(col.text+" "+op+" "+col.param(1), textValue(w.Value)), nil
}

// sortOption maps "field" / "-field" to an ORDER BY option.
func sortOption(sort string) (database.ListQueryOption, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		sort = defaultSort
	}
	dir := sortDirAsc
	if strings.HasPrefix(sort, "-") {
		dir = sortDirDesc
		sort = sort[1:]
	}
	switch sort {
	case "id":
		return database.WithOrderBy("id", dir), nil
	case "createdAt":
		return database.WithOrderBy("created_at", dir), nil
	case "updatedAt":
		return database.WithOrderBy("updated_at", dir), nil
	}
	if !fieldPathRe.MatchString(sort) {
		return nil, fmt.Errorf("%w: sort %q", ErrInvalidQuery, sort)
	}
	return database.WithJSONOrderBy("data", strings.Split(sort, "."), dir), nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func textList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = textValue(item)
		}
		return out
	case string:
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case nil:
		return []string{}
	default:
		return []string{textValue(t)}
	}
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	case nil:
		return false
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
