package database

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	Like               ConditionType = "LIKE"
	ILike              ConditionType = "ILIKE"
	Any                ConditionType = "ANY"
	Custom             ConditionType = "CUSTOM"
	AllOf              ConditionType = "AND"
	AnyOf              ConditionType = "OR"
	defaultLimit                     = -1
	defaultOffset                    = -1
)

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

type Condition struct {
	Field    string
	Type     ConditionType
	Value    any
	rawQuery *string
	group    []Condition
}

func WhereCond(field string, condType ConditionType, value any) Condition {
	switch condType {
	case Custom, AllOf, AnyOf:
		//nolint:forbidigo // panic prevents misuse; raw and grouped conditions have their own constructors.
		panic("use WhereRawCond, WhereAll or WhereAny for " + string(condType))
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond adds a raw SQL fragment. Placeholders are numbered from $1 and
// renumbered when the query is assembled.
func WhereRawCond(rawQuery string, params ...any) Condition {
	queryStr := rawQuery
	var value any = params
	switch len(params) {
	case 0:
		value = nil
	case 1:
		value = params[0]
	}
	return Condition{Type: Custom, rawQuery: &queryStr, Value: value}
}

// WhereAll joins conditions with AND inside parentheses.
func WhereAll(conds ...Condition) Condition {
	return Condition{Type: AllOf, group: conds}
}

// WhereAny joins conditions with OR inside parentheses.
func WhereAny(conds ...Condition) Condition {
	return Condition{Type: AnyOf, group: conds}
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int

	orderExpr string
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table:      table,
		Columns:    []string{},
		Conditions: []Condition{},
		Limit:      defaultLimit,
		Offset:     defaultOffset,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithConditions sets the entire list of conditions.
func WithConditions(conds ...Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = conds
	}
}

// WithOrderBy sets the ordering column and direction.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = direction
		o.orderExpr = ""
	}
}

// WithJSONOrderBy orders by the text value at path inside a JSONB column.
func WithJSONOrderBy(column string, path []string, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = ""
		o.OrderDir = direction
		o.orderExpr = JSONTextPath(column, path)
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly sets the query to count only.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) {
		o.CountOnly = true
	}
}

func sanitizeIdentifier(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// sanitizeQualifiedIdentifier quotes each part of "table.column".
func sanitizeQualifiedIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// JSONTextPath renders column#>>'{a,b}' for a nested JSONB text lookup. Path
// segments are reduced to [A-Za-z0-9_-].
func JSONTextPath(column string, path []string) string {
	clean := make([]string, 0, len(path))
	for _, p := range path {
		if s := sanitizeJSONKey(p); s != "" {
			clean = append(clean, s)
		}
	}
	col := sanitizeQualifiedIdentifier(column)
	if len(clean) == 1 {
		return fmt.Sprintf("%s->>'%s'", col, clean[0])
	}
	return fmt.Sprintf("%s#>>'{%s}'", col, strings.Join(clean, ","))
}

// JSONValuePath is JSONTextPath returning jsonb instead of text.
func JSONValuePath(column string, path []string) string {
	clean := make([]string, 0, len(path))
	for _, p := range path {
		if s := sanitizeJSONKey(p); s != "" {
			clean = append(clean, s)
		}
	}
	return fmt.Sprintf("%s#>'{%s}'", sanitizeQualifiedIdentifier(column), strings.Join(clean, ","))
}

func sanitizeJSONKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func buildSelectClause(options *ListQueryOptions) string {
	if options.CountOnly {
		return "SELECT COUNT(*) "
	}
	if len(options.Columns) == 0 {
		return "SELECT * "
	}
	cols := make([]string, len(options.Columns))
	for i, col := range options.Columns {
		cols[i] = sanitizeQualifiedIdentifier(col)
	}
	return fmt.Sprintf("SELECT %s ", strings.Join(cols, ", "))
}

func buildPaginationAndOrderClause(
	options *ListQueryOptions,
	startParamIndex int,
	initialArgs []any,
) (string, []any) {
	var clause strings.Builder
	args := initialArgs
	paramCount := startParamIndex

	orderExpr := options.orderExpr
	if orderExpr == "" && options.OrderBy != "" {
		orderExpr = sanitizeQualifiedIdentifier(options.OrderBy)
	}
	if orderExpr != "" {
		clause.WriteString(" ORDER BY ")
		clause.WriteString(orderExpr)
		upperOrderDir := strings.ToUpper(options.OrderDir)
		if upperOrderDir == "ASC" || upperOrderDir == "DESC" {
			clause.WriteString(" ")
			clause.WriteString(upperOrderDir)
		}
	}

	if options.Limit != defaultLimit {
		clause.WriteString(fmt.Sprintf(" LIMIT $%d", paramCount))
		args = append(args, options.Limit)
		paramCount++
	}
	if options.Offset != defaultOffset {
		clause.WriteString(fmt.Sprintf(" OFFSET $%d", paramCount))
		args = append(args, options.Offset)
	}
	return clause.String(), args
}

// BuildListQuery constructs a SQL query string and arguments from options, sanitizing identifiers.
//
//	options := NewListQueryOptions("documents",
//		WithColumns("id", "data"),
//		WithCondition(WhereCond("collection", Equal, "posts")),
//		WithCondition(WhereAny(
//			WhereRawCond(`"data"->>'status' = $1`, "draft"),
//			WhereRawCond(`"data"->>'status' = $1`, "review"),
//		)),
//		WithJSONOrderBy("data", []string{"title"}, "ASC"),
//		WithLimit(10),
//	)
//	query, args := BuildListQuery(options)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	query.WriteString(buildSelectClause(options))
	query.WriteString("FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, whereArgs, nextParamCount := buildWhereClause(options.Conditions, 1)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}
	if options.CountOnly {
		return query.String(), whereArgs
	}

	tail, finalArgs := buildPaginationAndOrderClause(options, nextParamCount, whereArgs)
	query.WriteString(tail)
	return query.String(), finalArgs
}

func handleStandardCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	return fmt.Sprintf("%s %s $%d", field, cond.Type, paramCount), []any{cond.Value}, paramCount + 1
}

func handleAnyCondition(cond Condition, field string, paramCount int) (string, []any, int) {
	rv := reflect.ValueOf(cond.Value)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return "", nil, paramCount
	}
	placeholders := make([]string, rv.Len())
	args := make([]any, rv.Len())
	current := paramCount
	for i := range rv.Len() {
		placeholders[i] = fmt.Sprintf("$%d", current)
		args[i] = rv.Index(i).Interface()
		current++
	}
	return fmt.Sprintf("%s = ANY (ARRAY[%s])", field, strings.Join(placeholders, ", ")), args, current
}

func handleCustomCondition(cond Condition, paramCount int) (string, []any, int) {
	if cond.rawQuery == nil || *cond.rawQuery == "" {
		return "", nil, paramCount
	}
	conditionStr := *cond.rawQuery
	if cond.Value == nil {
		return conditionStr, nil, paramCount
	}

	// NOTE: the raw fragment itself is not sanitized.
	params, ok := cond.Value.([]any)
	if !ok {
		params = []any{cond.Value}
	}

	var args []any
	current := paramCount
	idxMap := make(map[int]int)
	conditionStr = placeholderRe.ReplaceAllStringFunc(conditionStr, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if _, seen := idxMap[n]; !seen {
			idxMap[n] = current
			args = append(args, params[n-1])
			current++
		}
		return fmt.Sprintf("$%d", idxMap[n])
	})
	return conditionStr, args, current
}

func handleGroupCondition(cond Condition, paramCount int) (string, []any, int) {
	parts, args, next := joinConditions(cond.group, paramCount)
	switch len(parts) {
	case 0:
		return "", nil, paramCount
	case 1:
		return parts[0], args, next
	}
	return "(" + strings.Join(parts, " "+string(cond.Type)+" ") + ")", args, next
}

func processCondition(cond Condition, paramCount int) (string, []any, int) {
	switch cond.Type {
	case Custom:
		return handleCustomCondition(cond, paramCount)
	case AllOf, AnyOf:
		return handleGroupCondition(cond, paramCount)
	}
	if cond.Field == "" {
		return "", nil, paramCount
	}
	field := sanitizeQualifiedIdentifier(cond.Field)
	switch cond.Type {
	case Any:
		return handleAnyCondition(cond, field, paramCount)
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual, Like, ILike:
		return handleStandardCondition(cond, field, paramCount)
	}
	return "", nil, paramCount
}

func joinConditions(conds []Condition, paramCount int) ([]string, []any, int) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, cond := range conds {
		s, newArgs, next := processCondition(cond, paramCount)
		if s == "" {
			continue
		}
		parts = append(parts, s)
		args = append(args, newArgs...)
		paramCount = next
	}
	return parts, args, paramCount
}

func buildWhereClause(conds []Condition, startParamIndex int) (string, []any, int) {
	parts, args, next := joinConditions(conds, startParamIndex)
	if args == nil {
		args = []any{}
	}
	if len(parts) == 0 {
		return "", args, next
	}
	return "WHERE " + strings.Join(parts, " AND "), args, next
}
