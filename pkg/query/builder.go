package query

import (
	"fmt"
	"reflect"
	"strings"
)

// condition renders a WHERE clause fragment, binding each argument through
// bind to receive its positional placeholder.
type condition func(bind func(arg any) string) string

// SortField is one ORDER BY term. Field is a view or column name resolved
// through the projection.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// Builder assembles SELECT, COUNT and paged queries with numbered placeholders.
type Builder struct {
	projection *ProjectionMap
	conditions []condition
	order      []SortField
	defaults   []SortField
}

// NewBuilder creates a Builder over projection. defaultSort applies when no
// sort is requested; its fields are trusted and may name columns outside the
// projection.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection: projection,
		defaults:   defaultSort,
	}
}

// ParseSortFields parses a comma separated sort expression such as
// "name,-created_at". A leading "-" sorts descending. Returns nil for an
// empty expression.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// OrderByFields sets the requested sort order. Fields the projection does
// not resolve are dropped, so client input never reaches the ORDER BY clause
// verbatim.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = b.order[:0]
	for _, f := range fields {
		if col, ok := b.projection.Lookup(f.Field); ok {
			b.order = append(b.order, SortField{Field: col, Descending: f.Descending})
		}
	}
	return b
}

// WhereEquals adds an equality condition. No-op for nil values, including
// typed nil pointers.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	col := b.projection.Column(field)
	b.conditions = append(b.conditions, func(bind func(any) string) string {
		return col + " = " + bind(value)
	})
	return b
}

// WhereContains adds a case-insensitive substring match. No-op for nil or
// empty values.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	col := b.projection.Column(field)
	pattern := "%" + *value + "%"
	b.conditions = append(b.conditions, func(bind func(any) string) string {
		return col + " ILIKE " + bind(pattern)
	})
	return b
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}
	pattern := "%" + *search + "%"
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}
	b.conditions = append(b.conditions, func(bind func(any) string) string {
		clauses := make([]string, len(cols))
		for i, col := range cols {
			clauses[i] = col + " ILIKE " + bind(pattern)
		}
		return "(" + strings.Join(clauses, " OR ") + ")"
	})
	return b
}

// Build returns the filtered, ordered SELECT.
func (b *Builder) Build() (string, []any) {
	var args []any
	where := b.where(&args)
	return b.selectFrom() + where + b.orderBy(), args
}

// BuildCount returns a COUNT(*) over the filtered rows.
func (b *Builder) BuildCount() (string, []any) {
	var args []any
	where := b.where(&args)
	return "SELECT COUNT(*) FROM " + b.projection.Table() + where, args
}

// BuildPage returns the filtered, ordered SELECT restricted to limit rows
// after offset. Both are bound as parameters.
func (b *Builder) BuildPage(limit, offset int) (string, []any) {
	var args []any
	where := b.where(&args)
	limitArg := bindTo(&args, limit)
	offsetArg := bindTo(&args, offset)
	return b.selectFrom() + where + b.orderBy() + " LIMIT " + limitArg + " OFFSET " + offsetArg, args
}

// BuildSingle returns a SELECT for the row whose idField equals id.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return b.selectFrom() + " WHERE " + b.projection.Column(idField) + " = $1", []any{id}
}

func (b *Builder) selectFrom() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.Table()
}

func (b *Builder) where(args *[]any) string {
	if len(b.conditions) == 0 {
		return ""
	}
	bind := func(arg any) string { return bindTo(args, arg) }
	clauses := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		clauses[i] = c(bind)
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func (b *Builder) orderBy() string {
	fields := b.order
	if len(fields) == 0 {
		fields = make([]SortField, len(b.defaults))
		for i, f := range b.defaults {
			fields[i] = SortField{Field: b.projection.Column(f.Field), Descending: f.Descending}
		}
	}
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		terms[i] = f.Field + " " + dir
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func bindTo(args *[]any, arg any) string {
	*args = append(*args, arg)
	return fmt.Sprintf("$%d", len(*args))
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
