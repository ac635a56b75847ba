// Package query builds parameterized SELECT statements over a projection of
// view names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view names to qualified column references for a single
// table. Lookups are case-insensitive and also accept the raw column name, so
// "CreatedAt", "createdat" and "created_at" resolve to the same column.
type ProjectionMap struct {
	table   string
	alias   string
	names   map[string]string
	exprs   map[string]string
	selects []string
}

// NewProjectionMap creates a ProjectionMap over schema.table with the given alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table: fmt.Sprintf("%s.%s %s", schema, table, alias),
		alias: alias,
		names: make(map[string]string),
		exprs: make(map[string]string),
	}
}

// Project selects column and exposes it under viewName.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.names[strings.ToLower(viewName)] = qualified
	p.names[strings.ToLower(column)] = qualified
	p.selects = append(p.selects, qualified)
	return p
}

// ProjectExpr selects a computed expression aliased to viewName. Expressions
// can be filtered on through Column but are never sortable.
func (p *ProjectionMap) ProjectExpr(expr, viewName string) *ProjectionMap {
	p.exprs[strings.ToLower(viewName)] = expr
	p.selects = append(p.selects, fmt.Sprintf("%s AS %s", expr, viewName))
	return p
}

// Table returns the aliased table reference (schema.table alias).
func (p *ProjectionMap) Table() string {
	return p.table
}

// Lookup resolves a projected column by view or column name. Computed
// expressions do not resolve.
func (p *ProjectionMap) Lookup(name string) (string, bool) {
	col, ok := p.names[strings.ToLower(name)]
	return col, ok
}

// Column returns the column or expression for name, or name itself when it
// is not projected.
func (p *ProjectionMap) Column(name string) string {
	if col, ok := p.Lookup(name); ok {
		return col
	}
	if expr, ok := p.exprs[strings.ToLower(name)]; ok {
		return expr
	}
	return name
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.selects, ", ")
}
