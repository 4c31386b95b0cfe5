package database

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-joined conditions with positional arguments.
// Column names passed to it must come from code, never from request input.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty WhereBuilder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = $n". Nil values and empty strings are skipped.
func (wb *WhereBuilder) Add(col string, val any) *WhereBuilder {
	return wb.AddOp(col, "=", val)
}

// AddOp appends "col <op> $n". Nil values and empty strings are skipped.
func (wb *WhereBuilder) AddOp(col, op string, val any) *WhereBuilder {
	if isEmpty(val) {
		return wb
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s %s $%d", col, op, wb.argIndex))
	wb.args = append(wb.args, val)
	wb.argIndex++
	return wb
}

// AddSearch appends a case-insensitive substring match across cols,
// OR-joined and sharing one argument.
func (wb *WhereBuilder) AddSearch(query string, cols ...string) *WhereBuilder {
	query = strings.TrimSpace(query)
	if query == "" || len(cols) == 0 {
		return wb
	}

	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
	return wb
}

// NextArgIndex returns the placeholder number the next argument will use.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the WHERE clause (with leading space) and its arguments.
// An empty builder returns "" and nil.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	case *int64:
		return v == nil
	case *int32:
		return v == nil
	}
	return false
}

// escapeLike escapes LIKE wildcards so user search text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateBuilder assembles "UPDATE table SET a = $1, b = $2 ... WHERE id = $n".
type UpdateBuilder struct {
	table string
	sets  []string
	args  []any
}

// NewUpdateBuilder starts an update for table.
func NewUpdateBuilder(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set adds "col = $n".
func (ub *UpdateBuilder) Set(col string, val any) *UpdateBuilder {
	ub.args = append(ub.args, val)
	ub.sets = append(ub.sets, fmt.Sprintf("%s = $%d", col, len(ub.args)))
	return ub
}

// Empty reports whether no columns were set.
func (ub *UpdateBuilder) Empty() bool {
	return len(ub.sets) == 0
}

// Build returns the statement keyed on id, touching updated_at and
// returning the listed columns.
func (ub *UpdateBuilder) Build(id int64, returning string) (string, []any) {
	args := append(ub.args, id)
	sql := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $%d RETURNING %s",
		ub.table, strings.Join(ub.sets, ", "), len(args), returning)
	return sql, args
}

// Sort is a resolved ORDER BY column and direction.
type Sort struct {
	Column string
	Desc   bool
}

// Clause renders " ORDER BY col ASC|DESC" with id as a stable tiebreaker.
func (s Sort) Clause(idColumn string) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Column == idColumn {
		return fmt.Sprintf(" ORDER BY %s %s", s.Column, dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s ASC", s.Column, dir, idColumn)
}

// SortColumns maps API field names to SQL columns for one entity.
type SortColumns map[string]string

// Resolve picks the column for sortBy, falling back to def when sortBy is
// empty or unknown. sortOrder "desc" (any case) sorts descending.
func (sc SortColumns) Resolve(sortBy, sortOrder, def string) Sort {
	col, ok := sc[sortBy]
	if !ok {
		col = sc[def]
	}
	return Sort{Column: col, Desc: strings.EqualFold(sortOrder, "desc")}
}

// Has reports whether sortBy names a sortable field.
func (sc SortColumns) Has(sortBy string) bool {
	_, ok := sc[sortBy]
	return ok
}

// Page is a LIMIT/OFFSET window.
type Page struct {
	Limit  int
	Offset int
}

// clause renders " LIMIT $n OFFSET $n+1" and appends the values to args.
func (p Page) clause(next int, args []any) (string, []any) {
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1), append(args, p.Limit, p.Offset)
}
