package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/jackc/pgx/v5"
)

// Projection is the ordered column list an export cursor selects. Each entry
// is a SQL expression and the JSON key it is exposed as.
type Projection []ProjectedColumn

// ProjectedColumn maps one SQL expression to an output key.
type ProjectedColumn struct {
	Expr string
	Key  string
}

func (p Projection) sql() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = fmt.Sprintf(`%s AS "%s"`, c.Expr, c.Key)
	}
	return strings.Join(parts, ", ")
}

// BulkExportProjection is the column set of the bulk product export.
var BulkExportProjection = Projection{
	{"p.id", "id"},
	{"p.code", "code"},
	{"p.name", "name"},
	{"p.description", "description"},
	{"p.price", "price"},
	{"p.cost", "cost"},
	{"p.weight", "weight"},
	{"p.status_id", "statusId"},
	{"p.is_rental", "isRental"},
	{"p.visible_in_store", "visibleInStore"},
	{"p.published_to_marketplace", "publishedToMarketplace"},
	{"p.created_at", "createdAt"},
	{"p.company_id", "companyId"},
}

// CompanyExportProjection is the column set of the per-company product export.
var CompanyExportProjection = Projection{
	{"p.id", "id"},
	{"p.code", "code"},
	{"p.name", "name"},
	{"p.description", "description"},
	{"p.price", "price"},
	{"p.cost", "cost"},
	{"p.status_id", "statusId"},
	{"p.visible_in_store", "visibleInStore"},
	{"p.published_to_marketplace", "publishedToMarketplace"},
}

// CursorQuery describes a product export read.
type CursorQuery struct {
	Filter     ProductFilter
	Sort       Sort
	Page       Page
	Projection Projection
}

// Row is one exported record: column key to scalar, in projection order.
type Row = *orderedmap.OrderedMap[string, any]

// RowSource is a lazy, finite, forward-only row sequence. Iterate with Next
// until it returns false, then check Err. Close releases the underlying
// resources and is safe to call more than once.
type RowSource interface {
	Next() bool
	Row() (Row, error)
	Err() error
	Close()
}

// Cursor is the RowSource over an open product query.
// It holds a pooled connection until Close.
type Cursor struct {
	rows pgx.Rows
	keys []string
	row  Row
}

// OpenProductCursor runs q and returns a cursor positioned before the first
// row. A zero Page.Limit reads without a LIMIT clause.
func (s *Store) OpenProductCursor(ctx context.Context, q CursorQuery) (RowSource, error) {
	projection := q.Projection
	if len(projection) == 0 {
		projection = BulkExportProjection
	}

	where, args := q.Filter.where().Build()
	sql := "SELECT " + projection.sql() + " FROM products p" + where
	if q.Sort.Column != "" {
		sql += q.Sort.Clause("p.id")
	}
	if q.Page.Limit > 0 {
		var limit string
		limit, args = q.Page.clause(len(args)+1, args)
		sql += limit
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("open product cursor: %w", err)
	}

	keys := make([]string, len(projection))
	for i, c := range projection {
		keys[i] = c.Key
	}
	return &Cursor{rows: rows, keys: keys}, nil
}

// Next advances to the next row. It returns false on exhaustion or error;
// check Err afterwards.
func (c *Cursor) Next() bool {
	return c.rows.Next()
}

// Row decodes the current row. The returned map is reused by the next call.
func (c *Cursor) Row() (Row, error) {
	values, err := c.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	if len(values) != len(c.keys) {
		return nil, fmt.Errorf("decode row: got %d values for %d columns", len(values), len(c.keys))
	}

	if c.row == nil {
		c.row = orderedmap.NewOrderedMap[string, any]()
	}
	for i, key := range c.keys {
		c.row.Set(key, values[i])
	}
	return c.row, nil
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.rows.Err()
}

// Close releases the underlying connection. Safe to call more than once.
func (c *Cursor) Close() {
	c.rows.Close()
}
