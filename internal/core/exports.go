package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/catalog/internal/database"
	"github.com/JonMunkholm/catalog/internal/export"
)

// Export defaults.
const (
	DefaultExportLimit           = 100
	DefaultExportMaxLimit        = 1_000_000
	DefaultCompanyExportPageSize = 1000
)

// CompanyExport is an open per-company export: the company, the pagination
// block of the requested window and the rows of that window.
type CompanyExport struct {
	Company    database.CompanyRef
	Pagination Pagination
	Source     database.RowSource
}

// Envelope frames the rows as
//
//	{"success":true,"company":{...},"data":[...],"pagination":{...},"streamedCount":N}
func (e CompanyExport) Envelope() export.Envelope {
	return export.Envelope{
		Head: []export.Field{{Key: "company", Value: e.Company}},
		Tail: func(rows int64) []export.Field {
			return []export.Field{
				{Key: "pagination", Value: e.Pagination},
				{Key: "streamedCount", Value: rows},
			}
		},
	}
}

// ExportProducts opens a row source over the first limit products by id.
// A zero limit takes the configured default; larger values are capped.
// The caller must Close the source, which also frees the export slot.
func (s *Service) ExportProducts(ctx context.Context, limit int) (database.RowSource, error) {
	switch {
	case limit == 0:
		limit = s.exportDefaultLimit
	case limit < 0:
		return nil, invalid("limit must be a positive integer")
	case limit > s.exportMaxLimit:
		limit = s.exportMaxLimit
	}

	return s.openExport(ctx, database.CursorQuery{
		Sort:       database.Sort{Column: "p.id"},
		Page:       database.Page{Limit: limit},
		Projection: database.BulkExportProjection,
	})
}

// ExportCompanyProducts resolves the company, counts its products and opens
// a row source over the requested page. A missing company returns
// ErrNotFound before any cursor is opened.
func (s *Service) ExportCompanyProducts(ctx context.Context, companyID int64, req PageRequest) (CompanyExport, error) {
	req, err := req.normalize(s.companyPageSize, s.exportMaxLimit)
	if err != nil {
		return CompanyExport{}, err
	}

	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return CompanyExport{}, storeErr(err, "Company")
	}

	f := database.ProductFilter{CompanyID: &companyID}
	total, err := s.store.CountProducts(ctx, f)
	if err != nil {
		return CompanyExport{}, fmt.Errorf("count company products: %w", err)
	}

	src, err := s.openExport(ctx, database.CursorQuery{
		Filter:     f,
		Sort:       req.sort(database.ProductSortColumns, "name"),
		Page:       req.page(),
		Projection: database.CompanyExportProjection,
	})
	if err != nil {
		return CompanyExport{}, err
	}

	return CompanyExport{
		Company:    company.Ref(),
		Pagination: NewPagination(req.Page, req.Limit, total),
		Source:     src,
	}, nil
}

// openExport takes an export slot and opens the cursor. The slot is freed
// when the source is closed or when opening fails.
func (s *Service) openExport(ctx context.Context, q database.CursorQuery) (database.RowSource, error) {
	if err := s.exports.Acquire(ctx); err != nil {
		return nil, err
	}

	src, err := s.store.OpenProductCursor(ctx, q)
	if err != nil {
		s.exports.Release()
		return nil, fmt.Errorf("open export: %w", err)
	}
	return &limitedSource{RowSource: src, release: s.exports.Release}, nil
}

// limitedSource frees its export slot on the first Close.
type limitedSource struct {
	database.RowSource
	release func()
	once    sync.Once
}

func (l *limitedSource) Close() {
	l.RowSource.Close()
	l.once.Do(l.release)
}
