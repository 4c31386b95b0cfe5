package core

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/catalog/internal/database"
)

// companyDetailProducts is how many products a company lookup embeds.
const companyDetailProducts = 10

// Options configures a Service. Zero values take the package defaults.
type Options struct {
	Events               Publisher
	BcryptCost           int
	MaxConcurrentExports int
	ExportWait           time.Duration
	ExportDefaultLimit   int
	ExportMaxLimit       int
	CompanyPageSize      int
}

// Service provides the catalog's business operations.
type Service struct {
	store      Store
	events     Publisher
	exports    *ExportLimiter
	bcryptCost int

	exportDefaultLimit int
	exportMaxLimit     int
	companyPageSize    int
}

// NewService wires a Service to its store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:              store,
		events:             opts.Events,
		exports:            NewExportLimiter(opts.MaxConcurrentExports, opts.ExportWait),
		bcryptCost:         opts.BcryptCost,
		exportDefaultLimit: opts.ExportDefaultLimit,
		exportMaxLimit:     opts.ExportMaxLimit,
		companyPageSize:    opts.CompanyPageSize,
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = DefaultBcryptCost
	}
	if s.exportDefaultLimit <= 0 {
		s.exportDefaultLimit = DefaultExportLimit
	}
	if s.exportMaxLimit <= 0 {
		s.exportMaxLimit = DefaultExportMaxLimit
	}
	if s.companyPageSize <= 0 {
		s.companyPageSize = DefaultCompanyExportPageSize
	}
	return s
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Exports returns the export limiter for status reporting and shutdown.
func (s *Service) Exports() *ExportLimiter {
	return s.exports
}

// fetchPage runs the count and the page query concurrently.
func fetchPage[T any](
	ctx context.Context,
	req PageRequest,
	count func(context.Context) (int64, error),
	fetch func(context.Context) ([]T, error),
) (List[T], error) {
	var (
		total int64
		items []T
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := count(gctx)
		total = n
		return err
	})
	g.Go(func() error {
		rows, err := fetch(gctx)
		items = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return List[T]{}, err
	}

	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Pagination: NewPagination(req.Page, req.Limit, total)}, nil
}

// storeErr turns gateway sentinels into domain errors for entity.
func storeErr(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return notFound(entity)
	case errors.Is(err, database.ErrDuplicate):
		return conflict("%s already exists", entity)
	}
	return err
}

// requireCompany fails with ErrInvalidInput when id names no company.
func (s *Service) requireCompany(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.store.CompanyExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("The specified company does not exist")
	}
	return nil
}
