package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/database"
)

// ListProducts returns one page of products with their company.
func (s *Service) ListProducts(ctx context.Context, req PageRequest) (List[database.Product], error) {
	return s.listProducts(ctx, req, database.ProductFilter{}, "id")
}

// ProductsByCompany lists the products of an existing company, by name.
func (s *Service) ProductsByCompany(ctx context.Context, companyID int64, req PageRequest) (List[database.Product], error) {
	if _, err := s.store.GetCompany(ctx, companyID); err != nil {
		return List[database.Product]{}, storeErr(err, "Company")
	}
	return s.listProducts(ctx, req, database.ProductFilter{CompanyID: &companyID}, "name")
}

// ProductsByStatus lists the products with status_id equal to status.
func (s *Service) ProductsByStatus(ctx context.Context, status int32, req PageRequest) (List[database.Product], error) {
	return s.listProducts(ctx, req, database.ProductFilter{StatusID: &status}, "id")
}

func (s *Service) listProducts(ctx context.Context, req PageRequest, f database.ProductFilter, defSort string) (List[database.Product], error) {
	req, err := req.normalize(DefaultPageSize, MaxPageSize)
	if err != nil {
		return List[database.Product]{}, err
	}
	f.Search = req.Search
	sort := req.sort(database.ProductSortColumns, defSort)

	list, err := fetchPage(ctx, req,
		func(ctx context.Context) (int64, error) { return s.store.CountProducts(ctx, f) },
		func(ctx context.Context) ([]database.Product, error) {
			return s.store.ListProducts(ctx, f, sort, req.page())
		},
	)
	if err != nil {
		return list, fmt.Errorf("list products: %w", err)
	}
	return list, nil
}

// GetProduct returns a product with its prices and inventory.
func (s *Service) GetProduct(ctx context.Context, id int64) (database.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return database.Product{}, storeErr(err, "Product")
	}
	return product, nil
}

// CreateProduct validates in and inserts the product with its prices and
// inventory in one transaction. A missing slug is derived from the name.
func (s *Service) CreateProduct(ctx context.Context, in database.ProductInput) (database.Product, error) {
	if err := validateProduct(in, true); err != nil {
		return database.Product{}, err
	}
	if err := s.checkProductCodes(ctx, in, 0); err != nil {
		return database.Product{}, err
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return database.Product{}, err
	}
	if in.Slug == nil || *in.Slug == "" {
		in.Slug = ptr(Slugify(*in.Name))
	}

	product, err := s.store.CreateProductWithDetails(ctx, in)
	if err != nil {
		return database.Product{}, storeErr(err, "Product")
	}
	s.events.Publish(Event{Type: EventProductCreated, Data: product})
	return product, nil
}

// UpdateProduct applies the supplied fields of in to product id.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in database.ProductInput) (database.Product, error) {
	if err := validateProduct(in, false); err != nil {
		return database.Product{}, err
	}
	if _, err := s.store.GetProduct(ctx, id); err != nil {
		return database.Product{}, storeErr(err, "Product")
	}
	if err := s.checkProductCodes(ctx, in, id); err != nil {
		return database.Product{}, err
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return database.Product{}, err
	}

	product, err := s.store.UpdateProduct(ctx, id, in)
	if err != nil {
		return database.Product{}, storeErr(err, "Product")
	}
	s.events.Publish(Event{Type: EventProductUpdated, Data: product})
	return product, nil
}

// DeleteProduct marks product id inactive and returns it.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (database.Product, error) {
	product, err := s.store.SetProductStatus(ctx, id, database.StatusInactive)
	if err != nil {
		return database.Product{}, storeErr(err, "Product")
	}
	return product, nil
}

// ProductStats aggregates the products table.
func (s *Service) ProductStats(ctx context.Context) (database.ProductStats, error) {
	stats, err := s.store.ProductStats(ctx)
	if err != nil {
		return stats, fmt.Errorf("product stats: %w", err)
	}
	return stats, nil
}

func (s *Service) checkProductCodes(ctx context.Context, in database.ProductInput, excludeID int64) error {
	var code, productCode string
	if in.Code != nil {
		code = *in.Code
	}
	if in.ProductCode != nil {
		productCode = *in.ProductCode
	}
	if code == "" && productCode == "" {
		return nil
	}

	taken, err := s.store.ProductCodeTaken(ctx, code, productCode, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return conflict("A product with this code already exists")
	}
	return nil
}
