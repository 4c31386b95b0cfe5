package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/database"
)

// ListCompanies returns one page of companies with user and product counts.
func (s *Service) ListCompanies(ctx context.Context, req PageRequest) (List[database.Company], error) {
	req, err := req.normalize(DefaultPageSize, MaxPageSize)
	if err != nil {
		return List[database.Company]{}, err
	}
	f := database.CompanyFilter{Search: req.Search}
	sort := req.sort(database.CompanySortColumns, "id")

	list, err := fetchPage(ctx, req,
		func(ctx context.Context) (int64, error) { return s.store.CountCompanies(ctx, f) },
		func(ctx context.Context) ([]database.Company, error) {
			return s.store.ListCompanies(ctx, f, sort, req.page())
		},
	)
	if err != nil {
		return list, fmt.Errorf("list companies: %w", err)
	}
	return list, nil
}

// GetCompany returns a company with its users and first products.
func (s *Service) GetCompany(ctx context.Context, id int64) (CompanyDetail, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return CompanyDetail{}, storeErr(err, "Company")
	}

	detail := CompanyDetail{Company: company}
	if detail.Users, err = s.store.CompanyUsers(ctx, id); err != nil {
		return CompanyDetail{}, fmt.Errorf("get company %d: %w", id, err)
	}
	if detail.Products, err = s.store.CompanyProducts(ctx, id, companyDetailProducts); err != nil {
		return CompanyDetail{}, fmt.Errorf("get company %d: %w", id, err)
	}
	if detail.Users == nil {
		detail.Users = []database.User{}
	}
	if detail.Products == nil {
		detail.Products = []database.Product{}
	}
	return detail, nil
}

// CreateCompany validates and inserts a company. The email must be unused.
func (s *Service) CreateCompany(ctx context.Context, in database.CompanyInput) (database.Company, error) {
	if err := validateCompany(in, true); err != nil {
		return database.Company{}, err
	}
	if err := s.checkCompanyEmail(ctx, in.Email, 0); err != nil {
		return database.Company{}, err
	}

	company, err := s.store.CreateCompany(ctx, in)
	if err != nil {
		return database.Company{}, storeErr(err, "Company")
	}
	return company, nil
}

// UpdateCompany applies the supplied fields of in to company id.
func (s *Service) UpdateCompany(ctx context.Context, id int64, in database.CompanyInput) (database.Company, error) {
	if err := validateCompany(in, false); err != nil {
		return database.Company{}, err
	}
	if _, err := s.store.GetCompany(ctx, id); err != nil {
		return database.Company{}, storeErr(err, "Company")
	}
	if err := s.checkCompanyEmail(ctx, in.Email, id); err != nil {
		return database.Company{}, err
	}

	company, err := s.store.UpdateCompany(ctx, id, in)
	if err != nil {
		return database.Company{}, storeErr(err, "Company")
	}
	return company, nil
}

// DeleteCompany marks company id inactive and returns it.
func (s *Service) DeleteCompany(ctx context.Context, id int64) (database.Company, error) {
	company, err := s.store.SetCompanyStatus(ctx, id, database.StatusInactive)
	if err != nil {
		return database.Company{}, storeErr(err, "Company")
	}
	return company, nil
}

// CompanyStats aggregates the companies table.
func (s *Service) CompanyStats(ctx context.Context) (database.CompanyStats, error) {
	stats, err := s.store.CompanyStats(ctx)
	if err != nil {
		return stats, fmt.Errorf("company stats: %w", err)
	}
	return stats, nil
}

func (s *Service) checkCompanyEmail(ctx context.Context, email *string, excludeID int64) error {
	if email == nil || *email == "" {
		return nil
	}
	taken, err := s.store.CompanyEmailTaken(ctx, *email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return conflict("A company with this email already exists")
	}
	return nil
}
