package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CompanySortColumns lists the sortable company fields.
var CompanySortColumns = SortColumns{
	"id":          "c.id",
	"name":        "c.name",
	"contactName": "c.contact_name",
	"email":       "c.email",
	"statusId":    "c.status_id",
	"createdAt":   "c.created_at",
	"updatedAt":   "c.updated_at",
}

const companyColumns = `c.id, c.name, c.address, c.contact_name, c.phone, c.email,
	c.status_id, c.hired_at, c.sale_price, c.created_at, c.updated_at`

// CompanyFilter narrows company queries.
type CompanyFilter struct {
	Search string
}

func (f CompanyFilter) where() *WhereBuilder {
	return NewWhereBuilder().AddSearch(f.Search, "c.name", "c.contact_name", "c.email")
}

// ListCompanies returns one page of companies with their user and product counts.
func (s *Store) ListCompanies(ctx context.Context, f CompanyFilter, sort Sort, page Page) ([]Company, error) {
	where, args := f.where().Build()
	limit, args := page.clause(len(args)+1, args)

	sql := `SELECT ` + companyColumns + `,
		(SELECT count(*) FROM users u WHERE u.company_id = c.id) AS user_count,
		(SELECT count(*) FROM products p WHERE p.company_id = c.id) AS product_count
		FROM companies c` + where + sort.Clause("c.id") + limit

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	companies, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Company])
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}

// CountCompanies counts companies matching f.
func (s *Store) CountCompanies(ctx context.Context, f CompanyFilter) (int64, error) {
	where, args := f.where().Build()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM companies c"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return total, nil
}

// GetCompany loads one company. Returns ErrNotFound when absent.
func (s *Store) GetCompany(ctx context.Context, id int64) (Company, error) {
	rows, err := s.db.Query(ctx, `SELECT `+companyColumns+` FROM companies c WHERE c.id = $1`, id)
	if err != nil {
		return Company{}, fmt.Errorf("get company %d: %w", id, err)
	}
	company, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Company])
	if err != nil {
		return Company{}, translate(err)
	}
	return company, nil
}

// CompanyExists reports whether a company with id exists.
func (s *Store) CompanyExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("company exists: %w", err)
	}
	return exists, nil
}

// CompanyEmailTaken reports whether another company already uses email.
// excludeID skips the company being updated; pass 0 on create.
func (s *Store) CompanyEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM companies WHERE lower(email) = lower($1) AND id <> $2)",
		email, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("company email check: %w", err)
	}
	return taken, nil
}

// CreateCompany inserts a company. Name must be set.
func (s *Store) CreateCompany(ctx context.Context, in CompanyInput) (Company, error) {
	status := StatusActive
	if in.StatusID != nil {
		status = *in.StatusID
	}

	rows, err := s.db.Query(ctx, `
		INSERT INTO companies AS c (name, address, contact_name, phone, email, status_id, hired_at, sale_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+companyColumns,
		in.Name, in.Address, in.ContactName, in.Phone, in.Email, status, in.HiredAt, in.SalePrice,
	)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	company, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Company])
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", translate(err))
	}
	return company, nil
}

// UpdateCompany applies the non-nil fields of in. Returns ErrNotFound when absent.
func (s *Store) UpdateCompany(ctx context.Context, id int64, in CompanyInput) (Company, error) {
	ub := NewUpdateBuilder("companies AS c")
	if in.Name != nil {
		ub.Set("name", *in.Name)
	}
	if in.Address != nil {
		ub.Set("address", *in.Address)
	}
	if in.ContactName != nil {
		ub.Set("contact_name", *in.ContactName)
	}
	if in.Phone != nil {
		ub.Set("phone", *in.Phone)
	}
	if in.Email != nil {
		ub.Set("email", *in.Email)
	}
	if in.StatusID != nil {
		ub.Set("status_id", *in.StatusID)
	}
	if in.HiredAt != nil {
		ub.Set("hired_at", *in.HiredAt)
	}
	if in.SalePrice != nil {
		ub.Set("sale_price", *in.SalePrice)
	}
	if ub.Empty() {
		return s.GetCompany(ctx, id)
	}

	sql, args := ub.Build(id, companyColumns)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return Company{}, fmt.Errorf("update company %d: %w", id, err)
	}
	company, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Company])
	if err != nil {
		return Company{}, translate(err)
	}
	return company, nil
}

// SetCompanyStatus changes status_id; status 0 is the soft delete.
func (s *Store) SetCompanyStatus(ctx context.Context, id int64, status int32) (Company, error) {
	return s.UpdateCompany(ctx, id, CompanyInput{StatusID: &status})
}

// CompanyUsers lists the users belonging to a company.
func (s *Store) CompanyUsers(ctx context.Context, companyID int64) ([]User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+`
		FROM users u WHERE u.company_id = $1 ORDER BY u.username`, companyID)
	if err != nil {
		return nil, fmt.Errorf("company users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return nil, fmt.Errorf("company users: %w", err)
	}
	return users, nil
}

// CompanyStats aggregates active companies and status buckets.
func (s *Store) CompanyStats(ctx context.Context) (CompanyStats, error) {
	var stats CompanyStats
	err := s.db.QueryRow(ctx,
		"SELECT count(*), avg(sale_price)::float8 FROM companies WHERE status_id <> $1", StatusInactive,
	).Scan(&stats.Active, &stats.AverageSalePrice)
	if err != nil {
		return stats, fmt.Errorf("company stats: %w", err)
	}

	stats.ByStatus, err = s.statusCounts(ctx, "companies")
	if err != nil {
		return stats, fmt.Errorf("company stats: %w", err)
	}
	return stats, nil
}

// statusCounts groups table rows by status_id. table must be a constant.
func (s *Store) statusCounts(ctx context.Context, table string) ([]StatusCount, error) {
	rows, err := s.db.Query(ctx,
		"SELECT status_id, count(*) AS count FROM "+table+" GROUP BY status_id ORDER BY status_id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[StatusCount])
}
