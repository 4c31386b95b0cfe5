package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProductSortColumns lists the sortable product fields.
var ProductSortColumns = SortColumns{
	"id":        "p.id",
	"code":      "p.code",
	"name":      "p.name",
	"price":     "p.price",
	"cost":      "p.cost",
	"statusId":  "p.status_id",
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
}

const productColumns = `p.id, p.company_id, p.code, p.product_code, p.supplier_key, p.name, p.slug,
	p.description, p.price, p.cost, p.weight, p.status_id, p.is_rental, p.visible_in_store,
	p.published_to_marketplace, p.created_at, p.updated_at`

// ProductFilter narrows product queries. It is shared by the paginated list
// and the export cursor.
type ProductFilter struct {
	CompanyID *int64
	StatusID  *int32
	Search    string
}

func (f ProductFilter) where() *WhereBuilder {
	return NewWhereBuilder().
		Add("p.company_id", f.CompanyID).
		Add("p.status_id", f.StatusID).
		AddSearch(f.Search, "p.name", "p.code", "p.product_code", "p.supplier_key", "p.description")
}

// ListProducts returns one page of products with their company name.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter, sort Sort, page Page) ([]Product, error) {
	where, args := f.where().Build()
	limit, args := page.clause(len(args)+1, args)

	sql := `SELECT ` + productColumns + `, c.name AS company_name
		FROM products p LEFT JOIN companies c ON c.id = p.company_id` + where + sort.Clause("p.id") + limit

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Product])
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		products[i].Company = attachCompany(products[i].CompanyID, products[i].CompanyName)
	}
	return products, nil
}

// CountProducts counts products matching f.
func (s *Store) CountProducts(ctx context.Context, f ProductFilter) (int64, error) {
	where, args := f.where().Build()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM products p"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// GetProduct loads one product with its company, prices and inventory.
// Returns ErrNotFound when absent.
func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+`, c.name AS company_name
		FROM products p LEFT JOIN companies c ON c.id = p.company_id WHERE p.id = $1`, id)
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Product])
	if err != nil {
		return Product{}, translate(err)
	}
	product.Company = attachCompany(product.CompanyID, product.CompanyName)

	if product.Prices, err = s.productPrices(ctx, id); err != nil {
		return Product{}, err
	}
	if product.Inventory, err = s.productInventory(ctx, id); err != nil {
		return Product{}, err
	}
	return product, nil
}

func (s *Store) productPrices(ctx context.Context, productID int64) ([]Price, error) {
	rows, err := s.db.Query(ctx, `SELECT id, product_id, company_id, name, price, min_quantity, created_at
		FROM product_prices WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("product prices: %w", err)
	}
	prices, err := pgx.CollectRows(rows, pgx.RowToStructByName[Price])
	if err != nil {
		return nil, fmt.Errorf("product prices: %w", err)
	}
	return prices, nil
}

func (s *Store) productInventory(ctx context.Context, productID int64) ([]Inventory, error) {
	rows, err := s.db.Query(ctx, `SELECT id, product_id, warehouse, quantity, min_stock, updated_at
		FROM product_inventory WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("product inventory: %w", err)
	}
	inventory, err := pgx.CollectRows(rows, pgx.RowToStructByName[Inventory])
	if err != nil {
		return nil, fmt.Errorf("product inventory: %w", err)
	}
	return inventory, nil
}

// CompanyProducts returns the first limit products of a company by name.
func (s *Store) CompanyProducts(ctx context.Context, companyID int64, limit int) ([]Product, error) {
	return s.ListProducts(ctx, ProductFilter{CompanyID: &companyID},
		Sort{Column: "p.name"}, Page{Limit: limit})
}

// ProductCodeTaken reports whether another product already uses code or
// productCode. Empty values are not checked.
func (s *Store) ProductCodeTaken(ctx context.Context, code, productCode string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM products
		WHERE id <> $3 AND (($1 <> '' AND code = $1) OR ($2 <> '' AND product_code = $2))
	)`, code, productCode, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("product code check: %w", err)
	}
	return taken, nil
}

// CreateProduct inserts a product. Callers that also insert prices and
// inventory run it inside WithTx.
func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	status := StatusActive
	if in.StatusID != nil {
		status = *in.StatusID
	}

	rows, err := s.db.Query(ctx, `
		INSERT INTO products AS p (company_id, code, product_code, supplier_key, name, slug, description,
			price, cost, weight, status_id, is_rental, visible_in_store, published_to_marketplace)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			coalesce($12, false), coalesce($13, false), coalesce($14, false))
		RETURNING `+productColumns,
		in.CompanyID, in.Code, in.ProductCode, in.SupplierKey, in.Name, in.Slug, in.Description,
		in.Price, in.Cost, in.Weight, status, in.IsRental, in.VisibleInStore, in.PublishedToMarketplace,
	)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Product])
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", translate(err))
	}
	return product, nil
}

// AddPrice inserts one price entry for a product.
func (s *Store) AddPrice(ctx context.Context, productID int64, companyID *int64, in PriceInput) (Price, error) {
	rows, err := s.db.Query(ctx, `
		INSERT INTO product_prices (product_id, company_id, name, price, min_quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, product_id, company_id, name, price, min_quantity, created_at`,
		productID, companyID, in.Name, in.Price, in.MinQuantity,
	)
	if err != nil {
		return Price{}, fmt.Errorf("add price: %w", err)
	}
	price, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Price])
	if err != nil {
		return Price{}, fmt.Errorf("add price: %w", translate(err))
	}
	return price, nil
}

// AddInventory inserts one stock entry for a product.
func (s *Store) AddInventory(ctx context.Context, productID int64, in InventoryInput) (Inventory, error) {
	rows, err := s.db.Query(ctx, `
		INSERT INTO product_inventory (product_id, warehouse, quantity, min_stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, product_id, warehouse, quantity, min_stock, updated_at`,
		productID, in.Warehouse, in.Quantity, in.MinStock,
	)
	if err != nil {
		return Inventory{}, fmt.Errorf("add inventory: %w", err)
	}
	inv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Inventory])
	if err != nil {
		return Inventory{}, fmt.Errorf("add inventory: %w", translate(err))
	}
	return inv, nil
}

// UpdateProduct applies the non-nil fields of in. Company, prices and
// inventory are not changed here. Returns ErrNotFound when absent.
func (s *Store) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	ub := NewUpdateBuilder("products AS p")
	if in.Code != nil {
		ub.Set("code", *in.Code)
	}
	if in.ProductCode != nil {
		ub.Set("product_code", *in.ProductCode)
	}
	if in.SupplierKey != nil {
		ub.Set("supplier_key", *in.SupplierKey)
	}
	if in.Name != nil {
		ub.Set("name", *in.Name)
	}
	if in.Slug != nil {
		ub.Set("slug", *in.Slug)
	}
	if in.Description != nil {
		ub.Set("description", *in.Description)
	}
	if in.Price != nil {
		ub.Set("price", *in.Price)
	}
	if in.Cost != nil {
		ub.Set("cost", *in.Cost)
	}
	if in.Weight != nil {
		ub.Set("weight", *in.Weight)
	}
	if in.StatusID != nil {
		ub.Set("status_id", *in.StatusID)
	}
	if in.IsRental != nil {
		ub.Set("is_rental", *in.IsRental)
	}
	if in.VisibleInStore != nil {
		ub.Set("visible_in_store", *in.VisibleInStore)
	}
	if in.PublishedToMarketplace != nil {
		ub.Set("published_to_marketplace", *in.PublishedToMarketplace)
	}
	if ub.Empty() {
		return s.GetProduct(ctx, id)
	}

	sql, args := ub.Build(id, productColumns)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Product])
	if err != nil {
		return Product{}, translate(err)
	}
	return product, nil
}

// SetProductStatus changes status_id; status 0 is the soft delete.
func (s *Store) SetProductStatus(ctx context.Context, id int64, status int32) (Product, error) {
	return s.UpdateProduct(ctx, id, ProductInput{StatusID: &status})
}

// ProductStats aggregates active products, status buckets and the ten
// companies with the most active products.
func (s *Store) ProductStats(ctx context.Context) (ProductStats, error) {
	var stats ProductStats
	err := s.db.QueryRow(ctx, `SELECT count(*), avg(price)::float8, avg(cost)::float8, sum(price)::float8
		FROM products WHERE status_id <> $1`, StatusInactive,
	).Scan(&stats.Active, &stats.AveragePrice, &stats.AverageCost, &stats.TotalValue)
	if err != nil {
		return stats, fmt.Errorf("product stats: %w", err)
	}

	if stats.ByStatus, err = s.statusCounts(ctx, "products"); err != nil {
		return stats, fmt.Errorf("product stats: %w", err)
	}

	rows, err := s.db.Query(ctx, `SELECT company_id, count(*) AS count FROM products
		WHERE status_id <> $1 GROUP BY company_id ORDER BY count(*) DESC LIMIT 10`, StatusInactive)
	if err != nil {
		return stats, fmt.Errorf("product stats: %w", err)
	}
	if stats.TopCompanies, err = pgx.CollectRows(rows, pgx.RowToStructByName[CompanyProductCount]); err != nil {
		return stats, fmt.Errorf("product stats: %w", err)
	}
	return stats, nil
}

// CreateProductWithDetails inserts a product with its price list and stock
// entries in one transaction. Prices inherit the product's company.
func (s *Store) CreateProductWithDetails(ctx context.Context, in ProductInput) (Product, error) {
	var created Product
	err := s.WithTx(ctx, func(tx *Store) error {
		product, err := tx.CreateProduct(ctx, in)
		if err != nil {
			return err
		}

		for _, p := range in.Prices {
			price, err := tx.AddPrice(ctx, product.ID, product.CompanyID, p)
			if err != nil {
				return err
			}
			product.Prices = append(product.Prices, price)
		}

		for _, item := range in.Inventory {
			inv, err := tx.AddInventory(ctx, product.ID, item)
			if err != nil {
				return err
			}
			product.Inventory = append(product.Inventory, inv)
		}

		created = product
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return created, nil
}
