package database

import "time"

// CompanyRef is the short company projection embedded in users and products.
type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Company is a row of the companies table.
type Company struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Address      *string    `db:"address" json:"address"`
	ContactName  *string    `db:"contact_name" json:"contactName"`
	Phone        *string    `db:"phone" json:"phone"`
	Email        *string    `db:"email" json:"email"`
	StatusID     int32      `db:"status_id" json:"statusId"`
	HiredAt      *time.Time `db:"hired_at" json:"hiredAt"`
	SalePrice    *float64   `db:"sale_price" json:"salePrice"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
	UserCount    *int64     `db:"user_count" json:"userCount,omitempty"`
	ProductCount *int64     `db:"product_count" json:"productCount,omitempty"`
}

// Ref returns the short projection of c.
func (c Company) Ref() CompanyRef {
	return CompanyRef{ID: c.ID, Name: c.Name}
}

// CompanyInput carries create and update fields. Nil pointers are left
// unchanged on update.
type CompanyInput struct {
	Name        *string    `json:"name"`
	Address     *string    `json:"address"`
	ContactName *string    `json:"contactName"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	StatusID    *int32     `json:"statusId"`
	HiredAt     *time.Time `json:"hiredAt"`
	SalePrice   *float64   `json:"salePrice"`
}

// User is a row of the users table without its password hash.
type User struct {
	ID          int64       `db:"id" json:"id"`
	CompanyID   *int64      `db:"company_id" json:"companyId"`
	Username    string      `db:"username" json:"username"`
	FirstName   *string     `db:"first_name" json:"firstName"`
	LastName    *string     `db:"last_name" json:"lastName"`
	Email       string      `db:"email" json:"email"`
	Mobile      *string     `db:"mobile" json:"mobile"`
	RoleID      *int32      `db:"role_id" json:"roleId"`
	StatusID    int32       `db:"status_id" json:"statusId"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
	CompanyName *string     `db:"company_name" json:"-"`
	Company     *CompanyRef `db:"-" json:"company,omitempty"`
}

// UserCredentials is the login projection of a user.
type UserCredentials struct {
	User
	PasswordHash string `db:"password_hash" json:"-"`
}

// UserInput carries create and update fields. Password is plain text on the
// way in; the service hashes it into PasswordHash before it reaches the store.
type UserInput struct {
	CompanyID    *int64  `json:"companyId"`
	Username     *string `json:"username"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	Email        *string `json:"email"`
	Mobile       *string `json:"mobile"`
	RoleID       *int32  `json:"roleId"`
	StatusID     *int32  `json:"statusId"`
	Password     *string `json:"password"`
	PasswordHash *string `json:"-"`
}

// Product is a row of the products table.
type Product struct {
	ID                     int64       `db:"id" json:"id"`
	CompanyID              *int64      `db:"company_id" json:"companyId"`
	Code                   string      `db:"code" json:"code"`
	ProductCode            *string     `db:"product_code" json:"productCode"`
	SupplierKey            *string     `db:"supplier_key" json:"supplierKey"`
	Name                   string      `db:"name" json:"name"`
	Slug                   *string     `db:"slug" json:"slug"`
	Description            *string     `db:"description" json:"description"`
	Price                  *float64    `db:"price" json:"price"`
	Cost                   *float64    `db:"cost" json:"cost"`
	Weight                 *float64    `db:"weight" json:"weight"`
	StatusID               int32       `db:"status_id" json:"statusId"`
	IsRental               bool        `db:"is_rental" json:"isRental"`
	VisibleInStore         bool        `db:"visible_in_store" json:"visibleInStore"`
	PublishedToMarketplace bool        `db:"published_to_marketplace" json:"publishedToMarketplace"`
	CreatedAt              time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updatedAt"`
	CompanyName            *string     `db:"company_name" json:"-"`
	Company                *CompanyRef `db:"-" json:"company,omitempty"`
	Prices                 []Price     `db:"-" json:"prices,omitempty"`
	Inventory              []Inventory `db:"-" json:"inventory,omitempty"`
}

// ProductInput carries create and update fields.
type ProductInput struct {
	CompanyID              *int64           `json:"companyId"`
	Code                   *string          `json:"code"`
	ProductCode            *string          `json:"productCode"`
	SupplierKey            *string          `json:"supplierKey"`
	Name                   *string          `json:"name"`
	Slug                   *string          `json:"slug"`
	Description            *string          `json:"description"`
	Price                  *float64         `json:"price"`
	Cost                   *float64         `json:"cost"`
	Weight                 *float64         `json:"weight"`
	StatusID               *int32           `json:"statusId"`
	IsRental               *bool            `json:"isRental"`
	VisibleInStore         *bool            `json:"visibleInStore"`
	PublishedToMarketplace *bool            `json:"publishedToMarketplace"`
	Prices                 []PriceInput     `json:"prices"`
	Inventory              []InventoryInput `json:"inventory"`
}

// Price is a row of product_prices.
type Price struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"productId"`
	CompanyID   *int64    `db:"company_id" json:"companyId"`
	Name        string    `db:"name" json:"name"`
	Price       float64   `db:"price" json:"price"`
	MinQuantity int32     `db:"min_quantity" json:"minQuantity"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// PriceInput is one price list entry supplied with a new product.
type PriceInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	MinQuantity int32   `json:"minQuantity"`
}

// Inventory is a row of product_inventory.
type Inventory struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"productId"`
	Warehouse string    `db:"warehouse" json:"warehouse"`
	Quantity  int32     `db:"quantity" json:"quantity"`
	MinStock  int32     `db:"min_stock" json:"minStock"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// InventoryInput is one stock entry supplied with a new product.
type InventoryInput struct {
	Warehouse string `json:"warehouse"`
	Quantity  int32  `json:"quantity"`
	MinStock  int32  `json:"minStock"`
}

// StatusCount is one bucket of a GROUP BY status_id.
type StatusCount struct {
	StatusID int32 `db:"status_id" json:"statusId"`
	Count    int64 `db:"count" json:"count"`
}

// RoleCount is one bucket of a GROUP BY role_id.
type RoleCount struct {
	RoleID *int32 `db:"role_id" json:"roleId"`
	Count  int64  `db:"count" json:"count"`
}

// CompanyProductCount is one entry of the top companies by product count.
type CompanyProductCount struct {
	CompanyID *int64 `db:"company_id" json:"companyId"`
	Count     int64  `db:"count" json:"count"`
}

// CompanyStats aggregates the companies table.
type CompanyStats struct {
	Active           int64         `json:"totalActive"`
	AverageSalePrice *float64      `json:"averageSalePrice"`
	ByStatus         []StatusCount `json:"byStatus"`
}

// UserStats aggregates the users table.
type UserStats struct {
	Active   int64         `json:"totalActive"`
	ByStatus []StatusCount `json:"byStatus"`
	ByRole   []RoleCount   `json:"byRole"`
}

// ProductStats aggregates the products table.
type ProductStats struct {
	Active       int64                 `json:"totalActive"`
	AveragePrice *float64              `json:"averagePrice"`
	AverageCost  *float64              `json:"averageCost"`
	TotalValue   *float64              `json:"totalValue"`
	ByStatus     []StatusCount         `json:"byStatus"`
	TopCompanies []CompanyProductCount `json:"topCompanies"`
}

// attachCompany fills the short company projection from joined columns.
func attachCompany(companyID *int64, name *string) *CompanyRef {
	if companyID == nil || name == nil {
		return nil
	}
	return &CompanyRef{ID: *companyID, Name: *name}
}
