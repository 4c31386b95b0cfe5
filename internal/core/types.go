package core

import (
	"context"

	"github.com/JonMunkholm/catalog/internal/database"
)

// Store is the persistence gateway the service depends on.
// Satisfied by *database.Store.
type Store interface {
	Ping(ctx context.Context) error

	ListCompanies(ctx context.Context, f database.CompanyFilter, sort database.Sort, page database.Page) ([]database.Company, error)
	CountCompanies(ctx context.Context, f database.CompanyFilter) (int64, error)
	GetCompany(ctx context.Context, id int64) (database.Company, error)
	CompanyExists(ctx context.Context, id int64) (bool, error)
	CompanyEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	CreateCompany(ctx context.Context, in database.CompanyInput) (database.Company, error)
	UpdateCompany(ctx context.Context, id int64, in database.CompanyInput) (database.Company, error)
	SetCompanyStatus(ctx context.Context, id int64, status int32) (database.Company, error)
	CompanyUsers(ctx context.Context, companyID int64) ([]database.User, error)
	CompanyStats(ctx context.Context) (database.CompanyStats, error)

	ListUsers(ctx context.Context, f database.UserFilter, sort database.Sort, page database.Page) ([]database.User, error)
	CountUsers(ctx context.Context, f database.UserFilter) (int64, error)
	GetUser(ctx context.Context, id int64) (database.User, error)
	UserIdentityTaken(ctx context.Context, username, email string, excludeID int64) (bool, error)
	FindActiveUserByLogin(ctx context.Context, login string) (database.UserCredentials, error)
	CreateUser(ctx context.Context, in database.UserInput) (database.User, error)
	UpdateUser(ctx context.Context, id int64, in database.UserInput) (database.User, error)
	SetUserStatus(ctx context.Context, id int64, status int32) (database.User, error)
	UserStats(ctx context.Context) (database.UserStats, error)

	ListProducts(ctx context.Context, f database.ProductFilter, sort database.Sort, page database.Page) ([]database.Product, error)
	CountProducts(ctx context.Context, f database.ProductFilter) (int64, error)
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	CompanyProducts(ctx context.Context, companyID int64, limit int) ([]database.Product, error)
	ProductCodeTaken(ctx context.Context, code, productCode string, excludeID int64) (bool, error)
	CreateProductWithDetails(ctx context.Context, in database.ProductInput) (database.Product, error)
	UpdateProduct(ctx context.Context, id int64, in database.ProductInput) (database.Product, error)
	SetProductStatus(ctx context.Context, id int64, status int32) (database.Product, error)
	ProductStats(ctx context.Context) (database.ProductStats, error)

	OpenProductCursor(ctx context.Context, q database.CursorQuery) (database.RowSource, error)
}

// Event types broadcast after product writes.
const (
	EventProductCreated = "product_created"
	EventProductUpdated = "product_updated"
)

// Event is a change notification.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher receives change events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// CompanyDetail is a company with its users and first products.
type CompanyDetail struct {
	database.Company
	Users    []database.User    `json:"users"`
	Products []database.Product `json:"products"`
}

// LoginRequest carries credentials for verification.
type LoginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identifier returns the first non-empty of Login, Username and Email.
func (r LoginRequest) identifier() string {
	for _, v := range []string{r.Login, r.Username, r.Email} {
		if v != "" {
			return v
		}
	}
	return ""
}
