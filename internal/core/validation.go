package core

// validation.go checks request input before it reaches the store.
//
// Create and update share one rule set per entity. On create, required
// fields must be present; on update, only the supplied fields are checked.
// Every failing field is reported, not just the first.

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/catalog/internal/database"
)

// Field limits.
const (
	maxNameLen     = 255
	maxCodeLen     = 100
	maxTextLen     = 5000
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores bytes past 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

type checker struct {
	*ValidationError
	create bool
}

func newChecker(entity string, create bool) *checker {
	return &checker{ValidationError: &ValidationError{Entity: entity}, create: create}
}

// text checks a string field against length bounds. A missing required
// field fails only on create.
func (c *checker) text(field string, v *string, required bool, minLen, maxLen int) {
	if v == nil {
		if required && c.create {
			c.add(field, "is required")
		}
		return
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		if required {
			c.add(field, "must not be empty")
		}
		return
	}
	n := utf8.RuneCountInString(s)
	if n < minLen {
		c.add(field, "is too short")
	}
	if n > maxLen {
		c.add(field, "is too long")
	}
}

func (c *checker) email(field string, v *string, required bool) {
	if v == nil {
		if required && c.create {
			c.add(field, "is required")
		}
		return
	}
	if *v == "" && !required {
		return
	}
	if !validEmail(*v) {
		c.add(field, "must be a valid email address")
	}
}

func (c *checker) nonNegative(field string, v *float64) {
	if v != nil && *v < 0 {
		c.add(field, "must not be negative")
	}
}

func (c *checker) status(field string, v *int32) {
	if v != nil && *v != database.StatusInactive && *v != database.StatusActive {
		c.add(field, "must be 0 or 1")
	}
}

func (c *checker) positiveID(field string, v *int64) {
	if v != nil && *v <= 0 {
		c.add(field, "must be a positive id")
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, ".")
}

func validateCompany(in database.CompanyInput, create bool) error {
	c := newChecker("Company", create)
	c.text("name", in.Name, true, 1, maxNameLen)
	c.text("address", in.Address, false, 0, maxTextLen)
	c.text("contactName", in.ContactName, false, 0, maxNameLen)
	c.text("phone", in.Phone, false, 0, 50)
	c.email("email", in.Email, false)
	c.status("statusId", in.StatusID)
	c.nonNegative("salePrice", in.SalePrice)
	return c.err()
}

func validateUser(in database.UserInput, create bool) error {
	c := newChecker("User", create)
	c.text("username", in.Username, true, minUsernameLen, maxUsernameLen)
	if in.Username != nil && *in.Username != "" && !usernamePattern.MatchString(*in.Username) {
		c.add("username", "may only contain letters, digits, '.', '_' and '-'")
	}
	c.email("email", in.Email, true)
	c.text("firstName", in.FirstName, false, 0, maxNameLen)
	c.text("lastName", in.LastName, false, 0, maxNameLen)
	c.text("mobile", in.Mobile, false, 0, 50)
	c.positiveID("companyId", in.CompanyID)
	if in.RoleID != nil && *in.RoleID < 0 {
		c.add("roleId", "must not be negative")
	}
	c.status("statusId", in.StatusID)
	switch {
	case in.Password == nil:
		if create {
			c.add("password", "is required")
		}
	case len(*in.Password) < minPasswordLen:
		c.add("password", "must be at least 6 characters")
	case len(*in.Password) > maxPasswordLen:
		c.add("password", "must be at most 72 bytes")
	}
	return c.err()
}

func validateProduct(in database.ProductInput, create bool) error {
	c := newChecker("Product", create)
	c.text("code", in.Code, true, 1, maxCodeLen)
	c.text("productCode", in.ProductCode, false, 0, maxCodeLen)
	c.text("supplierKey", in.SupplierKey, false, 0, maxCodeLen)
	c.text("name", in.Name, true, 1, maxNameLen)
	c.text("slug", in.Slug, false, 0, maxNameLen)
	c.text("description", in.Description, false, 0, maxTextLen)
	c.positiveID("companyId", in.CompanyID)
	c.nonNegative("price", in.Price)
	c.nonNegative("cost", in.Cost)
	c.nonNegative("weight", in.Weight)
	c.status("statusId", in.StatusID)

	for i, p := range in.Prices {
		if strings.TrimSpace(p.Name) == "" {
			c.add(indexed("prices", i, "name"), "is required")
		}
		if p.Price < 0 {
			c.add(indexed("prices", i, "price"), "must not be negative")
		}
		if p.MinQuantity < 0 {
			c.add(indexed("prices", i, "minQuantity"), "must not be negative")
		}
	}
	for i, inv := range in.Inventory {
		if strings.TrimSpace(inv.Warehouse) == "" {
			c.add(indexed("inventory", i, "warehouse"), "is required")
		}
		if inv.Quantity < 0 {
			c.add(indexed("inventory", i, "quantity"), "must not be negative")
		}
		if inv.MinStock < 0 {
			c.add(indexed("inventory", i, "minStock"), "must not be negative")
		}
	}
	return c.err()
}

func indexed(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}
