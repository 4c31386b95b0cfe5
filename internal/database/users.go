package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UserSortColumns lists the sortable user fields.
var UserSortColumns = SortColumns{
	"id":        "u.id",
	"username":  "u.username",
	"firstName": "u.first_name",
	"lastName":  "u.last_name",
	"email":     "u.email",
	"statusId":  "u.status_id",
	"createdAt": "u.created_at",
}

const userColumns = `u.id, u.company_id, u.username, u.first_name, u.last_name, u.email,
	u.mobile, u.role_id, u.status_id, u.created_at, u.updated_at`

// UserFilter narrows user queries.
type UserFilter struct {
	CompanyID *int64
	Search    string
}

func (f UserFilter) where() *WhereBuilder {
	return NewWhereBuilder().
		Add("u.company_id", f.CompanyID).
		AddSearch(f.Search, "u.username", "u.first_name", "u.last_name", "u.email")
}

// ListUsers returns one page of users with their company name.
func (s *Store) ListUsers(ctx context.Context, f UserFilter, sort Sort, page Page) ([]User, error) {
	where, args := f.where().Build()
	limit, args := page.clause(len(args)+1, args)

	sql := `SELECT ` + userColumns + `, c.name AS company_name
		FROM users u LEFT JOIN companies c ON c.id = u.company_id` + where + sort.Clause("u.id") + limit

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i].Company = attachCompany(users[i].CompanyID, users[i].CompanyName)
	}
	return users, nil
}

// CountUsers counts users matching f.
func (s *Store) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	where, args := f.where().Build()

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM users u"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// GetUser loads one user with its company name. Returns ErrNotFound when absent.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+`, c.name AS company_name
		FROM users u LEFT JOIN companies c ON c.id = u.company_id WHERE u.id = $1`, id)
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return User{}, translate(err)
	}
	user.Company = attachCompany(user.CompanyID, user.CompanyName)
	return user, nil
}

// UserIdentityTaken reports whether another user already has username or email.
// Empty values are not checked. excludeID skips the user being updated.
func (s *Store) UserIdentityTaken(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM users
		WHERE id <> $3 AND (($1 <> '' AND username = $1) OR ($2 <> '' AND lower(email) = lower($2)))
	)`, username, email, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("user identity check: %w", err)
	}
	return taken, nil
}

// FindActiveUserByLogin looks up an active user by username or email for
// credential verification. Returns ErrNotFound when no active user matches.
func (s *Store) FindActiveUserByLogin(ctx context.Context, login string) (UserCredentials, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+`, u.password_hash, c.name AS company_name
		FROM users u LEFT JOIN companies c ON c.id = u.company_id
		WHERE (u.username = $1 OR lower(u.email) = lower($1)) AND u.status_id = $2
		LIMIT 1`, login, StatusActive)
	if err != nil {
		return UserCredentials{}, fmt.Errorf("find user by login: %w", err)
	}
	creds, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[UserCredentials])
	if err != nil {
		return UserCredentials{}, translate(err)
	}
	creds.Company = attachCompany(creds.CompanyID, creds.CompanyName)
	return creds, nil
}

// CreateUser inserts a user. PasswordHash must already be set.
func (s *Store) CreateUser(ctx context.Context, in UserInput) (User, error) {
	status := StatusActive
	if in.StatusID != nil {
		status = *in.StatusID
	}

	rows, err := s.db.Query(ctx, `
		INSERT INTO users AS u (company_id, username, first_name, last_name, email, mobile, role_id, status_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		in.CompanyID, in.Username, in.FirstName, in.LastName, in.Email, in.Mobile, in.RoleID, status, in.PasswordHash,
	)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", translate(err))
	}
	return user, nil
}

// UpdateUser applies the non-nil fields of in. Returns ErrNotFound when absent.
func (s *Store) UpdateUser(ctx context.Context, id int64, in UserInput) (User, error) {
	ub := NewUpdateBuilder("users AS u")
	if in.CompanyID != nil {
		ub.Set("company_id", *in.CompanyID)
	}
	if in.Username != nil {
		ub.Set("username", *in.Username)
	}
	if in.FirstName != nil {
		ub.Set("first_name", *in.FirstName)
	}
	if in.LastName != nil {
		ub.Set("last_name", *in.LastName)
	}
	if in.Email != nil {
		ub.Set("email", *in.Email)
	}
	if in.Mobile != nil {
		ub.Set("mobile", *in.Mobile)
	}
	if in.RoleID != nil {
		ub.Set("role_id", *in.RoleID)
	}
	if in.StatusID != nil {
		ub.Set("status_id", *in.StatusID)
	}
	if in.PasswordHash != nil {
		ub.Set("password_hash", *in.PasswordHash)
	}
	if ub.Empty() {
		return s.GetUser(ctx, id)
	}

	sql, args := ub.Build(id, userColumns)
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[User])
	if err != nil {
		return User{}, translate(err)
	}
	return user, nil
}

// SetUserStatus changes status_id; status 0 is the soft delete.
func (s *Store) SetUserStatus(ctx context.Context, id int64, status int32) (User, error) {
	return s.UpdateUser(ctx, id, UserInput{StatusID: &status})
}

// UserStats aggregates active users with status and role buckets.
func (s *Store) UserStats(ctx context.Context) (UserStats, error) {
	var stats UserStats
	err := s.db.QueryRow(ctx, "SELECT count(*) FROM users WHERE status_id <> $1", StatusInactive).Scan(&stats.Active)
	if err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}

	if stats.ByStatus, err = s.statusCounts(ctx, "users"); err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}

	rows, err := s.db.Query(ctx, "SELECT role_id, count(*) AS count FROM users GROUP BY role_id ORDER BY role_id")
	if err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}
	if stats.ByRole, err = pgx.CollectRows(rows, pgx.RowToStructByName[RoleCount]); err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}
