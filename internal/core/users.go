package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/catalog/internal/database"
)

// ListUsers returns one page of users with their company.
func (s *Service) ListUsers(ctx context.Context, req PageRequest) (List[database.User], error) {
	req, err := req.normalize(DefaultPageSize, MaxPageSize)
	if err != nil {
		return List[database.User]{}, err
	}
	f := database.UserFilter{Search: req.Search}
	sort := req.sort(database.UserSortColumns, "id")

	list, err := fetchPage(ctx, req,
		func(ctx context.Context) (int64, error) { return s.store.CountUsers(ctx, f) },
		func(ctx context.Context) ([]database.User, error) {
			return s.store.ListUsers(ctx, f, sort, req.page())
		},
	)
	if err != nil {
		return list, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (database.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return database.User{}, storeErr(err, "User")
	}
	return user, nil
}

// CreateUser validates in, hashes the password and inserts the user.
// Username and email must be unused.
func (s *Service) CreateUser(ctx context.Context, in database.UserInput) (database.User, error) {
	if err := validateUser(in, true); err != nil {
		return database.User{}, err
	}
	if err := s.checkUserIdentity(ctx, in, 0); err != nil {
		return database.User{}, err
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return database.User{}, err
	}

	hash, err := hashPassword(*in.Password, s.bcryptCost)
	if err != nil {
		return database.User{}, fmt.Errorf("hash password: %w", err)
	}
	in.Password, in.PasswordHash = nil, &hash

	user, err := s.store.CreateUser(ctx, in)
	if err != nil {
		return database.User{}, storeErr(err, "User")
	}
	return user, nil
}

// UpdateUser applies the supplied fields of in to user id. A new password is
// rehashed.
func (s *Service) UpdateUser(ctx context.Context, id int64, in database.UserInput) (database.User, error) {
	if err := validateUser(in, false); err != nil {
		return database.User{}, err
	}
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return database.User{}, storeErr(err, "User")
	}
	if err := s.checkUserIdentity(ctx, in, id); err != nil {
		return database.User{}, err
	}
	if err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return database.User{}, err
	}

	if in.Password != nil {
		hash, err := hashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return database.User{}, fmt.Errorf("hash password: %w", err)
		}
		in.PasswordHash = &hash
	}
	in.Password = nil

	user, err := s.store.UpdateUser(ctx, id, in)
	if err != nil {
		return database.User{}, storeErr(err, "User")
	}
	return user, nil
}

// DeleteUser marks user id inactive and returns it.
func (s *Service) DeleteUser(ctx context.Context, id int64) (database.User, error) {
	user, err := s.store.SetUserStatus(ctx, id, database.StatusInactive)
	if err != nil {
		return database.User{}, storeErr(err, "User")
	}
	return user, nil
}

// UserStats aggregates the users table.
func (s *Service) UserStats(ctx context.Context) (database.UserStats, error) {
	stats, err := s.store.UserStats(ctx)
	if err != nil {
		return stats, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

// Login verifies credentials against active users. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (database.User, error) {
	login := req.identifier()
	if login == "" || req.Password == "" {
		c := newChecker("Login", true)
		if login == "" {
			c.add("username", "username or email is required")
		}
		if req.Password == "" {
			c.add("password", "is required")
		}
		return database.User{}, c.err()
	}

	creds, err := s.store.FindActiveUserByLogin(ctx, login)
	if errors.Is(err, database.ErrNotFound) {
		return database.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return database.User{}, fmt.Errorf("login: %w", err)
	}
	if !checkPassword(creds.PasswordHash, req.Password) {
		return database.User{}, ErrInvalidCredentials
	}
	return creds.User, nil
}

func (s *Service) checkUserIdentity(ctx context.Context, in database.UserInput, excludeID int64) error {
	var username, email string
	if in.Username != nil {
		username = *in.Username
	}
	if in.Email != nil {
		email = *in.Email
	}
	if username == "" && email == "" {
		return nil
	}

	taken, err := s.store.UserIdentityTaken(ctx, username, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return conflict("A user with this username or email already exists")
	}
	return nil
}
