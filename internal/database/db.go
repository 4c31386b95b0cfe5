// Package database is the persistence gateway for companies, users and
// products. It owns every SQL statement in the application and exposes
// typed query methods plus a forward-only product cursor for streaming
// exports. List and export paths share the same filter and sort types so
// both read through one row-source abstraction.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Soft-delete and default status values stored in status_id columns.
const (
	StatusInactive int32 = 0
	StatusActive   int32 = 1
)

var (
	// ErrNotFound is returned when a lookup by primary key matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert or update violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Conn is a DBTX that can open transactions. *pgxpool.Pool opens a real
// transaction; pgx.Tx opens a savepoint.
type Conn interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// Store runs queries against a pool or a transaction.
type Store struct {
	db Conn
}

// New returns a Store backed by conn, typically a *pgxpool.Pool.
func New(conn Conn) *Store {
	return &Store{db: conn}
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity with a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
