// Package postgres is the PostgreSQL store driver. It mirrors the sqlite
// driver's schema; the audit table rejects UPDATE, DELETE and TRUNCATE
// through triggers.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/custodian/internal/access/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore connects to dsn (a postgres:// URL or key=value string) and
// verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Users() store.Users               { return &usersRepo{pool: s.pool} }
func (s *Store) AuditEntries() store.AuditEntries { return &auditEntriesRepo{pool: s.pool} }

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
