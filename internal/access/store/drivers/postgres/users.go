package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `identifier, password_hash, role, department`

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		dept string
	)
	if err := row.Scan(&u.Identifier, &u.PasswordHash, &u.Role, &dept); err != nil {
		return domain.User{}, err
	}
	u.Department = domain.Department(dept)
	return u, nil
}

func (r *usersRepo) GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE identifier_key = $1`,
		domain.NormalizeIdentifier(identifier),
	)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (identifier, identifier_key, password_hash, role, department) VALUES ($1, $2, $3, $4, $5)`,
		u.Identifier,
		domain.NormalizeIdentifier(u.Identifier),
		u.PasswordHash,
		u.Role,
		string(u.Department),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, u.Identifier)
	}
	return err
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY identifier COLLATE "C"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
