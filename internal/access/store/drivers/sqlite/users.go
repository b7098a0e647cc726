package sqlite

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `identifier, password_hash, role, department`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
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

// GetUserByIdentifier relies on the UNIQUE identifier_key column, so the
// case-insensitive lookup can never be ambiguous here.
func (r *usersRepo) GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE identifier_key = ?`,
		domain.NormalizeIdentifier(identifier),
	)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (identifier, identifier_key, password_hash, role, department) VALUES (?, ?, ?, ?, ?)`,
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
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY identifier`)
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
