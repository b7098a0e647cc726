package postgres

import (
	"errors"

	"github.com/aussiebroadwan/custodian/internal/access/store/drivers/postgres/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
)

// ApplyMigrations applies any pending migrations from the embedded
// migrations directory.
func (s *Store) ApplyMigrations() error {
	instance, err := s.migrator()
	if err != nil {
		return err
	}
	defer func() { _, _ = instance.Close() }()

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether the last
// migration left the schema dirty.
func (s *Store) SchemaVersion() (version uint, dirty bool, err error) {
	instance, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = instance.Close() }()

	version, dirty, err = instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// migrator runs over a database/sql handle borrowed from the pool. Closing
// that handle leaves the pool open.
func (s *Store) migrator() (*migrate.Migrate, error) {
	db := stdlib.OpenDBFromPool(s.pool)

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return migrate.NewWithInstance("iofs", source, "pgx5", driver)
}
