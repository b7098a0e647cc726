package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/custodian/internal/access/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending migrations from the embedded
// migrations directory.
func (s *Store) ApplyMigrations() error {
	instance, err := s.migrator()
	if err != nil {
		return err
	}

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

	version, dirty, err = instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}
