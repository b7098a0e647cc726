package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/policy"
	"github.com/aussiebroadwan/custodian/internal/access/service"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/internal/access/store/drivers/file"
	"github.com/aussiebroadwan/custodian/internal/access/store/drivers/postgres"
	"github.com/aussiebroadwan/custodian/internal/access/store/drivers/sqlite"
	"github.com/aussiebroadwan/custodian/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

var ErrMigrateUnsupported = errors.New("migrations only apply to the sqlite and postgres drivers")

// migrator is implemented by the database-backed drivers.
type migrator interface {
	ApplyMigrations() error
	SchemaVersion() (version uint, dirty bool, err error)
}

// Application holds the configured store, permission table and services.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	table *policy.Table

	Auth         *service.AuthService
	Access       *service.AccessService
	Registration *service.RegistrationService
}

// New opens the configured store and wires the services.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "custodian",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		table: policy.DefaultTable(),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	app.initServices()

	return app, nil
}

func (app *Application) initStore() error {
	switch app.cfg.StoreDriver {
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
	case DriverPostgres:
		db, err := postgres.NewStore(context.Background(), app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
	default:
		db, err := file.NewStore(file.Config{
			UsersFile: app.cfg.UsersFile,
			AuditFile: app.cfg.AuditFile,
			Watch:     app.cfg.WatchUsers,
			Logger:    app.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to open file store: %w", err)
		}
		app.db = db
	}

	app.logger.Debug("store opened", slog.String("driver", app.cfg.StoreDriver))
	return nil
}

func (app *Application) initServices() {
	app.Auth = &service.AuthService{Store: app.db}
	if app.cfg.LoginAttempts > 0 {
		app.Auth.Limiter = service.NewLoginLimiter(service.LoginLimit{
			Attempts: app.cfg.LoginAttempts,
			Window:   app.cfg.LoginWindow,
		})
	}
	app.Access = &service.AccessService{
		Store:   app.db,
		Decider: policy.NewDecider(app.table),
	}
	app.Registration = service.NewRegistrationService(app.db, app.table)
}

// Context returns ctx carrying the application logger.
func (app *Application) Context(ctx context.Context) context.Context {
	return slogx.WithContext(ctx, app.logger)
}

func (app *Application) Config() Config       { return app.cfg }
func (app *Application) Logger() *slog.Logger { return app.logger }
func (app *Application) Store() store.Store   { return app.db }
func (app *Application) Table() *policy.Table { return app.table }

// ResourcePath is where the customer file for id lives on disk.
func (app *Application) ResourcePath(id domain.ResourceID) string {
	return filepath.Join(app.cfg.ResourceDir, string(id))
}

// Migrate applies pending migrations and reports the schema version.
func (app *Application) Migrate() (uint, error) {
	db, ok := app.db.(migrator)
	if !ok {
		return 0, ErrMigrateUnsupported
	}
	if err := db.ApplyMigrations(); err != nil {
		return 0, err
	}
	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

// Close releases the store.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", slog.Any("error", err))
		return err
	}
	return nil
}
