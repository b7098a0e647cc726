package cli

import (
	"fmt"

	"github.com/aussiebroadwan/custodian/internal/access/app"

	"github.com/spf13/cobra"
)

func newMigrateCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long: `Apply pending schema migrations. Only meaningful with
CUSTODIAN_STORE_DRIVER=sqlite or postgres; the database is also migrated
whenever one of those drivers is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := r.loadConfig()
			if cfg.StoreDriver != app.DriverSQLite && cfg.StoreDriver != app.DriverPostgres {
				return fmt.Errorf("store driver is %q: %w", cfg.StoreDriver, app.ErrMigrateUnsupported)
			}

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			version, err := a.Migrate()
			if err != nil {
				return fmt.Errorf("migrate up failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}
