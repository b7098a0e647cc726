// Package cli holds the custodian cobra commands. Commands only call the
// application services; none of them decide or audit on their own.
package cli

import (
	"github.com/aussiebroadwan/custodian/internal/access/app"

	"github.com/spf13/cobra"
)

type runtime struct {
	loadConfig func() app.Config
}

func (r *runtime) open() (*app.Application, error) {
	return app.New(r.loadConfig())
}

// NewRootCommand builds the custodian command tree with configuration read
// from the environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.LoadConfig)
}

func newRootCommand(load func() app.Config) *cobra.Command {
	r := &runtime{loadConfig: load}

	root := &cobra.Command{
		Use:   "custodian",
		Short: "Role-based access control and audit for customer files",
		Long: `custodian authenticates users against a credential store, decides what
they may do with the customer files and records every login attempt and
access decision in an append-only audit log.

Configuration comes from CUSTODIAN_* environment variables.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(r),
		newCheckCommand(r),
		newAuditCommand(r),
		newRegisterCommand(r),
		newRolesCommand(),
		newMigrateCommand(r),
	)
	return root
}
