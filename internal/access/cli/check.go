package cli

import (
	"fmt"

	"github.com/aussiebroadwan/custodian/internal/access/domain"

	"github.com/spf13/cobra"
)

func newCheckCommand(r *runtime) *cobra.Command {
	var role, department, resource, action, actor string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Decide one access request and record it in the audit log",
		Example: `  custodian check --role Cashier --department A --resource customer_A.txt --action view
  custodian check --role "Night Admin" --resource B --action edit --actor nina`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dept, err := domain.ParseDepartment(department)
			if err != nil {
				return err
			}
			act, err := domain.ParseAction(action)
			if err != nil {
				return err
			}

			a, err := r.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			user := domain.User{Identifier: actor, Role: role, Department: dept}
			d, err := a.Access.Authorize(a.Context(cmd.Context()), user, parseResource(resource), act)
			if err != nil {
				warnAudit(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Outcome(), d.Reason)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "role to evaluate (e.g. Manager, Cashier)")
	cmd.Flags().StringVar(&department, "department", "", "department for departmental roles (A or B)")
	cmd.Flags().StringVar(&resource, "resource", "", "customer file, or A / B for short")
	cmd.Flags().StringVar(&action, "action", "", "view or edit")
	cmd.Flags().StringVar(&actor, "actor", "cli", "name recorded in the audit log")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}
