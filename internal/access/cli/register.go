package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/service"

	"github.com/spf13/cobra"
)

func newRegisterCommand(r *runtime) *cobra.Command {
	var req service.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new user",
		Long: `Register a new user. Values not given as flags are prompted for; the
password is always prompted for and never echoed.

Passwords need at least 8 characters from letters, digits and @$!%*?&, with
at least one upper case letter, lower case letter, digit and special
character.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd)

			if err := promptIfEmpty(p, &req.Identifier, "Enter user ID: "); err != nil {
				return err
			}

			var err error
			if req.Password, err = p.Secret("Enter password: "); err != nil {
				return err
			}
			if req.Confirm, err = p.Secret("Confirm password: "); err != nil {
				return err
			}

			if err := promptIfEmpty(p, &req.Role, "Enter role ("+roleChoices()+"): "); err != nil {
				return err
			}
			if needsDepartment(req.Role) {
				if err := promptIfEmpty(p, &req.Department, "Enter department (A/B): "); err != nil {
					return err
				}
			}

			a, err := r.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			user, err := a.Registration.Register(a.Context(cmd.Context()), req)
			if err != nil {
				if errors.Is(err, service.ErrIdentifierTaken) {
					return fmt.Errorf("user %q already exists", req.Identifier)
				}
				return err
			}

			fmt.Fprintf(p.out, "User %s registered as %s.\n", user.Identifier, a.Table().Resolve(user.Role, user.Department))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Identifier, "identifier", "", "user ID")
	cmd.Flags().StringVar(&req.Role, "role", "", "role name")
	cmd.Flags().StringVar(&req.Department, "department", "", "department for departmental roles (A or B)")

	return cmd
}

func promptIfEmpty(p *prompter, dst *string, prompt string) error {
	if strings.TrimSpace(*dst) != "" {
		return nil
	}
	v, err := p.Line(prompt)
	if err != nil {
		return err
	}
	*dst = strings.TrimSpace(v)
	return nil
}

func roleChoices() string {
	return strings.Join([]string{
		string(domain.RoleManager),
		string(domain.RoleDeptManager),
		string(domain.RoleCashier),
		string(domain.RoleDayAdmin),
		string(domain.RoleNightAdmin),
	}, ", ")
}

func needsDepartment(role string) bool {
	return domain.BaseRole(strings.TrimSpace(role)).Departmental()
}
