package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/custodian/internal/access/app"
	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/policy"
	"github.com/aussiebroadwan/custodian/internal/access/service"
	"github.com/aussiebroadwan/custodian/pkg/slogx"

	"github.com/spf13/cobra"
)

func newLoginCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and work with the customer files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := a.Context(cmd.Context())
			p := newPrompter(cmd)

			fmt.Fprintln(p.out, "=== User Login ===")
			user, err := authenticate(ctx, a, p)
			if user.Identifier == "" {
				return err
			}
			if err != nil {
				warnAudit(cmd, err)
			}

			fmt.Fprintf(p.out, "Login successful! Welcome, %s.\n", user.Identifier)
			s := &session{app: a, user: user, p: p, warn: func(err error) { warnAudit(cmd, err) }}
			return s.run(slogx.WithActor(ctx, user.Identifier))
		},
	}
}

const maxLoginAttempts = 3

// authenticate prompts for credentials until one attempt succeeds, the
// attempts run out or the failure is not a plain credential mismatch. A
// returned user with a non-nil error means the login succeeded but could not
// be audited.
func authenticate(ctx context.Context, a *app.Application, p *prompter) (domain.User, error) {
	var lastErr error
	for range maxLoginAttempts {
		identifier, err := p.Line("Enter user ID: ")
		if err != nil {
			if errors.Is(err, io.EOF) && lastErr != nil {
				return domain.User{}, lastErr
			}
			return domain.User{}, err
		}
		password, err := p.Secret("Enter password: ")
		if err != nil {
			return domain.User{}, err
		}

		user, err := a.Auth.Authenticate(ctx, identifier, password)
		if err == nil || user.Identifier != "" {
			return user, err
		}
		if !errors.Is(err, service.ErrInvalidCredentials) {
			return domain.User{}, err
		}

		fmt.Fprintln(p.out, "Invalid credentials")
		lastErr = err
	}
	return domain.User{}, lastErr
}

// warnAudit reports an audit write failure without aborting the command;
// the decision it belongs to has already been made.
func warnAudit(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
}

type menuItem policy.Permission

func (m menuItem) String() string {
	verb := "View"
	if m.Action == domain.ActionEdit {
		verb = "Edit"
	}
	return verb + " " + string(m.Resource)
}

type session struct {
	app  *app.Application
	user domain.User
	p    *prompter
	warn func(error)
}

// menu lists the actions the user is currently allowed. It only reads the
// permission table; the choice is decided and audited in perform.
func (s *session) menu() []menuItem {
	perms := s.app.Access.Decider.Permitted(s.user.Role, s.user.Department)
	items := make([]menuItem, len(perms))
	for i, p := range perms {
		items[i] = menuItem(p)
	}
	return items
}

func (s *session) run(ctx context.Context) error {
	out := s.p.out
	fmt.Fprintf(out, "\nWelcome %s (%s)!\n", s.user.Identifier, s.app.Table().Resolve(s.user.Role, s.user.Department))

	for {
		items := s.menu()
		logout := len(items) + 1

		fmt.Fprintln(out, "\nChoose an action:")
		for i, it := range items {
			fmt.Fprintf(out, "%d. %s\n", i+1, it)
		}
		fmt.Fprintf(out, "%d. Logout\n", logout)

		choice, err := s.p.Line("Enter choice: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "\nLogging out...")
			return nil
		}
		if err != nil {
			return err
		}

		n, err := strconv.Atoi(strings.TrimSpace(choice))
		switch {
		case err != nil || n < 1 || n > logout:
			fmt.Fprintln(out, "Invalid choice.")
		case n == logout:
			fmt.Fprintln(out, "Logging out...")
			return nil
		default:
			if err := s.perform(ctx, items[n-1]); err != nil {
				return err
			}
		}
	}
}

// perform re-checks the action through the access service: the menu may be
// stale if a time window closed while the user was choosing.
func (s *session) perform(ctx context.Context, it menuItem) error {
	out := s.p.out

	var text string
	if it.Action == domain.ActionEdit {
		var err error
		if text, err = s.p.Line("Enter text: "); err != nil {
			return err
		}
	}

	d, err := s.app.Access.Authorize(ctx, s.user, it.Resource, it.Action)
	if err != nil {
		s.warn(err)
	}
	if !d.Granted {
		fmt.Fprintln(out, d.Reason)
		return nil
	}

	path := s.app.ResourcePath(it.Resource)
	switch it.Action {
	case domain.ActionView:
		return viewResource(out, path, it.Resource)
	case domain.ActionEdit:
		if err := appendResource(path, text); err != nil {
			return fmt.Errorf("update %s: %w", it.Resource, err)
		}
		fmt.Fprintf(out, "%s updated successfully.\n", it.Resource)
	}
	return nil
}
