package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/cryptox"
	"github.com/aussiebroadwan/custodian/pkg/slogx"
)

var (
	// ErrInvalidCredentials is the only failure a caller sees for a bad
	// login. Which check failed is recorded in the audit log.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuditWrite marks an operation whose outcome is valid but whose
	// audit entry could not be persisted.
	ErrAuditWrite = errors.New("audit write failed")

	// ErrTooManyAttempts means the identifier is being throttled. Nothing
	// was checked against the credential store.
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

type AuthService struct {
	Store   store.Store
	Limiter *LoginLimiter    // optional
	Now     func() time.Time // defaults to time.Now
}

// Authenticate verifies a password for identifier and records exactly one
// login entry in the audit log, whatever the result.
//
// A failed audit write never changes the authentication result: on success
// the user is returned together with an error matching only ErrAuditWrite.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)
	actor := strings.TrimSpace(identifier)

	if s.Limiter != nil && !s.Limiter.AllowSeededAt(s.now(), identifier, s.failureHistory(ctx)) {
		return domain.User{}, s.fail(ctx, actor, domain.ReasonTooManyAttempts, ErrTooManyAttempts)
	}

	user, err := s.Store.Users().GetUserByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, store.ErrNotFound):
		cryptox.VerifyDummy(password)
		return domain.User{}, s.fail(ctx, actor, domain.ReasonUserNotFound, ErrInvalidCredentials)
	case err != nil:
		l.Error("credential lookup failed", slog.String("actor", actor), slog.Any("error", err))
		return domain.User{}, s.fail(ctx, actor, domain.ReasonStoreUnavailable, fmt.Errorf("credential store: %w", err))
	}

	if err := cryptox.CheckHash(user.PasswordHash); err != nil {
		cryptox.VerifyDummy(password)
		l.Warn("stored password hash unusable", slog.String("actor", user.Identifier), slog.Any("error", err))
		return domain.User{}, s.fail(ctx, user.Identifier, domain.ReasonInvalidStoredHash, ErrInvalidCredentials)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		reason := domain.ReasonIncorrectPassword
		if errors.Is(err, cryptox.ErrHashFormat) {
			reason = domain.ReasonInvalidStoredHash
		}
		return domain.User{}, s.fail(ctx, user.Identifier, reason, ErrInvalidCredentials)
	}

	l.Info("login succeeded", slog.String("actor", user.Identifier))
	entry := domain.NewLoginEntry(s.now(), user.Identifier, true, domain.ReasonLoginSuccess)
	return user, s.audit(ctx, entry)
}

// failureHistory reads failed logins back from the audit log, so attempts
// made by earlier processes count against the same budget. Throttled
// attempts are left out: they never consumed a token.
func (s *AuthService) failureHistory(ctx context.Context) History {
	return func(identifier string, since time.Time) []time.Time {
		entries, err := s.Store.AuditEntries().List(ctx, store.AuditFilter{
			Actor: identifier,
			Event: domain.EventLoginFailed,
			Since: since,
		})
		if err != nil {
			slogx.FromContext(ctx).Warn("login history unavailable", slog.String("actor", identifier), slog.Any("error", err))
			return nil
		}

		var at []time.Time
		for _, e := range entries {
			if e.Reason != domain.ReasonTooManyAttempts {
				at = append(at, e.Timestamp)
			}
		}
		return at
	}
}

func (s *AuthService) fail(ctx context.Context, actor, reason string, err error) error {
	slogx.FromContext(ctx).Info("login failed", slog.String("actor", actor), slog.String("reason", reason))
	entry := domain.NewLoginEntry(s.now(), actor, false, reason)
	if auditErr := s.audit(ctx, entry); auditErr != nil {
		return errors.Join(err, auditErr)
	}
	return err
}

func (s *AuthService) audit(ctx context.Context, e domain.AuditEntry) error {
	return appendAudit(ctx, s.Store.AuditEntries(), e)
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// appendAudit persists e, wrapping any failure in ErrAuditWrite.
func appendAudit(ctx context.Context, audit store.AuditEntries, e domain.AuditEntry) error {
	if err := audit.Append(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("audit append failed",
			slog.String("event", string(e.Event)),
			slog.String("actor", e.Actor),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %w", ErrAuditWrite, err)
	}
	return nil
}
