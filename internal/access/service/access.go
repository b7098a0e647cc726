package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/policy"
	"github.com/aussiebroadwan/custodian/internal/access/store"
	"github.com/aussiebroadwan/custodian/pkg/slogx"
)

// AccessService pairs every access decision with one audit entry.
type AccessService struct {
	Store   store.Store
	Decider *policy.Decider
}

// RecordAccess appends the audit entry for a decision that was already made.
// The decision itself is never altered by a failed write. Actions other than
// view and edit are refused with domain.ErrUnknownAction and not recorded.
func (s *AccessService) RecordAccess(ctx context.Context, actor string, resource domain.ResourceID, action domain.Action, d domain.Decision) error {
	if err := checkAction(action); err != nil {
		return err
	}
	return s.record(ctx, s.now(), actor, resource, action, d)
}

// Authorize decides whether user may perform action on resource and records
// the decision. The decision is valid even when the returned error wraps
// ErrAuditWrite. An action other than view or edit is refused with
// domain.ErrUnknownAction before anything is decided or recorded.
func (s *AccessService) Authorize(ctx context.Context, user domain.User, resource domain.ResourceID, action domain.Action) (domain.Decision, error) {
	if err := checkAction(action); err != nil {
		return domain.Decision{}, err
	}

	now := s.now()
	d := s.Decider.DecideAt(now, user.Role, user.Department, resource, action)

	slogx.FromContext(ctx).Debug("access decided",
		slog.String("actor", user.Identifier),
		slog.String("resource", string(resource)),
		slog.String("action", string(action)),
		slog.Bool("granted", d.Granted),
		slog.String("reason", d.Reason),
	)

	return d, s.record(ctx, now, user.Identifier, resource, action, d)
}

func checkAction(action domain.Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w %q", domain.ErrUnknownAction, action)
	}
	return nil
}

func (s *AccessService) record(ctx context.Context, now time.Time, actor string, resource domain.ResourceID, action domain.Action, d domain.Decision) error {
	entry := domain.NewAccessEntry(now, actor, resource, action, d)
	return appendAudit(ctx, s.Store.AuditEntries(), entry)
}

func (s *AccessService) now() time.Time {
	if s.Decider != nil && s.Decider.Now != nil {
		return s.Decider.Now()
	}
	return time.Now()
}
