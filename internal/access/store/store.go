package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAmbiguousIdentifier means two stored identifiers normalise to the
	// same key. That breaks the store's uniqueness precondition; it is
	// reported, never resolved by picking one.
	ErrAmbiguousIdentifier = errors.New("store: ambiguous identifier")
)

// Store is the root data access interface. Drivers (file, sqlite) implement
// it and expose the credential store and the audit log as sub-repositories.
type Store interface {
	Users() Users
	AuditEntries() AuditEntries

	// Close releases files, watchers and connections.
	Close() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

// Users is the credential store. Authentication only reads from it; writes
// come from the registration collaborator.
type Users interface {
	// GetUserByIdentifier looks identifier up case-insensitively. The
	// returned record keeps the stored spelling.
	GetUserByIdentifier(ctx context.Context, identifier string) (domain.User, error)

	// CreateUser adds a user. An identifier that collides case-insensitively
	// with an existing one yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns every user ordered by identifier.
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// AuditEntries is the append-only audit log. Nothing here edits or removes
// an entry.
type AuditEntries interface {
	// Append persists exactly one entry or returns an error. A failed
	// append never leaves a partial record that readers would accept.
	Append(ctx context.Context, e domain.AuditEntry) error

	// List returns entries in append order, filtered by f.
	List(ctx context.Context, f AuditFilter) ([]domain.AuditEntry, error)
}

// AuditFilter narrows List. Zero fields match everything.
type AuditFilter struct {
	Actor string // compared case-insensitively
	Event domain.EventKind
	Since time.Time
	Limit int // keep only the most recent Limit entries
}

// Match reports whether e passes the filter, ignoring Limit.
func (f AuditFilter) Match(e domain.AuditEntry) bool {
	if f.Actor != "" && domain.NormalizeIdentifier(e.Actor) != domain.NormalizeIdentifier(f.Actor) {
		return false
	}
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Tail applies Limit to an ordered slice.
func (f AuditFilter) Tail(entries []domain.AuditEntry) []domain.AuditEntry {
	if f.Limit > 0 && len(entries) > f.Limit {
		return entries[len(entries)-f.Limit:]
	}
	return entries
}
