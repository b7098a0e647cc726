package domain

import (
	"time"

	"github.com/aussiebroadwan/custodian/pkg/idx"
)

type EventKind string

const (
	EventLoginSuccess EventKind = "login_success"
	EventLoginFailed  EventKind = "login_failed"
	EventView         EventKind = "view"
	EventEdit         EventKind = "edit"
)

// Valid reports whether e is one of the four kinds the audit log holds.
func (e EventKind) Valid() bool {
	switch e {
	case EventLoginSuccess, EventLoginFailed, EventView, EventEdit:
		return true
	}
	return false
}

// IsLogin reports whether e records an authentication attempt.
func (e EventKind) IsLogin() bool {
	return e == EventLoginSuccess || e == EventLoginFailed
}

type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
)

// Login audit reasons. Only the audit log sees these; callers get a generic
// failure.
const (
	ReasonLoginSuccess      = "login successful"
	ReasonUserNotFound      = "user not found"
	ReasonInvalidStoredHash = "invalid stored hash"
	ReasonIncorrectPassword = "incorrect password"
	ReasonStoreUnavailable  = "credential store unavailable"
	ReasonTooManyAttempts   = "too many attempts"
)

// AuditEntry is one immutable record in the append-only audit log.
type AuditEntry struct {
	ID        idx.ID
	Timestamp time.Time // local, truncated to the second
	Actor     string
	Event     EventKind
	Resource  ResourceID // empty for login events
	Outcome   Outcome
	Reason    string
}

// NewLoginEntry stamps a login event at now.
func NewLoginEntry(now time.Time, actor string, success bool, reason string) AuditEntry {
	e := AuditEntry{
		ID:        idx.NewAt(now),
		Timestamp: now.Truncate(time.Second),
		Actor:     actor,
		Event:     EventLoginFailed,
		Outcome:   OutcomeDenied,
		Reason:    reason,
	}
	if success {
		e.Event = EventLoginSuccess
		e.Outcome = OutcomeAllowed
	}
	return e
}

// NewAccessEntry records decision d for actor acting on resource at now.
// action must be valid; it becomes the event kind.
func NewAccessEntry(now time.Time, actor string, resource ResourceID, action Action, d Decision) AuditEntry {
	return AuditEntry{
		ID:        idx.NewAt(now),
		Timestamp: now.Truncate(time.Second),
		Actor:     actor,
		Event:     EventKind(action),
		Resource:  resource,
		Outcome:   d.Outcome(),
		Reason:    d.Reason,
	}
}
