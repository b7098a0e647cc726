package policy

import (
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
)

// Decider answers access requests against a Table. It holds no mutable
// state, so one Decider can serve any number of sessions.
type Decider struct {
	Table *Table
	Now   func() time.Time // defaults to time.Now
}

func NewDecider(table *Table) *Decider {
	return &Decider{Table: table, Now: time.Now}
}

// Decide evaluates the request at the current local time.
func (d *Decider) Decide(role string, department domain.Department, resource domain.ResourceID, action domain.Action) domain.Decision {
	return d.DecideAt(d.now(), role, department, resource, action)
}

// Permitted lists what role may do right now. See Table.PermittedAt.
func (d *Decider) Permitted(role string, department domain.Department) []Permission {
	return d.Table.PermittedAt(d.now(), role, department)
}

func (d *Decider) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DecideAt evaluates the request at now. Checks run in a fixed order and the
// first failure wins, so the reason always names the first blocking rule:
// unknown role, then hours, then resource rights.
func (d *Decider) DecideAt(now time.Time, role string, department domain.Department, resource domain.ResourceID, action domain.Action) domain.Decision {
	name := d.Table.Resolve(role, department)

	profile, ok := d.Table.Lookup(name)
	if !ok {
		return domain.UnknownRole(name)
	}

	if !profile.Permits(domain.TimeOfDayOf(now)) {
		return domain.Deny(domain.ReasonOutsideHours)
	}

	if !profile.RightsFor(resource).Allows(action) {
		return domain.InsufficientPermissions(action)
	}

	return domain.Grant()
}
