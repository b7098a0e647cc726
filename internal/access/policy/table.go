// Package policy holds the compiled-in permission table and the decision
// function built on it.
package policy

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
)

var ErrInvalidTable = errors.New("policy: invalid permission table")

// Table maps resolved role names to their profiles. It is immutable once
// built and safe for concurrent readers.
type Table struct {
	profiles map[domain.RoleName]domain.RoleProfile
}

// NewTable validates profiles and freezes them into a Table. Every problem
// is reported, joined, rather than just the first.
func NewTable(profiles ...domain.RoleProfile) (*Table, error) {
	t := &Table{profiles: make(map[domain.RoleName]domain.RoleProfile, len(profiles))}

	var errs []error
	for _, p := range profiles {
		if err := validateProfile(p); err != nil {
			errs = append(errs, err)
			continue
		}
		name := p.Name()
		if _, dup := t.profiles[name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate role %q", ErrInvalidTable, name))
			continue
		}
		t.profiles[name] = freeze(p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// MustNewTable panics on invalid data. Only for compiled-in tables.
func MustNewTable(profiles ...domain.RoleProfile) *Table {
	t, err := NewTable(profiles...)
	if err != nil {
		panic(err)
	}
	return t
}

func validateProfile(p domain.RoleProfile) error {
	name := p.Name()
	switch {
	case p.Key.Base == "":
		return fmt.Errorf("%w: profile with empty base role", ErrInvalidTable)
	case !p.Key.Department.Valid():
		return fmt.Errorf("%w: role %q: invalid department %q", ErrInvalidTable, name, p.Key.Department)
	case p.Key.Base.Departmental() && p.Key.Department == domain.DepartmentNone:
		return fmt.Errorf("%w: role %q requires a department", ErrInvalidTable, name)
	case !p.Key.Base.Departmental() && p.Key.Department != domain.DepartmentNone:
		return fmt.Errorf("%w: role %q does not take a department", ErrInvalidTable, name)
	case p.TimeRestricted && p.Window == nil:
		return fmt.Errorf("%w: role %q is time restricted without a window", ErrInvalidTable, name)
	case !p.TimeRestricted && p.Window != nil:
		return fmt.Errorf("%w: role %q has a window but is not time restricted", ErrInvalidTable, name)
	case p.Window != nil && (!p.Window.Start.Valid() || !p.Window.End.Valid()):
		return fmt.Errorf("%w: role %q window %s out of range", ErrInvalidTable, name, p.Window)
	}
	return nil
}

// freeze copies the mutable parts of p so callers cannot edit the table
// through the slices and maps they passed in.
func freeze(p domain.RoleProfile) domain.RoleProfile {
	p.Rights = maps.Clone(p.Rights)
	if p.Window != nil {
		w := *p.Window
		p.Window = &w
	}
	return p
}

// Resolve turns a user's base role and department into the name a profile is
// stored under. Departmental base roles take the department when one is
// given; everything else is used as-is.
func (t *Table) Resolve(role string, department domain.Department) domain.RoleName {
	base := domain.BaseRole(role)
	if base.Departmental() && department != domain.DepartmentNone {
		return domain.RoleKey{Base: base, Department: department}.Name()
	}
	return domain.RoleName(role)
}

// Lookup returns the profile for name.
func (t *Table) Lookup(name domain.RoleName) (domain.RoleProfile, bool) {
	p, ok := t.profiles[name]
	if !ok {
		return domain.RoleProfile{}, false
	}
	return freeze(p), true
}

// Permission is one resource and action pair.
type Permission struct {
	Resource domain.ResourceID
	Action   domain.Action
}

// PermittedAt lists what role may do at now, resources and actions in menu
// order. It reads the table without making an access decision, so callers
// use it for display only and still authorize each request.
func (t *Table) PermittedAt(now time.Time, role string, department domain.Department) []Permission {
	profile, ok := t.Lookup(t.Resolve(role, department))
	if !ok || !profile.Permits(domain.TimeOfDayOf(now)) {
		return nil
	}

	var out []Permission
	for _, res := range domain.Resources {
		rights := profile.RightsFor(res)
		for _, act := range domain.Actions {
			if rights.Allows(act) {
				out = append(out, Permission{Resource: res, Action: act})
			}
		}
	}
	return out
}

// Names returns every role name, sorted.
func (t *Table) Names() []domain.RoleName {
	return slices.Sorted(maps.Keys(t.profiles))
}

func window(start, end string) *domain.Window {
	return &domain.Window{
		Start: domain.MustParseTimeOfDay(start),
		End:   domain.MustParseTimeOfDay(end),
	}
}

func rights(a, b domain.Rights) map[domain.ResourceID]domain.Rights {
	return map[domain.ResourceID]domain.Rights{
		domain.CustomerA: a,
		domain.CustomerB: b,
	}
}

var (
	none     = domain.Rights{}
	viewOnly = domain.Rights{CanView: true}
	full     = domain.Rights{CanView: true, CanEdit: true}
)

// DefaultTable is the store's role set. Day and Night Admin windows abut at
// 01:00:00 and 13:00:00 so every second of the day belongs to exactly one.
func DefaultTable() *Table {
	return MustNewTable(
		domain.RoleProfile{
			Key:    domain.RoleKey{Base: domain.RoleManager},
			Rights: rights(full, full),
		},
		domain.RoleProfile{
			Key:    domain.RoleKey{Base: domain.RoleDeptManager, Department: domain.DepartmentA},
			Rights: rights(full, none),
		},
		domain.RoleProfile{
			Key:    domain.RoleKey{Base: domain.RoleDeptManager, Department: domain.DepartmentB},
			Rights: rights(none, full),
		},
		domain.RoleProfile{
			Key:    domain.RoleKey{Base: domain.RoleCashier, Department: domain.DepartmentA},
			Rights: rights(viewOnly, none),
		},
		domain.RoleProfile{
			Key:    domain.RoleKey{Base: domain.RoleCashier, Department: domain.DepartmentB},
			Rights: rights(none, viewOnly),
		},
		domain.RoleProfile{
			Key:            domain.RoleKey{Base: domain.RoleDayAdmin},
			Rights:         rights(full, full),
			TimeRestricted: true,
			Window:         window("01:00:00", "12:59:59"),
		},
		domain.RoleProfile{
			Key:            domain.RoleKey{Base: domain.RoleNightAdmin},
			Rights:         rights(full, full),
			TimeRestricted: true,
			Window:         window("13:00:00", "00:59:59"),
		},
	)
}
