package domain

// RoleName is the fully resolved name a RoleProfile is keyed by, e.g.
// "Manager" or "Cashier A".
type RoleName string

// BaseRole is the role a user registers with, before any department is
// applied.
type BaseRole string

const (
	RoleManager     BaseRole = "Manager"
	RoleDeptManager BaseRole = "Dept Manager"
	RoleCashier     BaseRole = "Cashier"
	RoleDayAdmin    BaseRole = "Day Admin"
	RoleNightAdmin  BaseRole = "Night Admin"
)

// Departmental reports whether b only exists in department-qualified form.
func (b BaseRole) Departmental() bool {
	return b == RoleCashier || b == RoleDeptManager
}

// RoleKey is the two-part key behind a RoleName.
type RoleKey struct {
	Base       BaseRole
	Department Department
}

func (k RoleKey) Name() RoleName {
	if k.Department == DepartmentNone {
		return RoleName(k.Base)
	}
	return RoleName(string(k.Base) + " " + string(k.Department))
}

type Rights struct {
	CanView bool
	CanEdit bool
}

// Allows reports the right for action. Unrecognised actions are never
// allowed.
func (r Rights) Allows(action Action) bool {
	switch action {
	case ActionView:
		return r.CanView
	case ActionEdit:
		return r.CanEdit
	default:
		return false
	}
}

type RoleProfile struct {
	Key            RoleKey
	Rights         map[ResourceID]Rights // unlisted resources have no rights
	TimeRestricted bool
	Window         *Window // set iff TimeRestricted
}

func (p RoleProfile) Name() RoleName { return p.Key.Name() }

// RightsFor returns the rights on resource, defaulting to none.
func (p RoleProfile) RightsFor(resource ResourceID) Rights {
	return p.Rights[resource]
}

// Permits reports whether the role may act at now. Unrestricted roles never
// look at their window.
func (p RoleProfile) Permits(now TimeOfDay) bool {
	if !p.TimeRestricted {
		return true
	}
	return p.Window != nil && p.Window.Contains(now)
}
