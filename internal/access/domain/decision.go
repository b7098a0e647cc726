package domain

import "fmt"

const (
	ReasonGranted      = "Access granted"
	ReasonOutsideHours = "Access denied: outside allowed hours"
)

// Decision is the verdict for one (role, resource, action) request. Reason is
// always set so the audit entry describes itself.
type Decision struct {
	Granted bool
	Reason  string
}

func Grant() Decision { return Decision{Granted: true, Reason: ReasonGranted} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

func UnknownRole(name RoleName) Decision {
	return Deny(fmt.Sprintf("Unknown role: %s", name))
}

func InsufficientPermissions(action Action) Decision {
	return Deny(fmt.Sprintf("Access denied: insufficient permissions for %s", action))
}

func (d Decision) Outcome() Outcome {
	if d.Granted {
		return OutcomeAllowed
	}
	return OutcomeDenied
}
