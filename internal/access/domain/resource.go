package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction means an action other than view or edit was requested.
var ErrUnknownAction = errors.New("unknown action")

// ResourceID names a protected customer file.
type ResourceID string

const (
	CustomerA ResourceID = "customer_A.txt"
	CustomerB ResourceID = "customer_B.txt"
)

// Resources lists the protected files in menu order.
var Resources = []ResourceID{CustomerA, CustomerB}

type Action string

const (
	ActionView Action = "view"
	ActionEdit Action = "edit"
)

// Actions lists the known actions in menu order.
var Actions = []Action{ActionView, ActionEdit}

func (a Action) Valid() bool {
	return a == ActionView || a == ActionEdit
}

// ParseAction accepts "view" or "edit" in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w %q: must be view or edit", ErrUnknownAction, s)
	}
	return a, nil
}
