package domain

import (
	"fmt"
	"log/slog"
	"strings"
)

// Department qualifies departmental base roles. The zero value means the
// user has no department.
type Department string

const (
	DepartmentNone Department = ""
	DepartmentA    Department = "A"
	DepartmentB    Department = "B"
)

// ParseDepartment accepts "A" or "B" in any case, and "" for none.
func ParseDepartment(s string) (Department, error) {
	d := Department(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return DepartmentNone, fmt.Errorf("invalid department %q: must be A or B", s)
	}
	return d, nil
}

func (d Department) Valid() bool {
	switch d {
	case DepartmentNone, DepartmentA, DepartmentB:
		return true
	}
	return false
}

type User struct {
	Identifier   string // case preserved; lookups go through NormalizeIdentifier
	PasswordHash []byte // bcrypt or argon2id encoded, never logged
	Role         string
	Department   Department
}

// LogValue keeps the password hash out of structured logs.
func (u User) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identifier", u.Identifier),
		slog.String("role", u.Role),
		slog.String("department", string(u.Department)),
	)
}

// NormalizeIdentifier is the case-insensitive lookup key for an identifier.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
