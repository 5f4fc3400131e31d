package enums

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleCustomer  Role = "cliente"
	RoleLibrarian Role = "bibliotecario"
	RoleAdmin     Role = "administrador"
)

var validRoles = []Role{
	RoleCustomer,
	RoleLibrarian,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to library staff.
func (r Role) IsStaff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

// ParseRole converts raw input into a Role. The legacy "admin" spelling is
// accepted as administrador.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "admin" {
		return RoleAdmin, nil
	}
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
