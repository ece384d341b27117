package auth

import (
	"fmt"
	"strings"
)

// Role represents an admin role for role-based access control
type Role string

const (
	// RoleAdmin has full access to all admin endpoints
	RoleAdmin Role = "admin"

	// RoleViewer has read-only access to admin endpoints
	RoleViewer Role = "viewer"

	// RoleIntegration may only post conversation events
	RoleIntegration Role = "integration"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleViewer, RoleIntegration:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role has permission for a required role
// Admin has all permissions, every other role only its own
func (r Role) HasPermission(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// ParseRoles parses a comma-separated role list.
func ParseRoles(s string) ([]Role, error) {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := Role(strings.ToLower(part))
		if !r.IsValid() {
			return nil, fmt.Errorf("unknown role %q", part)
		}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("no roles given")
	}
	return roles, nil
}
