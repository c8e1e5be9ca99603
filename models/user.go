package models

import "fmt"

// UserRole represents the coarse permission tier carried in a token's userRole claim
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// ParseUserRole converts a claim value into a known role.
// Matching is exact; anything outside {USER, ADMIN} is an error.
func ParseUserRole(value string) (UserRole, error) {
	switch UserRole(value) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown user role: %q", value)
	}
}

// String returns the role name as stored in tokens
func (r UserRole) String() string {
	return string(r)
}

// IsAdmin returns true if the role is ADMIN
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}
