package enums

import "fmt"

// Role determines which operations an account may invoke.
type Role string

const (
	RoleNone     Role = "none"
	RoleBuyer    Role = "buyer"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
)

var validRoles = []Role{
	RoleNone,
	RoleBuyer,
	RoleDelivery,
	RoleAdmin,
	RoleSeller,
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

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
