package enums

import "fmt"

// ActorRole is the role carried by a station access token.
type ActorRole string

const (
	// ActorRolePicker scans items against the pick queue.
	ActorRolePicker ActorRole = "picker"
	// ActorRoleLoader marks shipment packages as loaded at the dock.
	ActorRoleLoader ActorRole = "loader"
	// ActorRoleSupervisor can override backorders and manage aliases.
	ActorRoleSupervisor ActorRole = "supervisor"
)

var validActorRoles = []ActorRole{
	ActorRolePicker,
	ActorRoleLoader,
	ActorRoleSupervisor,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
