package policy

import "github.com/boardlock/boardlock/internal/model"

// Capabilities is the trio of board mutations a role may perform.
type Capabilities struct {
	Create     bool
	Move       bool
	EditDelete bool
}

// For maps a role to its capabilities. Unknown roles get nothing.
func For(role model.Role) Capabilities {
	switch role {
	case model.RoleScrumMaster:
		return Capabilities{Create: true, Move: true, EditDelete: true}
	case model.RoleProductOwner:
		return Capabilities{Move: true}
	case model.RoleDeveloper:
		return Capabilities{}
	default:
		return Capabilities{}
	}
}
