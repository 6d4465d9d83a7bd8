package auth

// Role is a household membership role.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleMember    Role = "member"
	RoleCaretaker Role = "caretaker"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMember, RoleCaretaker:
		return true
	}
	return false
}

// Capability is a role-gated action class.
type Capability int

const (
	// CapRead covers all household-scoped reads.
	CapRead Capability = iota
	// CapLogCare covers watering, snoozing, and care activity logging.
	CapLogCare
	// CapEditPlants covers plant/location/species creation and schedule edits.
	CapEditPlants
	// CapManageMembers covers invites, removals, and role changes.
	CapManageMembers
	// CapManageHousehold covers household rename, settings, and deletion.
	CapManageHousehold
)

var capabilities = map[Role]map[Capability]bool{
	RoleOwner: {
		CapRead:            true,
		CapLogCare:         true,
		CapEditPlants:      true,
		CapManageMembers:   true,
		CapManageHousehold: true,
	},
	RoleMember: {
		CapRead:       true,
		CapLogCare:    true,
		CapEditPlants: true,
	},
	RoleCaretaker: {
		CapRead:    true,
		CapLogCare: true,
	},
}

// Can reports whether the role grants the capability. Unknown roles grant
// nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}
