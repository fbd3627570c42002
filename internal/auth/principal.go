package auth

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// Capability names an operation that is gated by role.
type Capability int

const (
	CapViewAllAgents Capability = iota
	CapManageAgents
	CapManageAssignments
	CapTriggerSync
)

func (c Capability) String() string {
	switch c {
	case CapViewAllAgents:
		return "view_all_agents"
	case CapManageAgents:
		return "manage_agents"
	case CapManageAssignments:
		return "manage_assignments"
	case CapTriggerSync:
		return "trigger_sync"
	}
	return "unknown"
}

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapViewAllAgents:     true,
		CapManageAgents:      true,
		CapManageAssignments: true,
		CapTriggerSync:       true,
	},
	RoleUser: {},
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

func (p Principal) Can(c Capability) bool {
	return roleCapabilities[p.Role][c]
}

// CanActFor reports whether the caller may read data belonging to email.
func (p Principal) CanActFor(email string) bool {
	if p.Can(CapViewAllAgents) {
		return true
	}
	return p.Email != "" && strings.EqualFold(p.Email, email)
}
