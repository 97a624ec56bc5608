package authz

import "github.com/huddlehq/huddle/internal/domain"

// Permission is one discrete capability from a closed enumeration.
type Permission string

// Task permissions.
const (
	PermViewTasks   Permission = "VIEW_TASKS"
	PermCreateTasks Permission = "CREATE_TASKS"
	PermEditTasks   Permission = "EDIT_TASKS"
	PermDeleteTasks Permission = "DELETE_TASKS"
	PermAssignTasks Permission = "ASSIGN_TASKS"
)

// Sprint permissions.
const (
	PermViewSprints   Permission = "VIEW_SPRINTS"
	PermManageSprints Permission = "MANAGE_SPRINTS"
)

// Member permissions.
const (
	PermViewMembers   Permission = "VIEW_MEMBERS"
	PermManageMembers Permission = "MANAGE_MEMBERS"
)

// Settings permissions.
const (
	PermEditTeamSettings Permission = "EDIT_TEAM_SETTINGS"
	PermDeleteTeam       Permission = "DELETE_TEAM"
	PermManageRoles      Permission = "MANAGE_ROLES"
)

// Report permissions.
const (
	PermViewReports   Permission = "VIEW_REPORTS"
	PermExportReports Permission = "EXPORT_REPORTS"
)

// AllPermissions enumerates every defined permission in a stable order.
var AllPermissions = []Permission{
	PermViewTasks,
	PermCreateTasks,
	PermEditTasks,
	PermDeleteTasks,
	PermAssignTasks,
	PermViewSprints,
	PermManageSprints,
	PermViewMembers,
	PermManageMembers,
	PermEditTeamSettings,
	PermDeleteTeam,
	PermManageRoles,
	PermViewReports,
	PermExportReports,
}

// DefaultRolePermissions maps built-in team roles to their static
// permission sets. CUSTOM has no entry here; it resolves dynamically.
var DefaultRolePermissions = map[string][]Permission{
	domain.TeamRoleLead: AllPermissions,
	domain.TeamRoleMember: {
		PermViewTasks,
		PermCreateTasks,
		PermEditTasks,
		PermViewSprints,
		PermViewMembers,
		PermViewReports,
	},
}

// IsValidPermission reports whether raw names a defined permission.
func IsValidPermission(raw string) bool {
	for _, p := range AllPermissions {
		if string(p) == raw {
			return true
		}
	}
	return false
}

// Set is an unordered collection of permissions.
type Set map[Permission]struct{}

// NewSet builds a Set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAny reports whether at least one of perms is in the set.
func (s Set) HasAny(perms ...Permission) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is in the set.
func (s Set) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}
