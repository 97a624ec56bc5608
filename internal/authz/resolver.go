package authz

import "github.com/huddlehq/huddle/internal/domain"

// EffectivePermissions computes the permission set for a team member.
// A nil member yields no permissions. CUSTOM members resolve through the
// matching CustomRole; a dangling custom role reference yields the empty
// set. Built-in roles use the static tables verbatim.
//
// Callers are responsible for the workspace-admin override: an org ADMIN
// gets FullSet regardless of team membership, but that check depends on
// workspace-scoped data this function does not have.
func EffectivePermissions(member *domain.TeamMember, customRoles []domain.CustomRole) Set {
	if member == nil {
		return NewSet()
	}
	if member.Role == domain.TeamRoleCustom {
		for _, role := range customRoles {
			if role.ID != member.CustomRoleID {
				continue
			}
			s := make(Set, len(role.Permissions))
			for _, raw := range role.Permissions {
				if IsValidPermission(raw) {
					s[Permission(raw)] = struct{}{}
				}
			}
			return s
		}
		return NewSet()
	}
	return NewSet(DefaultRolePermissions[member.Role]...)
}

// FullSet returns every defined permission, used for the workspace-admin
// override.
func FullSet() Set {
	return NewSet(AllPermissions...)
}

// Capabilities is the flattened boolean view of a member's permission
// set, shaped for UI gating.
type Capabilities struct {
	IsTeamLead bool `json:"is_team_lead"`

	CanViewTasks   bool `json:"can_view_tasks"`
	CanCreateTasks bool `json:"can_create_tasks"`
	CanEditTasks   bool `json:"can_edit_tasks"`
	CanDeleteTasks bool `json:"can_delete_tasks"`
	CanAssignTasks bool `json:"can_assign_tasks"`

	CanViewSprints   bool `json:"can_view_sprints"`
	CanManageSprints bool `json:"can_manage_sprints"`

	CanViewMembers   bool `json:"can_view_members"`
	CanManageMembers bool `json:"can_manage_members"`

	CanEditTeamSettings bool `json:"can_edit_team_settings"`
	CanDeleteTeam       bool `json:"can_delete_team"`
	CanManageRoles      bool `json:"can_manage_roles"`

	CanViewReports   bool `json:"can_view_reports"`
	CanExportReports bool `json:"can_export_reports"`
}

// CapabilitiesFor resolves a member's permissions into Capabilities.
// IsTeamLead is derived from the role, not the permission set.
func CapabilitiesFor(member *domain.TeamMember, customRoles []domain.CustomRole) Capabilities {
	perms := EffectivePermissions(member, customRoles)
	caps := CapabilitiesFromSet(perms)
	caps.IsTeamLead = member != nil && member.Role == domain.TeamRoleLead
	return caps
}

// CapabilitiesFromSet flattens a permission set into Capabilities,
// leaving IsTeamLead false.
func CapabilitiesFromSet(perms Set) Capabilities {
	return Capabilities{
		CanViewTasks:        perms.Has(PermViewTasks),
		CanCreateTasks:      perms.Has(PermCreateTasks),
		CanEditTasks:        perms.Has(PermEditTasks),
		CanDeleteTasks:      perms.Has(PermDeleteTasks),
		CanAssignTasks:      perms.Has(PermAssignTasks),
		CanViewSprints:      perms.Has(PermViewSprints),
		CanManageSprints:    perms.Has(PermManageSprints),
		CanViewMembers:      perms.Has(PermViewMembers),
		CanManageMembers:    perms.Has(PermManageMembers),
		CanEditTeamSettings: perms.Has(PermEditTeamSettings),
		CanDeleteTeam:       perms.Has(PermDeleteTeam),
		CanManageRoles:      perms.Has(PermManageRoles),
		CanViewReports:      perms.Has(PermViewReports),
		CanExportReports:    perms.Has(PermExportReports),
	}
}
