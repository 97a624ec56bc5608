package domain

import "time"

// Team roles. CUSTOM members resolve their permissions through a
// CustomRole record instead of the built-in tables.
const (
	TeamRoleLead   = "LEAD"
	TeamRoleMember = "MEMBER"
	TeamRoleCustom = "CUSTOM"
)

// Team represents a collaborative group inside an organization.
type Team struct {
	ID          string
	OrgID       string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

// TeamMember links a user to a team with a role. CustomRoleID is set
// iff Role == CUSTOM; a dangling reference resolves to no permissions.
type TeamMember struct {
	TeamID       string
	MemberID     string
	Role         string
	CustomRoleID string
	IsActive     bool
	Availability string
	CreatedAt    time.Time
}

// CustomRole is a team-defined named permission bundle.
type CustomRole struct {
	ID          string
	TeamID      string
	Name        string
	Permissions []string
	IsDefault   bool
	CreatedAt   time.Time
}
