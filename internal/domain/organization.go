package domain

import "time"

// Organization roles for workspace-level membership.
const (
	OrgRoleAdmin  = "ADMIN"
	OrgRoleMember = "MEMBER"
)

// Organization is the workspace a set of users and teams belongs to.
type Organization struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// OrgMember links a user to an organization with a workspace role.
type OrgMember struct {
	OrgID     string
	UserID    string
	Role      string
	CreatedAt time.Time
}
