package repository

import (
	"context"
	"time"

	"github.com/huddlehq/huddle/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// OrgRepository manages organizations and workspace membership.
type OrgRepository interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganizationByID(ctx context.Context, orgID string) (*domain.Organization, error)
	UpsertOrgMember(ctx context.Context, member *domain.OrgMember) error
	GetOrgMember(ctx context.Context, orgID, userID string) (*domain.OrgMember, error)
}

// BillingRepository reads and updates billing accounts. The gate only
// reads; writes come from the billing provider webhook.
type BillingRepository interface {
	GetBillingAccountByOwner(ctx context.Context, ownerKind, ownerID string) (*domain.BillingAccount, error)
	CreateBillingAccount(ctx context.Context, account *domain.BillingAccount) error
	UpdateBillingStatus(ctx context.Context, accountID, status string, gracePeriodEnd *time.Time) error
}

// TeamRepository manages teams, memberships, and custom roles.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	UpdateTeam(ctx context.Context, team *domain.Team) error
	DeleteTeam(ctx context.Context, teamID string) error
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error)

	UpsertTeamMember(ctx context.Context, member *domain.TeamMember) error
	GetTeamMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	CountMembersWithCustomRole(ctx context.Context, roleID string) (int, error)

	CreateCustomRole(ctx context.Context, role *domain.CustomRole) error
	UpdateCustomRole(ctx context.Context, role *domain.CustomRole) error
	DeleteCustomRole(ctx context.Context, roleID string) error
	ListCustomRoles(ctx context.Context, teamID string) ([]domain.CustomRole, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByTeam(ctx context.Context, teamID string) ([]domain.Project, error)
}

// TaskRepository persists tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	ListTasksByProject(ctx context.Context, projectID string, limit, offset int) ([]domain.Task, error)
}
