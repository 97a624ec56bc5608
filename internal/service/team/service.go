package team

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/authz"
	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/internal/ws"
)

// Service handles team, membership, and custom role workflows. All
// mutations are authorized through the permission model; workspace
// admins bypass it with the full permission set.
type Service struct {
	teams  repository.TeamRepository
	orgs   repository.OrgRepository
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, orgs repository.OrgRepository, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{teams: teams, orgs: orgs, hub: hub, logger: logger}
}

var (
	// ErrForbidden signals the caller lacks the required permission.
	ErrForbidden = errors.New("permission denied")
	// ErrRoleInUse blocks deletion of roles still assigned to members.
	ErrRoleInUse = errors.New("custom role is assigned to members")

	errTeamNameRequired = errors.New("team name is required")
	errRoleNameRequired = errors.New("role name is required")
	errInvalidRole      = errors.New("invalid team role")
	errCustomRoleID     = errors.New("custom_role_id is required for CUSTOM role")
	errUserIDRequired   = errors.New("user_id is required")
	errInvalidPerm      = errors.New("unknown permission")
	errNotOrgMember     = errors.New("caller is not a member of the organization")
)

// Create registers a team inside the caller's organization. The caller
// must belong to the organization and becomes the team's LEAD.
func (s Service) Create(ctx context.Context, principal *domain.Principal, name, description string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errTeamNameRequired
	}
	orgID := principal.OrgID
	if orgID == "" {
		return nil, errNotOrgMember
	}
	if _, err := s.orgs.GetOrgMember(ctx, orgID, principal.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotOrgMember
		}
		return nil, err
	}
	team := &domain.Team{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   principal.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	lead := &domain.TeamMember{
		TeamID:    team.ID,
		MemberID:  principal.UserID,
		Role:      domain.TeamRoleLead,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.teams.UpsertTeamMember(ctx, lead); err != nil {
		// No lead means nobody can manage the team; take it back out.
		if delErr := s.teams.DeleteTeam(ctx, team.ID); delErr != nil {
			s.logger.Error("failed to remove lead-less team", "team_id", team.ID, "error", delErr)
		}
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "org_id", orgID, "created_by", principal.UserID)
	return team, nil
}

// Get returns a team visible to the caller (member or org admin).
func (s Service) Get(ctx context.Context, principal *domain.Principal, teamID string) (*domain.Team, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := s.teams.GetTeamMember(ctx, teamID, principal.UserID); err == nil {
		return team, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if s.isOrgAdmin(ctx, team.OrgID, principal.UserID) {
		return team, nil
	}
	return nil, ErrForbidden
}

// List returns the caller's teams.
func (s Service) List(ctx context.Context, principal *domain.Principal) ([]domain.Team, error) {
	return s.teams.ListTeamsByUser(ctx, principal.UserID)
}

// UpdateSettings renames or re-describes a team. Requires
// EDIT_TEAM_SETTINGS.
func (s Service) UpdateSettings(ctx context.Context, principal *domain.Principal, teamID, name, description string) (*domain.Team, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermEditTeamSettings) {
		return nil, ErrForbidden
	}
	if name = strings.TrimSpace(name); name != "" {
		team.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		team.Description = description
	}
	if err := s.teams.UpdateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team updated", "team_id", teamID, "actor", principal.UserID)
	return team, nil
}

// Delete removes a team. Requires DELETE_TEAM.
func (s Service) Delete(ctx context.Context, principal *domain.Principal, teamID string) error {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return err
	}
	if !perms.Has(authz.PermDeleteTeam) {
		return ErrForbidden
	}
	if err := s.teams.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	s.logger.Info("team deleted", "team_id", teamID, "actor", principal.UserID)
	return nil
}

// ListMembers returns a team's memberships. Requires VIEW_MEMBERS.
func (s Service) ListMembers(ctx context.Context, principal *domain.Principal, teamID string) ([]domain.TeamMember, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermViewMembers) {
		return nil, ErrForbidden
	}
	return s.teams.ListTeamMembers(ctx, teamID)
}

// MemberInput captures an add/update membership request.
type MemberInput struct {
	UserID       string `json:"user_id"`
	Role         string `json:"role"`
	CustomRoleID string `json:"custom_role_id"`
	Availability string `json:"availability"`
}

// AddMember adds a user to the team. Requires MANAGE_MEMBERS. When no
// role is given the member gets the team's default custom role if one
// exists (earliest created wins), otherwise the built-in MEMBER role.
func (s Service) AddMember(ctx context.Context, principal *domain.Principal, teamID string, input MemberInput) (*domain.TeamMember, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermManageMembers) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errUserIDRequired
	}
	role, customRoleID, err := s.resolveNewMemberRole(ctx, teamID, input)
	if err != nil {
		return nil, err
	}
	member := &domain.TeamMember{
		TeamID:       teamID,
		MemberID:     input.UserID,
		Role:         role,
		CustomRoleID: customRoleID,
		IsActive:     true,
		Availability: input.Availability,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.teams.UpsertTeamMember(ctx, member); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventMemberAdded,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"user_id": input.UserID, "role": role},
	})
	return member, nil
}

// UpdateMember changes a member's role or availability. Requires
// MANAGE_MEMBERS.
func (s Service) UpdateMember(ctx context.Context, principal *domain.Principal, teamID, userID string, input MemberInput) (*domain.TeamMember, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermManageMembers) {
		return nil, ErrForbidden
	}
	member, err := s.teams.GetTeamMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if input.Role != "" {
		if err := validateRole(input.Role, input.CustomRoleID); err != nil {
			return nil, err
		}
		member.Role = input.Role
		member.CustomRoleID = ""
		if input.Role == domain.TeamRoleCustom {
			member.CustomRoleID = input.CustomRoleID
		}
	}
	if input.Availability != "" {
		member.Availability = input.Availability
	}
	if err := s.teams.UpsertTeamMember(ctx, member); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventMemberUpdated,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"user_id": userID, "role": member.Role},
	})
	return member, nil
}

// RemoveMember drops a user from the team. Requires MANAGE_MEMBERS.
func (s Service) RemoveMember(ctx context.Context, principal *domain.Principal, teamID, userID string) error {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return err
	}
	if !perms.Has(authz.PermManageMembers) {
		return ErrForbidden
	}
	if err := s.teams.RemoveTeamMember(ctx, teamID, userID); err != nil {
		return err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventMemberRemoved,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"user_id": userID},
	})
	return nil
}

// RoleInput captures a create/update custom role request.
type RoleInput struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	IsDefault   *bool    `json:"is_default"`
}

// ListRoles returns a team's custom roles. Requires VIEW_MEMBERS.
func (s Service) ListRoles(ctx context.Context, principal *domain.Principal, teamID string) ([]domain.CustomRole, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermViewMembers) {
		return nil, ErrForbidden
	}
	return s.teams.ListCustomRoles(ctx, teamID)
}

// CreateRole defines a custom role. Requires MANAGE_ROLES.
func (s Service) CreateRole(ctx context.Context, principal *domain.Principal, teamID string, input RoleInput) (*domain.CustomRole, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermManageRoles) {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errRoleNameRequired
	}
	if err := validatePermissions(input.Permissions); err != nil {
		return nil, err
	}
	role := &domain.CustomRole{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		Name:        name,
		Permissions: input.Permissions,
		IsDefault:   input.IsDefault != nil && *input.IsDefault,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.teams.CreateCustomRole(ctx, role); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventRoleChanged,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"role_id": role.ID, "action": "created"},
	})
	return role, nil
}

// UpdateRole modifies a custom role. Requires MANAGE_ROLES.
func (s Service) UpdateRole(ctx context.Context, principal *domain.Principal, teamID, roleID string, input RoleInput) (*domain.CustomRole, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermManageRoles) {
		return nil, ErrForbidden
	}
	role, err := s.findRole(ctx, teamID, roleID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		role.Name = name
	}
	if input.Permissions != nil {
		if err := validatePermissions(input.Permissions); err != nil {
			return nil, err
		}
		role.Permissions = input.Permissions
	}
	if input.IsDefault != nil {
		role.IsDefault = *input.IsDefault
	}
	if err := s.teams.UpdateCustomRole(ctx, role); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventRoleChanged,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"role_id": roleID, "action": "updated"},
	})
	return role, nil
}

// DeleteRole removes a custom role that no member references. Requires
// MANAGE_ROLES.
func (s Service) DeleteRole(ctx context.Context, principal *domain.Principal, teamID, roleID string) error {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	perms, err := s.permissionsFor(ctx, team, principal.UserID)
	if err != nil {
		return err
	}
	if !perms.Has(authz.PermManageRoles) {
		return ErrForbidden
	}
	if _, err := s.findRole(ctx, teamID, roleID); err != nil {
		return err
	}
	count, err := s.teams.CountMembersWithCustomRole(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrRoleInUse
	}
	if err := s.teams.DeleteCustomRole(ctx, roleID); err != nil {
		return err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventRoleChanged,
		TeamID:  teamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"role_id": roleID, "action": "deleted"},
	})
	return nil
}

// Capabilities computes the caller's flattened permission view for UI
// gating. Org admins get the full set even without team membership.
func (s Service) Capabilities(ctx context.Context, principal *domain.Principal, teamID string) (authz.Capabilities, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return authz.Capabilities{}, err
	}
	member, err := s.teams.GetTeamMember(ctx, teamID, principal.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return authz.Capabilities{}, err
	}
	if s.isOrgAdmin(ctx, team.OrgID, principal.UserID) {
		caps := authz.CapabilitiesFromSet(authz.FullSet())
		caps.IsTeamLead = member != nil && member.Role == domain.TeamRoleLead
		return caps, nil
	}
	if member == nil {
		return authz.Capabilities{}, ErrForbidden
	}
	roles, err := s.teams.ListCustomRoles(ctx, teamID)
	if err != nil {
		return authz.Capabilities{}, err
	}
	return authz.CapabilitiesFor(member, roles), nil
}

// PermissionsFor exposes the effective permission set for other
// services gating team-scoped writes.
func (s Service) PermissionsFor(ctx context.Context, teamID, userID string) (authz.Set, error) {
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.permissionsFor(ctx, team, userID)
}

// permissionsFor resolves the effective permission set, applying the
// workspace-admin override before the team-role computation.
func (s Service) permissionsFor(ctx context.Context, team *domain.Team, userID string) (authz.Set, error) {
	if s.isOrgAdmin(ctx, team.OrgID, userID) {
		return authz.FullSet(), nil
	}
	member, err := s.teams.GetTeamMember(ctx, team.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authz.NewSet(), nil
		}
		return nil, err
	}
	if !member.IsActive {
		return authz.NewSet(), nil
	}
	if member.Role != domain.TeamRoleCustom {
		return authz.EffectivePermissions(member, nil), nil
	}
	roles, err := s.teams.ListCustomRoles(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	return authz.EffectivePermissions(member, roles), nil
}

// isOrgAdmin reports whether the user holds the workspace ADMIN role.
// Lookup failures resolve to false: authorization fails closed.
func (s Service) isOrgAdmin(ctx context.Context, orgID, userID string) bool {
	member, err := s.orgs.GetOrgMember(ctx, orgID, userID)
	if err != nil {
		return false
	}
	return member.Role == domain.OrgRoleAdmin
}

// resolveNewMemberRole picks the role for an incoming member: explicit
// input wins, then the team's default custom role, then MEMBER.
func (s Service) resolveNewMemberRole(ctx context.Context, teamID string, input MemberInput) (string, string, error) {
	if input.Role != "" {
		if err := validateRole(input.Role, input.CustomRoleID); err != nil {
			return "", "", err
		}
		if input.Role == domain.TeamRoleCustom {
			return input.Role, input.CustomRoleID, nil
		}
		return input.Role, "", nil
	}
	roles, err := s.teams.ListCustomRoles(ctx, teamID)
	if err != nil {
		return "", "", err
	}
	for _, role := range roles {
		if role.IsDefault {
			return domain.TeamRoleCustom, role.ID, nil
		}
	}
	return domain.TeamRoleMember, "", nil
}

func (s Service) findRole(ctx context.Context, teamID, roleID string) (*domain.CustomRole, error) {
	roles, err := s.teams.ListCustomRoles(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].ID == roleID {
			return &roles[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s Service) publish(event domain.TeamEvent) {
	if s.hub == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("event marshal failed", "type", event.Type, "error", err)
		return
	}
	s.hub.Broadcast(event.TeamID, payload)
}

func validateRole(role, customRoleID string) error {
	switch role {
	case domain.TeamRoleLead, domain.TeamRoleMember:
		return nil
	case domain.TeamRoleCustom:
		if strings.TrimSpace(customRoleID) == "" {
			return errCustomRoleID
		}
		return nil
	default:
		return errInvalidRole
	}
}

func validatePermissions(perms []string) error {
	for _, p := range perms {
		if !authz.IsValidPermission(p) {
			return errInvalidPerm
		}
	}
	return nil
}
