package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
)

// CreateTeam creates a team record.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	const query = `INSERT INTO teams (id, org_id, name, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, team.ID, team.OrgID, team.Name, team.Description, team.CreatedBy, team.CreatedAt)
	return err
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	const query = `SELECT id, org_id, name, description, created_by, created_at FROM teams WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, teamID)
	var team domain.Team
	if err := row.Scan(&team.ID, &team.OrgID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// UpdateTeam persists name and description changes.
func (r *Repository) UpdateTeam(ctx context.Context, team *domain.Team) error {
	const query = `UPDATE teams SET name = $2, description = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, team.ID, team.Name, team.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteTeam removes a team; memberships and roles cascade.
func (r *Repository) DeleteTeam(ctx context.Context, teamID string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, teamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListTeamsByUser returns teams the user belongs to.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	const query = `SELECT t.id, t.org_id, t.name, t.description, t.created_by, t.created_at
		FROM teams t
		INNER JOIN team_members tm ON tm.team_id = t.id
		WHERE tm.member_id = $1
		ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.OrgID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// UpsertTeamMember adds or updates team membership.
func (r *Repository) UpsertTeamMember(ctx context.Context, member *domain.TeamMember) error {
	const query = `INSERT INTO team_members (team_id, member_id, role, custom_role_id, is_active, availability, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (team_id, member_id) DO UPDATE
		SET role = EXCLUDED.role, custom_role_id = EXCLUDED.custom_role_id,
			is_active = EXCLUDED.is_active, availability = EXCLUDED.availability`
	_, err := r.pool.Exec(ctx, query, member.TeamID, member.MemberID, member.Role, member.CustomRoleID, member.IsActive, member.Availability, member.CreatedAt)
	return err
}

// GetTeamMember fetches a membership record.
func (r *Repository) GetTeamMember(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	const query = `SELECT team_id, member_id, role, COALESCE(custom_role_id, ''), is_active, availability, created_at
		FROM team_members WHERE team_id = $1 AND member_id = $2`
	row := r.pool.QueryRow(ctx, query, teamID, userID)
	var m domain.TeamMember
	if err := row.Scan(&m.TeamID, &m.MemberID, &m.Role, &m.CustomRoleID, &m.IsActive, &m.Availability, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListTeamMembers returns all memberships for a team.
func (r *Repository) ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	const query = `SELECT team_id, member_id, role, COALESCE(custom_role_id, ''), is_active, availability, created_at
		FROM team_members WHERE team_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.TeamMember, 0)
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.TeamID, &m.MemberID, &m.Role, &m.CustomRoleID, &m.IsActive, &m.Availability, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// RemoveTeamMember deletes a membership.
func (r *Repository) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	const query = `DELETE FROM team_members WHERE team_id = $1 AND member_id = $2`
	tag, err := r.pool.Exec(ctx, query, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CountMembersWithCustomRole counts members still assigned to a role.
func (r *Repository) CountMembersWithCustomRole(ctx context.Context, roleID string) (int, error) {
	const query = `SELECT COUNT(1) FROM team_members WHERE custom_role_id = $1`
	row := r.pool.QueryRow(ctx, query, roleID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateCustomRole inserts a custom role.
func (r *Repository) CreateCustomRole(ctx context.Context, role *domain.CustomRole) error {
	const query = `INSERT INTO custom_roles (id, team_id, name, permissions, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, role.ID, role.TeamID, role.Name, role.Permissions, role.IsDefault, role.CreatedAt)
	return err
}

// UpdateCustomRole persists name, permissions, and default flag.
func (r *Repository) UpdateCustomRole(ctx context.Context, role *domain.CustomRole) error {
	const query = `UPDATE custom_roles SET name = $2, permissions = $3, is_default = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, role.ID, role.Name, role.Permissions, role.IsDefault)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteCustomRole removes a custom role.
func (r *Repository) DeleteCustomRole(ctx context.Context, roleID string) error {
	const query = `DELETE FROM custom_roles WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListCustomRoles returns custom roles for a team, oldest first so the
// earliest default role wins tie-breaks.
func (r *Repository) ListCustomRoles(ctx context.Context, teamID string) ([]domain.CustomRole, error) {
	const query = `SELECT id, team_id, name, permissions, is_default, created_at
		FROM custom_roles WHERE team_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.CustomRole, 0)
	for rows.Next() {
		var role domain.CustomRole
		if err := rows.Scan(&role.ID, &role.TeamID, &role.Name, &role.Permissions, &role.IsDefault, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
