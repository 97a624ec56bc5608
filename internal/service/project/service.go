package project

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
	"github.com/huddlehq/huddle/internal/service/team"
)

// Service handles project workflows. Any team permission grants project
// visibility; an empty permission set means the caller has no access to
// the team at all.
type Service struct {
	projects repository.ProjectRepository
	teams    team.Service
	logger   *slog.Logger
}

// New constructs a Service.
func New(projects repository.ProjectRepository, teams team.Service, logger *slog.Logger) Service {
	return Service{projects: projects, teams: teams, logger: logger}
}

var (
	errProjectNameRequired = errors.New("project name is required")
	errTeamIDRequired      = errors.New("team_id is required")
)

// CreateInput captures a project creation request.
type CreateInput struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

// Create registers a project under a team the caller can access.
func (s Service) Create(ctx context.Context, principal *domain.Principal, input CreateInput) (*domain.Project, error) {
	if strings.TrimSpace(input.TeamID) == "" {
		return nil, errTeamIDRequired
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errProjectNameRequired
	}
	if err := s.ensureTeamAccess(ctx, input.TeamID, principal.UserID); err != nil {
		return nil, err
	}
	project := &domain.Project{
		ID:        uuid.NewString(),
		TeamID:    input.TeamID,
		Name:      name,
		Status:    "ACTIVE",
		CreatedBy: principal.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "team_id", input.TeamID)
	return project, nil
}

// ListByTeam returns a team's projects for callers with team access.
func (s Service) ListByTeam(ctx context.Context, principal *domain.Principal, teamID string) ([]domain.Project, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, errTeamIDRequired
	}
	if err := s.ensureTeamAccess(ctx, teamID, principal.UserID); err != nil {
		return nil, err
	}
	return s.projects.ListProjectsByTeam(ctx, teamID)
}

func (s Service) ensureTeamAccess(ctx context.Context, teamID, userID string) error {
	perms, err := s.teams.PermissionsFor(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		return team.ErrForbidden
	}
	return nil
}
