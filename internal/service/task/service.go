package task

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
	"github.com/huddlehq/huddle/internal/service/team"
	"github.com/huddlehq/huddle/internal/ws"
)

// Service handles task workflows. Every mutation is gated server-side
// by the caller's effective team permissions.
type Service struct {
	tasks    repository.TaskRepository
	projects repository.ProjectRepository
	teams    team.Service
	hub      *ws.Hub
	logger   *slog.Logger
}

// New constructs a Service.
func New(tasks repository.TaskRepository, projects repository.ProjectRepository, teams team.Service, hub *ws.Hub, logger *slog.Logger) Service {
	return Service{tasks: tasks, projects: projects, teams: teams, hub: hub, logger: logger}
}

var (
	errTitleRequired     = errors.New("task title is required")
	errProjectIDRequired = errors.New("project_id is required")
	errInvalidStatus     = errors.New("invalid task status")
)

// CreateInput captures a task creation request.
type CreateInput struct {
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	AssigneeID string `json:"assignee_id"`
}

// Create adds a task to a project. Requires CREATE_TASKS, plus
// ASSIGN_TASKS when an assignee is set.
func (s Service) Create(ctx context.Context, principal *domain.Principal, input CreateInput) (*domain.Task, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errTitleRequired
	}
	project, err := s.projects.GetProjectByID(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	perms, err := s.teams.PermissionsFor(ctx, project.TeamID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermCreateTasks) {
		return nil, team.ErrForbidden
	}
	if input.AssigneeID != "" && !perms.Has(authz.PermAssignTasks) {
		return nil, team.ErrForbidden
	}
	now := time.Now().UTC()
	task := &domain.Task{
		ID:         uuid.NewString(),
		ProjectID:  project.ID,
		TeamID:     project.TeamID,
		Title:      title,
		Status:     domain.TaskStatusTodo,
		AssigneeID: input.AssigneeID,
		CreatedBy:  principal.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventTaskCreated,
		TeamID:  project.TeamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"task_id": task.ID, "project_id": project.ID},
	})
	return task, nil
}

// ListByProject pages a project's tasks. Requires VIEW_TASKS.
func (s Service) ListByProject(ctx context.Context, principal *domain.Principal, projectID string, limit, offset int) ([]domain.Task, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errProjectIDRequired
	}
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	perms, err := s.teams.PermissionsFor(ctx, project.TeamID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermViewTasks) {
		return nil, team.ErrForbidden
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.tasks.ListTasksByProject(ctx, projectID, limit, offset)
}

// UpdateInput captures a task update request. Nil fields are left
// untouched; an empty-string assignee pointer clears the assignment.
type UpdateInput struct {
	Title      *string `json:"title"`
	Status     *string `json:"status"`
	AssigneeID *string `json:"assignee_id"`
}

// Update edits a task. Requires EDIT_TASKS, plus ASSIGN_TASKS when the
// assignee changes.
func (s Service) Update(ctx context.Context, principal *domain.Principal, taskID string, input UpdateInput) (*domain.Task, error) {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	perms, err := s.teams.PermissionsFor(ctx, task.TeamID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(authz.PermEditTasks) {
		return nil, team.ErrForbidden
	}
	if input.AssigneeID != nil && *input.AssigneeID != task.AssigneeID && !perms.Has(authz.PermAssignTasks) {
		return nil, team.ErrForbidden
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errTitleRequired
		}
		task.Title = title
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			return nil, errInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.AssigneeID != nil {
		task.AssigneeID = *input.AssigneeID
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.publish(domain.TeamEvent{
		Type:    domain.EventTaskUpdated,
		TeamID:  task.TeamID,
		ActorID: principal.UserID,
		Data:    map[string]string{"task_id": task.ID, "status": task.Status},
	})
	return task, nil
}

// Delete removes a task. Requires DELETE_TASKS.
func (s Service) Delete(ctx context.Context, principal *domain.Principal, taskID string) error {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	perms, err := s.teams.PermissionsFor(ctx, task.TeamID, principal.UserID)
	if err != nil {
		return err
	}
	if !perms.Has(authz.PermDeleteTasks) {
		return team.ErrForbidden
	}
	return s.tasks.DeleteTask(ctx, taskID)
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

func validStatus(status string) bool {
	switch status {
	case domain.TaskStatusTodo, domain.TaskStatusInProgress, domain.TaskStatusDone:
		return true
	}
	return false
}
