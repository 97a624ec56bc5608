package domain

import "time"

// Project groups tasks under a team.
type Project struct {
	ID        string
	TeamID    string
	Name      string
	Status    string
	CreatedBy string
	CreatedAt time.Time
}

// Task statuses.
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// Task is a unit of work inside a project.
type Task struct {
	ID         string
	ProjectID  string
	TeamID     string
	Title      string
	Status     string
	AssigneeID string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
