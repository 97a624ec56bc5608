package domain

import "time"

// Team activity event types streamed to websocket subscribers.
const (
	EventMemberAdded   = "member_added"
	EventMemberUpdated = "member_updated"
	EventMemberRemoved = "member_removed"
	EventRoleChanged   = "role_changed"
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
)

// TeamEvent describes one activity item on a team's stream.
type TeamEvent struct {
	Type       string            `json:"type"`
	TeamID     string            `json:"team_id"`
	ActorID    string            `json:"actor_id"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
