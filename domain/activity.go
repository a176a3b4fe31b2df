package domain

import "time"

// Activity action tags. Status changes get their own tag because they are
// the transition teammates watch for.
const (
	ActionProjectCreated    = "project_created"
	ActionProjectUpdated    = "project_updated"
	ActionTaskCreated       = "task_created"
	ActionTaskUpdated       = "task_updated"
	ActionTaskStatusChanged = "task_status_changed"
	ActionTaskDeleted       = "task_deleted"
)

// Activity is an append-only audit entry describing one committed mutation.
// Entries are never updated and are removed only when their project is
// cascade-deleted.
type Activity struct {
	ID        string    `json:"id" bson:"id"`
	ProjectID string    `json:"project_id" bson:"project_id"`
	TaskID    string    `json:"task_id,omitempty" bson:"task_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Action    string    `json:"action" bson:"action"`
	Details   string    `json:"details" bson:"details"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
