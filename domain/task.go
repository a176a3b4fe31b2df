package domain

import "time"

// Task statuses form a closed set; anything else is rejected at the API
// boundary.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// Task is a single board item. Its lifecycle is tied to the parent project:
// deleting the project cascade-deletes its tasks.
type Task struct {
	ID          string     `json:"id" bson:"id"`
	ProjectID   string     `json:"project_id" bson:"project_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Status      string     `json:"status" bson:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// TaskInput carries the fields a caller supplies when creating a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// Fields returns the set fields keyed by their stored names.
func (p TaskPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.AssignedTo != nil {
		fields["assigned_to"] = *p.AssignedTo
	}
	if p.DueDate != nil {
		fields["due_date"] = *p.DueDate
	}
	return fields
}
