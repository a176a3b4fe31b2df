package domain

// Live-channel event kinds pushed to connected clients.
const (
	EventActivity       = "activity"
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventProjectDeleted = "project_deleted"
)

// Event is the envelope for every server-to-client message on the live
// channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
