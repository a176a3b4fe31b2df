package api

import (
	"context"

	"taskboard-api/domain"
)

// Board abstracts the mutation pipeline and board reads for handlers.
type Board interface {
	CreateProject(ctx context.Context, actorID string, in domain.ProjectInput) (domain.Project, error)
	ListProjects(ctx context.Context, actorID string) ([]domain.Project, error)
	GetProject(ctx context.Context, actorID, projectID string) (domain.Project, error)
	UpdateProject(ctx context.Context, actorID, projectID string, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, actorID, projectID string) error
	ListTasks(ctx context.Context, actorID, projectID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, actorID, projectID string, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, actorID, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, actorID, projectID, taskID string) error
	ListActivities(ctx context.Context, actorID, projectID string) ([]domain.Activity, error)
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
