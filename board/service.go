// Package board implements the mutation pipeline: every state-changing
// operation runs authorize, persist, record activity, broadcast, in that
// order. Authorization or persistence failures stop the pipeline; activity
// and broadcast failures are contained and never fail the caller's request.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// Broadcaster pushes an event to a project's current membership. It never
// returns an error: delivery is best effort by contract.
type Broadcaster interface {
	Broadcast(ctx context.Context, projectID string, ev domain.Event)
}

// Service executes board mutations and reads against the document store.
type Service struct {
	store storage.Store
	bc    Broadcaster
	log   *log.Logger
}

// NewService creates a board service.
func NewService(store storage.Store, bc Broadcaster, logger *log.Logger) *Service {
	return &Service{store: store, bc: bc, log: logger}
}

// projectForMember loads the project and authorizes actorID as owner or
// member. Missing project yields domain.ErrNotFound, wrong role
// domain.ErrForbidden.
func (s *Service) projectForMember(ctx context.Context, projectID, actorID string) (domain.Project, error) {
	var p domain.Project
	if err := s.store.FindOne(ctx, storage.Projects, storage.Filter{"id": projectID}, &p); err != nil {
		return p, err
	}
	if !p.HasMember(actorID) {
		return p, fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	return p, nil
}

// projectForOwner is projectForMember restricted to the owner; project
// update and delete are owner-only.
func (s *Service) projectForOwner(ctx context.Context, projectID, actorID string) (domain.Project, error) {
	var p domain.Project
	if err := s.store.FindOne(ctx, storage.Projects, storage.Filter{"id": projectID}, &p); err != nil {
		return p, err
	}
	if p.OwnerID != actorID {
		return p, fmt.Errorf("only the project owner may do this: %w", domain.ErrForbidden)
	}
	return p, nil
}

// record appends one activity entry for a committed mutation. Failure is
// logged and reported as nil: the mutation is the source of truth and the
// audit trail is best effort.
func (s *Service) record(ctx context.Context, projectID, taskID, actorID, action, details string) *domain.Activity {
	a := domain.Activity{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		TaskID:    taskID,
		UserID:    actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, storage.Activities, a); err != nil {
		s.log.Errorf("record activity %s on %s: %v", action, projectID, err)
		return nil
	}
	return &a
}

// broadcastActivity pushes the activity event when the record step
// succeeded.
func (s *Service) broadcastActivity(ctx context.Context, a *domain.Activity) {
	if a == nil {
		return
	}
	s.bc.Broadcast(ctx, a.ProjectID, domain.Event{Type: domain.EventActivity, Data: *a})
}

// CreateProject persists a new project owned by actorID, who becomes its
// first member.
func (s *Service) CreateProject(ctx context.Context, actorID string, in domain.ProjectInput) (domain.Project, error) {
	now := time.Now().UTC()
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     actorID,
		Members:     []string{actorID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, storage.Projects, p); err != nil {
		return domain.Project{}, err
	}
	a := s.record(ctx, p.ID, "", actorID, domain.ActionProjectCreated, fmt.Sprintf("Created project %q", p.Name))
	s.broadcastActivity(ctx, a)
	return p, nil
}

// ListProjects returns every project actorID owns or belongs to.
func (s *Service) ListProjects(ctx context.Context, actorID string) ([]domain.Project, error) {
	filter := storage.Filter{"$or": []storage.Filter{
		{"owner_id": actorID},
		{"members": actorID},
	}}
	var projects []domain.Project
	if err := s.store.FindAll(ctx, storage.Projects, filter, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns one project, member-or-owner only.
func (s *Service) GetProject(ctx context.Context, actorID, projectID string) (domain.Project, error) {
	return s.projectForMember(ctx, projectID, actorID)
}

// UpdateProject applies the set fields of patch. Owner only.
func (s *Service) UpdateProject(ctx context.Context, actorID, projectID string, patch domain.ProjectPatch) (domain.Project, error) {
	if _, err := s.projectForOwner(ctx, projectID, actorID); err != nil {
		return domain.Project{}, err
	}
	fields := patch.Fields()
	fields["updated_at"] = time.Now().UTC()
	if err := s.store.UpdateFields(ctx, storage.Projects, storage.Filter{"id": projectID}, fields); err != nil {
		return domain.Project{}, err
	}
	var updated domain.Project
	if err := s.store.FindOne(ctx, storage.Projects, storage.Filter{"id": projectID}, &updated); err != nil {
		return domain.Project{}, err
	}
	a := s.record(ctx, projectID, "", actorID, domain.ActionProjectUpdated, "Updated project details")
	s.broadcastActivity(ctx, a)
	return updated, nil
}

// DeleteProject removes the project and cascades deletion of its tasks and
// activity history. Owner only. The cascade is three separate deletions, not
// a transaction; no per-child events are broadcast, only the top-level
// deletion, which finds the membership already gone and fans out to nobody
// on this process (a bus still relays it to processes that may hold stale
// state).
func (s *Service) DeleteProject(ctx context.Context, actorID, projectID string) error {
	if _, err := s.projectForOwner(ctx, projectID, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, storage.Projects, storage.Filter{"id": projectID}); err != nil {
		return err
	}
	if err := s.store.DeleteMany(ctx, storage.Tasks, storage.Filter{"project_id": projectID}); err != nil {
		return err
	}
	if err := s.store.DeleteMany(ctx, storage.Activities, storage.Filter{"project_id": projectID}); err != nil {
		return err
	}
	s.bc.Broadcast(ctx, projectID, domain.Event{
		Type: domain.EventProjectDeleted,
		Data: map[string]string{"project_id": projectID},
	})
	return nil
}

// ListTasks returns the project's tasks, member-or-owner only.
func (s *Service) ListTasks(ctx context.Context, actorID, projectID string) ([]domain.Task, error) {
	if _, err := s.projectForMember(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	var tasks []domain.Task
	if err := s.store.FindAll(ctx, storage.Tasks, storage.Filter{"project_id": projectID}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask persists a new task in the project. Member or owner.
func (s *Service) CreateTask(ctx context.Context, actorID, projectID string, in domain.TaskInput) (domain.Task, error) {
	if _, err := s.projectForMember(ctx, projectID, actorID); err != nil {
		return domain.Task{}, err
	}
	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	if !domain.ValidStatus(status) {
		return domain.Task{}, fmt.Errorf("unknown status %q: %w", status, domain.ErrInvalid)
	}
	now := time.Now().UTC()
	t := domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, storage.Tasks, t); err != nil {
		return domain.Task{}, err
	}
	a := s.record(ctx, projectID, t.ID, actorID, domain.ActionTaskCreated, fmt.Sprintf("Created task %q", t.Title))
	s.bc.Broadcast(ctx, projectID, domain.Event{Type: domain.EventTaskCreated, Data: t})
	s.broadcastActivity(ctx, a)
	return t, nil
}

// UpdateTask applies the set fields of patch. A patch touching status gets
// the task_status_changed activity tag instead of the generic task_updated.
func (s *Service) UpdateTask(ctx context.Context, actorID, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	if _, err := s.projectForMember(ctx, projectID, actorID); err != nil {
		return domain.Task{}, err
	}
	var before domain.Task
	if err := s.store.FindOne(ctx, storage.Tasks, storage.Filter{"id": taskID, "project_id": projectID}, &before); err != nil {
		return domain.Task{}, err
	}
	if patch.Status != nil && !domain.ValidStatus(*patch.Status) {
		return domain.Task{}, fmt.Errorf("unknown status %q: %w", *patch.Status, domain.ErrInvalid)
	}
	fields := patch.Fields()
	fields["updated_at"] = time.Now().UTC()
	if err := s.store.UpdateFields(ctx, storage.Tasks, storage.Filter{"id": taskID}, fields); err != nil {
		return domain.Task{}, err
	}
	var updated domain.Task
	if err := s.store.FindOne(ctx, storage.Tasks, storage.Filter{"id": taskID}, &updated); err != nil {
		return domain.Task{}, err
	}
	var a *domain.Activity
	if patch.Status != nil {
		a = s.record(ctx, projectID, taskID, actorID, domain.ActionTaskStatusChanged,
			fmt.Sprintf("Changed task %q status to %s", before.Title, *patch.Status))
	} else {
		a = s.record(ctx, projectID, taskID, actorID, domain.ActionTaskUpdated,
			fmt.Sprintf("Updated task %q", before.Title))
	}
	s.bc.Broadcast(ctx, projectID, domain.Event{Type: domain.EventTaskUpdated, Data: updated})
	s.broadcastActivity(ctx, a)
	return updated, nil
}

// DeleteTask removes one task. Member or owner.
func (s *Service) DeleteTask(ctx context.Context, actorID, projectID, taskID string) error {
	if _, err := s.projectForMember(ctx, projectID, actorID); err != nil {
		return err
	}
	var t domain.Task
	if err := s.store.FindOne(ctx, storage.Tasks, storage.Filter{"id": taskID, "project_id": projectID}, &t); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, storage.Tasks, storage.Filter{"id": taskID}); err != nil {
		return err
	}
	a := s.record(ctx, projectID, taskID, actorID, domain.ActionTaskDeleted, fmt.Sprintf("Deleted task %q", t.Title))
	s.bc.Broadcast(ctx, projectID, domain.Event{
		Type: domain.EventTaskDeleted,
		Data: map[string]string{"task_id": taskID},
	})
	s.broadcastActivity(ctx, a)
	return nil
}

// ListActivities returns the project's most recent activity entries, newest
// first, capped at 100. Member or owner.
func (s *Service) ListActivities(ctx context.Context, actorID, projectID string) ([]domain.Activity, error) {
	if _, err := s.projectForMember(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	var activities []domain.Activity
	err := s.store.ListSorted(ctx, storage.Activities, storage.Filter{"project_id": projectID}, "created_at", true, 100, &activities)
	if err != nil {
		return nil, err
	}
	return activities, nil
}
