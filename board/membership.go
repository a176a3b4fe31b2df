package board

import (
	"context"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// Membership resolves a project's access set from the persisted record. It
// is the broadcast engine's view of the board: a standalone type so the
// broadcaster does not depend on the full service.
type Membership struct {
	store storage.Store
}

// NewMembership creates a resolver backed by the given store.
func NewMembership(store storage.Store) *Membership {
	return &Membership{store: store}
}

// MembersOf returns the identities with access to the project, owner always
// included. A missing project yields domain.ErrNotFound, distinct from a
// project with no members.
func (m *Membership) MembersOf(ctx context.Context, projectID string) ([]string, error) {
	var p domain.Project
	if err := m.store.FindOne(ctx, storage.Projects, storage.Filter{"id": projectID}, &p); err != nil {
		return nil, err
	}
	return p.MemberIDs(), nil
}
