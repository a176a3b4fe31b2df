// Package storage provides the document persistence collaborator: a narrow
// store interface over named collections with Mongo-style filters, a MongoDB
// implementation, and an in-memory implementation with matching filter
// semantics for tests and local development.
package storage

import (
	"context"
)

// Collection names used by the service.
const (
	Users      = "users"
	Projects   = "projects"
	Tasks      = "tasks"
	Activities = "activity_logs"
)

// Filter selects documents. Supported shapes: field equality, array-contains
// (an equality filter on an array field matches any element), and "$or" over
// a slice of sub-filters.
type Filter map[string]any

// Store abstracts document persistence for the service. Lookups that match
// nothing return domain.ErrNotFound from FindOne; list operations return
// empty slices.
type Store interface {
	// FindOne decodes the first matching document into out.
	FindOne(ctx context.Context, collection string, filter Filter, out any) error
	// FindAll decodes every matching document into out, a pointer to a slice.
	FindAll(ctx context.Context, collection string, filter Filter, out any) error
	// Insert appends one document.
	Insert(ctx context.Context, collection string, doc any) error
	// UpdateFields sets the given fields on the first matching document,
	// leaving all other fields unchanged.
	UpdateFields(ctx context.Context, collection string, filter Filter, fields map[string]any) error
	// DeleteOne removes the first matching document.
	DeleteOne(ctx context.Context, collection string, filter Filter) error
	// DeleteMany removes every matching document.
	DeleteMany(ctx context.Context, collection string, filter Filter) error
	// ListSorted decodes up to limit matching documents into out, ordered by
	// sortField. A limit of 0 means no limit.
	ListSorted(ctx context.Context, collection string, filter Filter, sortField string, descending bool, limit int64, out any) error
}
