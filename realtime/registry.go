// Package realtime implements the live-update core: the connection registry,
// the membership-scoped broadcast engine, and an optional Redis pub/sub
// bridge for running more than one server process.
package realtime

import (
	"sync"

	"taskboard-api/domain"
)

// Handle is a live transport endpoint for one user. Send must be safe to
// call from any goroutine; a returned error means this delivery failed, not
// that the handle is dead.
type Handle interface {
	Send(ev domain.Event) error
}

// Registry tracks live handles per user identity. It owns its own
// synchronization; callers never lock. A user may hold several handles at
// once (multiple tabs or devices).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[Handle]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[Handle]struct{})}
}

// Register adds h to the user's handle set, creating the entry if absent.
func (r *Registry) Register(userID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Handle]struct{})
		r.conns[userID] = set
	}
	set[h] = struct{}{}
}

// Unregister removes h from the user's handle set and drops the entry when
// it becomes empty. Removing an absent handle is a no-op.
func (r *Registry) Unregister(userID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// HandlesFor returns a snapshot of the user's live handles, empty if none.
// The snapshot is safe to iterate while other goroutines mutate the
// registry.
func (r *Registry) HandlesFor(userID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	handles := make([]Handle, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	return handles
}

// Users returns the number of identities with at least one live handle.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
