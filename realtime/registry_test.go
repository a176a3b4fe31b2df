package realtime

import (
	"sync"
	"testing"

	"taskboard-api/domain"
)

// nopHandle carries an id so distinct instances stay distinct map keys.
type nopHandle struct{ id int }

func (*nopHandle) Send(domain.Event) error { return nil }

var nextHandleID int

func newNopHandle() *nopHandle {
	nextHandleID++
	return &nopHandle{id: nextHandleID}
}

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	h1 := newNopHandle()
	h2 := newNopHandle()

	r.Register("u1", h1)
	r.Register("u1", h2)
	if got := len(r.HandlesFor("u1")); got != 2 {
		t.Fatalf("expected 2 handles, got %d", got)
	}

	r.Unregister("u1", h1)
	if got := len(r.HandlesFor("u1")); got != 1 {
		t.Fatalf("expected 1 handle after unregister, got %d", got)
	}

	r.Unregister("u1", h2)
	if got := len(r.HandlesFor("u1")); got != 0 {
		t.Fatalf("expected no handles, got %d", got)
	}
	if got := r.Users(); got != 0 {
		t.Fatalf("expected empty entry to be removed, got %d users", got)
	}
}

func TestRegistryUnregisterAbsent(t *testing.T) {
	r := NewRegistry()
	h := newNopHandle()

	// Concurrently torn-down handles may be unregistered twice; neither call
	// may fault.
	r.Unregister("missing", h)
	r.Register("u1", h)
	r.Unregister("u1", h)
	r.Unregister("u1", h)

	if got := r.Users(); got != 0 {
		t.Fatalf("expected 0 users, got %d", got)
	}
}

func TestRegistryNoResidualEntries(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 1000; i++ {
		h := newNopHandle()
		r.Register("u1", h)
		r.Unregister("u1", h)
	}
	if got := r.Users(); got != 0 {
		t.Fatalf("expected no residual entries after churn, got %d", got)
	}
}

func TestRegistryHandlesForReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	h1 := newNopHandle()
	r.Register("u1", h1)

	snapshot := r.HandlesFor("u1")
	r.Unregister("u1", h1)

	if len(snapshot) != 1 {
		t.Fatalf("snapshot should be unaffected by later mutation, got %d handles", len(snapshot))
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		h := newNopHandle()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Register("shared", h)
				r.HandlesFor("shared")
				r.Unregister("shared", h)
			}
		}()
	}
	wg.Wait()
	if got := r.Users(); got != 0 {
		t.Fatalf("expected clean registry after concurrent churn, got %d users", got)
	}
}
