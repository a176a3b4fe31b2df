package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

type stubResolver struct {
	members map[string][]string
	err     error
}

func (s stubResolver) MembersOf(ctx context.Context, projectID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

type recordHandle struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (h *recordHandle) Send(ev domain.Event) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return nil
}

func (h *recordHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBroadcastDeliversToAllMemberHandles(t *testing.T) {
	registry := NewRegistry()
	a1 := &recordHandle{}
	a2 := &recordHandle{}
	b1 := &recordHandle{}
	outsider := &recordHandle{}
	registry.Register("alice", a1)
	registry.Register("alice", a2)
	registry.Register("bob", b1)
	registry.Register("mallory", outsider)

	resolver := stubResolver{members: map[string][]string{"p1": {"alice", "bob"}}}
	bc := NewBroadcaster(resolver, registry, nil, testLogger())

	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventTaskCreated})

	for _, h := range []*recordHandle{a1, a2, b1} {
		if h.count() != 1 {
			t.Fatalf("expected every member handle to receive the event, got %d", h.count())
		}
	}
	if outsider.count() != 0 {
		t.Fatalf("non-member received %d events", outsider.count())
	}
}

func TestBroadcastMissingProjectIsSilent(t *testing.T) {
	registry := NewRegistry()
	h := &recordHandle{}
	registry.Register("alice", h)

	bc := NewBroadcaster(stubResolver{members: map[string][]string{}}, registry, nil, testLogger())
	bc.Broadcast(context.Background(), "gone", domain.Event{Type: domain.EventActivity})

	if h.count() != 0 {
		t.Fatalf("expected no delivery for a missing project, got %d", h.count())
	}
}

func TestBroadcastNoLiveConnections(t *testing.T) {
	registry := NewRegistry()
	resolver := stubResolver{members: map[string][]string{"p1": {"alice", "bob"}}}
	bc := NewBroadcaster(resolver, registry, nil, testLogger())

	// Must complete without error and without attempting delivery.
	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventActivity})
}

func TestBroadcastSendFailureDoesNotAbortFanout(t *testing.T) {
	registry := NewRegistry()
	dead := &recordHandle{err: errors.New("connection reset")}
	live := &recordHandle{}
	registry.Register("alice", dead)
	registry.Register("bob", live)

	resolver := stubResolver{members: map[string][]string{"p1": {"alice", "bob"}}}
	bc := NewBroadcaster(resolver, registry, nil, testLogger())

	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventTaskUpdated})

	if live.count() != 1 {
		t.Fatalf("healthy handle should still receive the event, got %d", live.count())
	}
	// A failed send must not evict the handle; only transport teardown does.
	if got := len(registry.HandlesFor("alice")); got != 1 {
		t.Fatalf("failed handle should stay registered, got %d", got)
	}
}

func TestBroadcastClosedHandleStopsReceiving(t *testing.T) {
	registry := NewRegistry()
	h1 := &recordHandle{}
	h2 := &recordHandle{}
	registry.Register("alice", h1)
	registry.Register("alice", h2)

	resolver := stubResolver{members: map[string][]string{"p1": {"alice"}}}
	bc := NewBroadcaster(resolver, registry, nil, testLogger())

	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventTaskCreated})
	registry.Unregister("alice", h1)
	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventTaskUpdated})

	if h1.count() != 1 {
		t.Fatalf("unregistered handle received %d events, expected 1", h1.count())
	}
	if h2.count() != 2 {
		t.Fatalf("remaining handle received %d events, expected 2", h2.count())
	}
}

type stubBus struct {
	err       error
	published []domain.Event
}

func (b *stubBus) Publish(ctx context.Context, projectID string, ev domain.Event) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, ev)
	return nil
}

func TestBroadcastPrefersBus(t *testing.T) {
	registry := NewRegistry()
	h := &recordHandle{}
	registry.Register("alice", h)

	resolver := stubResolver{members: map[string][]string{"p1": {"alice"}}}
	bus := &stubBus{}
	bc := NewBroadcaster(resolver, registry, bus, testLogger())

	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventActivity})

	if len(bus.published) != 1 {
		t.Fatalf("expected event on the bus, got %d", len(bus.published))
	}
	if h.count() != 0 {
		t.Fatalf("local delivery should go through the bus loop, got %d direct sends", h.count())
	}
}

func TestBroadcastFallsBackWhenBusFails(t *testing.T) {
	registry := NewRegistry()
	h := &recordHandle{}
	registry.Register("alice", h)

	resolver := stubResolver{members: map[string][]string{"p1": {"alice"}}}
	bus := &stubBus{err: errors.New("redis down")}
	bc := NewBroadcaster(resolver, registry, bus, testLogger())

	bc.Broadcast(context.Background(), "p1", domain.Event{Type: domain.EventActivity})

	if h.count() != 1 {
		t.Fatalf("expected local fallback delivery, got %d", h.count())
	}
}
