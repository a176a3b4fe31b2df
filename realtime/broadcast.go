package realtime

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// MembershipResolver reports which identities may receive events for a
// project. A missing project yields domain.ErrNotFound, which the broadcast
// engine treats as "deliver to nobody", not as a failure.
type MembershipResolver interface {
	MembersOf(ctx context.Context, projectID string) ([]string, error)
}

// Bus forwards events to every server process so each can deliver to its
// local handles. Optional; without a bus the broadcaster delivers directly.
type Bus interface {
	Publish(ctx context.Context, projectID string, ev domain.Event) error
}

// Broadcaster pushes events to every live handle of every project member.
// Delivery is best effort: a dead or slow handle never blocks or fails
// delivery to the rest of the membership.
type Broadcaster struct {
	resolver MembershipResolver
	registry *Registry
	bus      Bus
	log      *log.Logger
}

// NewBroadcaster creates a broadcaster. bus may be nil for single-process
// operation.
func NewBroadcaster(resolver MembershipResolver, registry *Registry, bus Bus, logger *log.Logger) *Broadcaster {
	return &Broadcaster{resolver: resolver, registry: registry, bus: bus, log: logger}
}

// Broadcast fans ev out to the project's membership. With a bus configured
// the event is published so every process (this one included) delivers it
// locally; a publish failure falls back to direct local delivery so a bus
// outage degrades to single-process behavior instead of dropping events.
func (b *Broadcaster) Broadcast(ctx context.Context, projectID string, ev domain.Event) {
	if b.bus != nil {
		err := b.bus.Publish(ctx, projectID, ev)
		if err == nil {
			return
		}
		b.log.Errorf("broadcast %s: bus publish failed, delivering locally: %v", ev.Type, err)
	}
	b.Deliver(ctx, projectID, ev)
}

// Deliver resolves the project's membership and sends ev to every live
// handle of every member. A missing project completes silently. Per-handle
// send failures are logged and swallowed; the handle stays registered until
// its transport reports teardown.
func (b *Broadcaster) Deliver(ctx context.Context, projectID string, ev domain.Event) {
	members, err := b.resolver.MembersOf(ctx, projectID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			b.log.Errorf("broadcast %s: resolve members of %s: %v", ev.Type, projectID, err)
		}
		return
	}
	for _, userID := range members {
		for _, h := range b.registry.HandlesFor(userID) {
			if err := h.Send(ev); err != nil {
				b.log.Debugf("broadcast %s: send to %s failed: %v", ev.Type, userID, err)
			}
		}
	}
}
