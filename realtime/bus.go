package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// RedisBus fans events out across server processes over a single pub/sub
// channel. Each process runs SubscribeLoop and delivers received events to
// its own local registry, so the registry itself stays purely local.
type RedisBus struct {
	client  *redis.Client
	channel string
}

type busMessage struct {
	ProjectID string       `json:"project_id"`
	Event     domain.Event `json:"event"`
}

// NewRedisBus creates a bus publishing on the given channel.
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	return &RedisBus{client: client, channel: channel}
}

// Publish sends ev to every subscribed process.
func (b *RedisBus) Publish(ctx context.Context, projectID string, ev domain.Event) error {
	data, err := json.Marshal(busMessage{ProjectID: projectID, Event: ev})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// SubscribeLoop consumes bus messages and hands them to deliver until ctx is
// done. A closed pub/sub channel triggers a reconnect after a short pause.
func (b *RedisBus) SubscribeLoop(ctx context.Context, logger *log.Logger, deliver func(ctx context.Context, projectID string, ev domain.Event)) {
	for {
		sub := b.client.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var bm busMessage
				if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
					logger.Errorf("bus: unable to parse message: %v", err)
					continue
				}
				deliver(ctx, bm.ProjectID, bm.Event)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("bus: pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
