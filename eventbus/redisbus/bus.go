package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	queue "github.com/corequeue/corequeue"
)

const (
	channelPrefix  = "events:"
	wildcardSuffix = "*"
)

func tenantChannel(tenantID string) string {
	if tenantID == "" {
		return channelPrefix + wildcardSuffix
	}
	return channelPrefix + tenantID
}

// Bus is a queue.EventBus backed by a Redis Pub/Sub client.
type Bus struct {
	client *redis.Client
	log    *slog.Logger
}

// New wraps an already-configured *redis.Client. Callers own the
// client's lifecycle.
func New(client *redis.Client, log *slog.Logger) *Bus {
	return &Bus{client: client, log: log}
}

// Publish implements queue.EventBus. It publishes to both the tenant's
// own channel and the wildcard channel, so a subscriber watching "all
// tenants" sees every event without the publisher needing to know who
// is subscribed.
func (b *Bus) Publish(ctx context.Context, evt queue.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redisbus: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, tenantChannel(evt.TenantID), payload).Err(); err != nil {
		return fmt.Errorf("redisbus: publish to tenant channel: %w", err)
	}
	if evt.TenantID != "" {
		if err := b.client.Publish(ctx, tenantChannel(""), payload).Err(); err != nil {
			return fmt.Errorf("redisbus: publish to wildcard channel: %w", err)
		}
	}
	return nil
}

// Subscribe implements queue.EventBus. The returned channel is closed
// once unsubscribe is called and the underlying pub/sub connection has
// finished tearing down.
func (b *Bus) Subscribe(ctx context.Context, tenantFilter string) (<-chan queue.Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, tenantChannel(tenantFilter))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, nil, fmt.Errorf("redisbus: subscribe: %w", err)
	}

	out := make(chan queue.Event, 64)
	done := make(chan struct{})

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt queue.Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Warn("redisbus: dropping malformed event", "err", err)
					continue
				}
				select {
				case out <- evt:
				default:
					b.log.Warn("redisbus: subscriber channel full, dropping event", "type", evt.Type, "job_id", evt.JobID)
				}
			}
		}
	}()

	unsubscribe := func() {
		close(done)
		_ = pubsub.Close()
	}
	return out, unsubscribe, nil
}
