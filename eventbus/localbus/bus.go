package localbus

import (
	"context"
	"log/slog"
	"sync"

	queue "github.com/corequeue/corequeue"
)

type subscriber struct {
	tenantFilter string
	ch           chan queue.Event
}

// Bus is an in-process queue.EventBus. The zero value is not usable;
// construct one with New.
type Bus struct {
	mu          sync.Mutex
	subscribers map[int]*subscriber
	nextID      int
	log         *slog.Logger
}

// New returns an empty Bus ready to accept subscribers.
func New(log *slog.Logger) *Bus {
	return &Bus{subscribers: make(map[int]*subscriber), log: log}
}

// Publish implements queue.EventBus. It never blocks on a slow
// subscriber: a subscriber whose buffer is full silently misses the
// event, exactly as documented on queue.EventBus.
func (b *Bus) Publish(ctx context.Context, evt queue.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		if sub.tenantFilter != "" && sub.tenantFilter != evt.TenantID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.log.Warn("localbus: subscriber channel full, dropping event", "type", evt.Type, "job_id", evt.JobID)
		}
	}
	return nil
}

// Subscribe implements queue.EventBus.
func (b *Bus) Subscribe(ctx context.Context, tenantFilter string) (<-chan queue.Event, func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{tenantFilter: tenantFilter, ch: make(chan queue.Event, 64)}
	b.subscribers[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
		close(sub.ch)
	}
	return sub.ch, unsubscribe, nil
}
