package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/corequeue/corequeue/job"
)

// EventType enumerates the lifecycle events emitted to EventBus
// subscribers, per spec.md §6.
type EventType string

const (
	EventCreated   EventType = "job.created"
	EventStarted   EventType = "job.started"
	EventCompleted EventType = "job.completed"
	EventFailed    EventType = "job.failed"
	EventDLQ       EventType = "job.dlq"
	EventRetried   EventType = "job.retried"
)

// Event is the payload shape published to an EventBus, per spec.md §6.
type Event struct {
	Type      EventType
	JobID     uuid.UUID
	TenantID  string
	Status    job.Status
	Timestamp time.Time
	Data      map[string]any
}

// EventBus broadcasts lifecycle events to external subscribers on a
// fire-and-forget, best-effort basis.
//
// There is no happens-before relationship between an event and a
// subsequent Observer read: subscribers that need consistency must
// re-query the Job Store for authoritative state. Event loss must never
// affect job-state correctness — the bus is a convenience, not part of
// the state machine.
type EventBus interface {

	// Publish broadcasts evt to any subscriber registered for
	// evt.TenantID (or for the wildcard tenant filter ""). Publish must
	// not block the caller on a slow or absent subscriber; a full
	// subscriber channel may silently drop the event.
	Publish(ctx context.Context, evt Event) error

	// Subscribe registers for events matching tenantFilter ("" means
	// all tenants) and returns a channel of events plus an unsubscribe
	// function. The returned channel is closed after unsubscribe is
	// called.
	Subscribe(ctx context.Context, tenantFilter string) (events <-chan Event, unsubscribe func(), err error)
}
