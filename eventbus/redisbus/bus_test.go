package redisbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/eventbus/redisbus"
	"github.com/corequeue/corequeue/job"
)

func newTestBus(t *testing.T) (*redisbus.Bus, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := redisbus.New(client, slog.Default())
	return bus, func() {
		client.Close()
		mr.Close()
	}
}

func TestPublishSubscribeSameTenant(t *testing.T) {
	bus, cleanup := newTestBus(t)
	defer cleanup()

	ctx := context.Background()
	events, unsubscribe, err := bus.Subscribe(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	evt := queue.Event{
		Type:      queue.EventCompleted,
		JobID:     uuid.New(),
		TenantID:  "tenant-a",
		Status:    job.Succeeded,
		Timestamp: time.Now().UTC(),
	}
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.JobID != evt.JobID {
			t.Fatalf("expected job id %s, got %s", evt.JobID, got.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not received")
	}
}

func TestWildcardSubscriberSeesAllTenants(t *testing.T) {
	bus, cleanup := newTestBus(t)
	defer cleanup()

	ctx := context.Background()
	events, unsubscribe, err := bus.Subscribe(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	evt := queue.Event{Type: queue.EventCreated, JobID: uuid.New(), TenantID: "tenant-b"}
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.TenantID != "tenant-b" {
			t.Fatalf("expected tenant-b, got %s", got.TenantID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not received on wildcard subscriber")
	}
}
