package localbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/eventbus/localbus"
)

func TestSubscribeFiltersbyTenant(t *testing.T) {
	bus := localbus.New(slog.Default())
	ctx := context.Background()

	events, unsubscribe, err := bus.Subscribe(ctx, "tenant-a")
	if err != nil {
		t.Fatal(err)
	}
	defer unsubscribe()

	if err := bus.Publish(ctx, queue.Event{Type: queue.EventCreated, JobID: uuid.New(), TenantID: "tenant-b"}); err != nil {
		t.Fatal(err)
	}
	wanted := queue.Event{Type: queue.EventCreated, JobID: uuid.New(), TenantID: "tenant-a"}
	if err := bus.Publish(ctx, wanted); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-events:
		if got.JobID != wanted.JobID {
			t.Fatalf("expected %s, got %s", wanted.JobID, got.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("event not received")
	}

	select {
	case extra := <-events:
		t.Fatalf("did not expect a second event, got %v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := localbus.New(slog.Default())
	events, unsubscribe, err := bus.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	unsubscribe()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}
