package queue_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/corequeue/corequeue"
)

type mockReclaimer struct {
	count atomic.Int64
}

func (m *mockReclaimer) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	m.count.Add(1)
	return 1, nil
}

func TestReaperSweepsPeriodically(t *testing.T) {
	reclaimer := &mockReclaimer{}
	logger := slog.Default()

	r := queue.NewReaper(reclaimer, queue.ReaperConfig{Interval: 20 * time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := r.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	if reclaimer.count.Load() < 2 {
		t.Fatalf("expected reaper to sweep at least twice, got %d", reclaimer.count.Load())
	}
}

func TestReaperLifecycleErrors(t *testing.T) {
	reclaimer := &mockReclaimer{}
	logger := slog.Default()

	r := queue.NewReaper(reclaimer, queue.ReaperConfig{Interval: time.Second}, logger)

	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := r.Start(ctx); err == nil {
		t.Fatal("expected ErrDoubleStarted")
	}

	if err := r.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	if err := r.Stop(time.Second); err == nil {
		t.Fatal("expected ErrDoubleStopped")
	}
}
