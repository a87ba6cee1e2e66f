//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corequeue/corequeue/job"
	"github.com/corequeue/corequeue/store/postgres"
	"github.com/corequeue/corequeue/submission"
)

// newTestStore connects to TEST_DATABASE_URL and initializes the
// schema. Tests are skipped when the variable is unset, since no
// Postgres instance is assumed available in a default checkout.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	ctx := context.Background()
	if err := postgres.InitSchema(ctx, pool); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE jobs"); err != nil {
		t.Fatal(err)
	}
	return postgres.NewStore(pool, 0, nil, nil)
}

func TestSubmitIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := submission.Request{
		TenantID:       "tenant-a",
		IdempotencyKey: "order-123",
		Payload:        []byte(`{"job_type":"echo"}`),
	}

	j1, created1, err := store.Submit(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !created1 {
		t.Fatal("expected first submission to create a row")
	}

	j2, created2, err := store.Submit(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if created2 {
		t.Fatal("expected second submission to be a no-op")
	}
	if j1.ID != j2.ID {
		t.Fatalf("expected same job id, got %s and %s", j1.ID, j2.ID)
	}
}

func TestAcquireLeaseOrdersByPriorityThenAge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low, _, _ := store.Submit(ctx, submission.Request{
		TenantID: "tenant-a", IdempotencyKey: "low", Payload: []byte(`{}`), Priority: job.Low,
	})
	time.Sleep(10 * time.Millisecond)
	critical, _, _ := store.Submit(ctx, submission.Request{
		TenantID: "tenant-a", IdempotencyKey: "critical", Payload: []byte(`{}`), Priority: job.Critical,
	})

	leased, err := store.AcquireLease(ctx, "w1", 10, nil, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(leased) != 2 {
		t.Fatalf("expected 2 jobs leased, got %d", len(leased))
	}
	if leased[0].ID != critical.ID {
		t.Fatalf("expected critical-priority job first, got %s", leased[0].ID)
	}
	if leased[1].ID != low.ID {
		t.Fatalf("expected low-priority job second, got %s", leased[1].ID)
	}
}

func TestFailJobRetriesThenDLQs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	j, _, err := store.Submit(ctx, submission.Request{
		TenantID: "tenant-a", IdempotencyKey: "flaky", Payload: []byte(`{}`), MaxAttempts: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	leased, err := store.AcquireLease(ctx, "w1", 1, nil, time.Minute)
	if err != nil || len(leased) != 1 {
		t.Fatalf("acquire lease: %v, %d", err, len(leased))
	}
	if _, err := store.StartJob(ctx, j.ID, "w1"); err != nil {
		t.Fatal(err)
	}
	failed, err := store.FailJob(ctx, j.ID, "w1", "boom", 0)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != job.Queued {
		t.Fatalf("expected Queued after first failure, got %v", failed.Status)
	}

	leased, err = store.AcquireLease(ctx, "w1", 1, nil, time.Minute)
	if err != nil || len(leased) != 1 {
		t.Fatalf("acquire lease: %v, %d", err, len(leased))
	}
	if _, err := store.StartJob(ctx, j.ID, "w1"); err != nil {
		t.Fatal(err)
	}
	failed, err = store.FailJob(ctx, j.ID, "w1", "boom again", 0)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != job.Dlq {
		t.Fatalf("expected Dlq after exhausting attempts, got %v", failed.Status)
	}
}

func TestReclaimExpiredLeases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	j, _, err := store.Submit(ctx, submission.Request{
		TenantID: "tenant-a", IdempotencyKey: "stuck", Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.AcquireLease(ctx, "w1", 1, nil, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)

	count, err := store.ReclaimExpiredLeases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job reclaimed, got %d", count)
	}

	got, err := store.Get(ctx, "", j.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != job.Queued {
		t.Fatalf("expected reclaimed job to be Queued, got %v", got.Status)
	}
}
