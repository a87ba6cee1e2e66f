package queue_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/job"
)

// fakeLeaseManager is an in-memory LeaseManager used to exercise Worker
// without a real store: it holds a single queue of jobs and applies the
// same state transitions spec.md §4 describes.
type fakeLeaseManager struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*job.Job
}

func newFakeLeaseManager() *fakeLeaseManager {
	return &fakeLeaseManager{jobs: make(map[uuid.UUID]*job.Job)}
}

func (f *fakeLeaseManager) push(j *job.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func (f *fakeLeaseManager) AcquireLease(ctx context.Context, workerID string, batchSize int, tenantFilter *string, leaseDuration time.Duration) ([]*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*job.Job
	for _, j := range f.jobs {
		if j.Status != job.Queued {
			continue
		}
		owner := workerID
		exp := time.Now().Add(leaseDuration)
		j.Status = job.Leased
		j.LeaseOwner = &owner
		j.LeaseExpiresAt = &exp
		out = append(out, j)
		if len(out) >= batchSize {
			break
		}
	}
	return out, nil
}

func (f *fakeLeaseManager) StartJob(ctx context.Context, id uuid.UUID, workerID string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.LeaseOwner == nil || *j.LeaseOwner != workerID {
		return nil, &queue.Error{Kind: queue.LeaseLost, Message: "lease lost"}
	}
	j.Status = job.Running
	j.Attempt++
	return j, nil
}

func (f *fakeLeaseManager) ExtendLease(ctx context.Context, id uuid.UUID, workerID string, leaseDuration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.LeaseOwner == nil || *j.LeaseOwner != workerID {
		return &queue.Error{Kind: queue.LeaseLost, Message: "lease lost"}
	}
	exp := time.Now().Add(leaseDuration)
	j.LeaseExpiresAt = &exp
	return nil
}

func (f *fakeLeaseManager) CompleteJob(ctx context.Context, id uuid.UUID, workerID string, result []byte) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.LeaseOwner == nil || *j.LeaseOwner != workerID {
		return nil, &queue.Error{Kind: queue.LeaseLost, Message: "lease lost"}
	}
	j.Status = job.Succeeded
	j.Result = result
	j.LeaseOwner = nil
	j.LeaseExpiresAt = nil
	return j, nil
}

func (f *fakeLeaseManager) FailJob(ctx context.Context, id uuid.UUID, workerID string, lastError string, backoff time.Duration) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.LeaseOwner == nil || *j.LeaseOwner != workerID {
		return nil, &queue.Error{Kind: queue.LeaseLost, Message: "lease lost"}
	}
	j.LastError = &lastError
	j.LeaseOwner = nil
	j.LeaseExpiresAt = nil
	if j.Attempt >= j.MaxAttempts {
		j.Status = job.Dlq
	} else {
		j.Status = job.Queued
		sched := time.Now().Add(backoff)
		j.ScheduledAt = sched
	}
	return j, nil
}

func (f *fakeLeaseManager) RetryFromDLQ(ctx context.Context, id uuid.UUID, reset bool) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, &queue.Error{Kind: queue.NotFound, Message: "not found"}
	}
	j.Status = job.Queued
	if reset {
		j.Attempt = 0
	}
	return j, nil
}

func (f *fakeLeaseManager) status(id uuid.UUID) job.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id].Status
}

func newTestJob(jobType string, maxAttempts uint32) *job.Job {
	payload, _ := json.Marshal(map[string]string{"job_type": jobType})
	return &job.Job{
		ID:          uuid.New(),
		TenantID:    "tenant-a",
		Status:      job.Queued,
		Priority:    job.Normal,
		MaxAttempts: maxAttempts,
		Payload:     payload,
		ScheduledAt: time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestWorkerProcessesJob(t *testing.T) {
	leases := newFakeLeaseManager()
	registry := queue.NewRegistry()

	handlerCalled := make(chan struct{}, 1)
	registry.Register("echo", func(ctx context.Context, jc queue.JobContext) queue.Result {
		handlerCalled <- struct{}{}
		return queue.Result{Success: true, Output: jc.Payload}
	})

	cfg := queue.WorkerConfig{
		WorkerID:          "w1",
		Concurrency:       1,
		BatchSize:         1,
		PollInterval:      20 * time.Millisecond,
		LeaseDuration:     time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
	}
	worker := queue.NewWorker(leases, registry, nil, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	j := newTestJob("echo", 3)
	leases.push(j)

	select {
	case <-handlerCalled:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	time.Sleep(50 * time.Millisecond)

	if status := leases.status(j.ID); status != job.Succeeded {
		t.Fatalf("expected Succeeded, got %v", status)
	}

	if err := worker.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerRetryThenDLQ(t *testing.T) {
	leases := newFakeLeaseManager()
	registry := queue.NewRegistry()

	var calls atomic.Int32
	registry.Register("flaky", func(ctx context.Context, jc queue.JobContext) queue.Result {
		calls.Add(1)
		return queue.Result{Success: false, Error: "boom"}
	})

	cfg := queue.WorkerConfig{
		WorkerID:          "w1",
		Concurrency:       1,
		BatchSize:         1,
		PollInterval:      10 * time.Millisecond,
		LeaseDuration:     time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
		Backoff: queue.BackoffConfig{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      1,
		},
	}
	worker := queue.NewWorker(leases, registry, nil, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	j := newTestJob("flaky", 2)
	leases.push(j)

	deadline := time.After(2 * time.Second)
	for {
		if leases.status(j.ID) == job.Dlq {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected Dlq, got %v after %d calls", leases.status(j.ID), calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	if calls.Load() != 2 {
		t.Fatalf("expected exactly MaxAttempts=2 calls, got %d", calls.Load())
	}

	_ = worker.Stop(time.Second)
}

func TestWorkerNoHandlerRegistered(t *testing.T) {
	leases := newFakeLeaseManager()
	registry := queue.NewRegistry()

	cfg := queue.WorkerConfig{
		WorkerID:          "w1",
		Concurrency:       1,
		BatchSize:         1,
		PollInterval:      10 * time.Millisecond,
		LeaseDuration:     time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
		Backoff: queue.BackoffConfig{
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      1,
		},
	}
	worker := queue.NewWorker(leases, registry, nil, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	j := newTestJob("unregistered", 1)
	leases.push(j)

	deadline := time.After(time.Second)
	for {
		if leases.status(j.ID) == job.Dlq {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected Dlq, got %v", leases.status(j.ID))
		case <-time.After(10 * time.Millisecond):
		}
	}

	_ = worker.Stop(time.Second)
}

// TestWorkerPanicRecoversToFailure verifies that a panicking Handler still
// resolves through FailJob rather than stranding the job Running: the
// recover must happen at the point Worker invokes the handler, not merely
// at the worker pool's dispatch boundary.
func TestWorkerPanicRecoversToFailure(t *testing.T) {
	leases := newFakeLeaseManager()
	registry := queue.NewRegistry()

	registry.Register("boom", func(ctx context.Context, jc queue.JobContext) queue.Result {
		panic("handler exploded")
	})

	cfg := queue.WorkerConfig{
		WorkerID:          "w1",
		Concurrency:       1,
		BatchSize:         1,
		PollInterval:      20 * time.Millisecond,
		LeaseDuration:     time.Second,
		HeartbeatInterval: 100 * time.Millisecond,
	}
	worker := queue.NewWorker(leases, registry, nil, cfg, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	j := newTestJob("boom", 1)
	leases.push(j)

	deadline := time.After(time.Second)
	for {
		if leases.status(j.ID) == job.Dlq {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected Dlq, got %v", leases.status(j.ID))
		case <-time.After(10 * time.Millisecond):
		}
	}

	_ = worker.Stop(time.Second)
}
