package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corequeue/corequeue/internal"
	"github.com/corequeue/corequeue/job"
	"github.com/google/uuid"
)

// WorkerConfig defines runtime behavior of a Worker, per spec.md §6.
//
// Concurrency specifies the number of concurrent handler executions.
// Queue specifies the internal buffering capacity between leasing jobs
// and dispatching them to handlers. BatchSize bounds a single
// AcquireLease call. PollInterval is the fixed interval between
// AcquireLease calls, whether or not the previous call found jobs.
// LeaseDuration is the visibility timeout assigned on acquire and
// refreshed on heartbeat. HeartbeatInterval must be strictly less than
// LeaseDuration. TenantFilter, if non-nil, restricts this worker to
// leasing a single tenant's jobs.
type WorkerConfig struct {
	WorkerID          string
	Concurrency       int
	Queue             int
	BatchSize         int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	TenantFilter      *string
	Backoff           BackoffConfig
}

func (c *WorkerConfig) setDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.Queue <= 0 {
		c.Queue = c.Concurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = 30 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
}

// Worker coordinates leasing, dispatching, heartbeating, retrying and
// completing jobs, per spec.md §4.5.
//
// Worker implements an at-least-once processing model:
//
//  1. Periodically AcquireLease jobs from the LeaseManager.
//  2. Dispatch each to an independent task in a bounded worker pool.
//  3. StartJob (Leased -> Running), look up a Handler by job_type, and
//     invoke it.
//  4. In parallel, a single heartbeat task extends the lease of every
//     job currently in flight.
//  5. On handler success, CompleteJob. On failure, FailJob — which
//     returns the job to Queued or moves it to Dlq per its own
//     Attempt/MaxAttempts.
//
// Worker does not guarantee exactly-once delivery. Handlers must be
// idempotent.
//
// Worker has a strict lifecycle: Start may only be called once; Stop
// gracefully shuts down polling, the heartbeat task and the worker pool,
// waiting for in-flight handlers to finish or a timeout to elapse.
type Worker struct {
	lcBase
	leases   LeaseManager
	registry *Registry
	bus      EventBus // may be nil: publishing becomes a no-op

	pool          *internal.WorkerPool[*job.Job]
	pullTask      internal.TimerTask
	heartbeatTask internal.TimerTask

	log     *slog.Logger
	cfg     WorkerConfig
	backoff backoffCounter

	inflightMu sync.Mutex
	inflight   map[uuid.UUID]struct{}
}

// NewWorker creates a new Worker. The worker is not started
// automatically; call Start to begin processing.
func NewWorker(leases LeaseManager, registry *Registry, bus EventBus, cfg WorkerConfig, log *slog.Logger) *Worker {
	cfg.setDefaults()
	return &Worker{
		leases:   leases,
		registry: registry,
		bus:      bus,
		pool:     internal.NewWorkerPool[*job.Job](cfg.Concurrency, cfg.Queue, log),
		log:      log,
		cfg:      cfg,
		backoff:  backoffCounter{cfg.Backoff},
		inflight: make(map[uuid.UUID]struct{}),
	}
}

func (w *Worker) track(id uuid.UUID) {
	w.inflightMu.Lock()
	w.inflight[id] = struct{}{}
	w.inflightMu.Unlock()
}

func (w *Worker) untrack(id uuid.UUID) {
	w.inflightMu.Lock()
	delete(w.inflight, id)
	w.inflightMu.Unlock()
}

func (w *Worker) snapshotInflight() []uuid.UUID {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	ids := make([]uuid.UUID, 0, len(w.inflight))
	for id := range w.inflight {
		ids = append(ids, id)
	}
	return ids
}

func (w *Worker) publish(ctx context.Context, evt Event) {
	if w.bus == nil {
		return
	}
	if err := w.bus.Publish(ctx, evt); err != nil {
		w.log.Debug("event publish failed", "type", evt.Type, "job_id", evt.JobID, "err", err)
	}
}

func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.leases.AcquireLease(ctx, w.cfg.WorkerID, w.cfg.BatchSize, w.cfg.TenantFilter, w.cfg.LeaseDuration)
	if err != nil {
		w.log.Error("acquire lease failed", "err", err)
		return
	}
	for _, jb := range jobs {
		w.track(jb.ID)
		if !w.pool.Push(jb) {
			w.log.Debug("job push interrupted via shutdown", "id", jb.ID)
			w.untrack(jb.ID)
			return
		}
	}
}

func (w *Worker) heartbeat(ctx context.Context) {
	for _, id := range w.snapshotInflight() {
		if err := w.leases.ExtendLease(ctx, id, w.cfg.WorkerID, w.cfg.LeaseDuration); err != nil {
			if kind, ok := KindOf(err); ok && kind == LeaseLost {
				w.log.Warn("lease lost during heartbeat, abandoning job", "id", id)
				w.untrack(id)
				continue
			}
			w.log.Error("extend lease failed", "id", id, "err", err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, jb *job.Job) {
	defer w.untrack(jb.ID)

	started, err := w.leases.StartJob(ctx, jb.ID, w.cfg.WorkerID)
	if err != nil {
		if kind, ok := KindOf(err); ok && kind == LeaseLost {
			w.log.Warn("lease lost before start, abandoning job", "id", jb.ID)
			return
		}
		w.log.Error("start job failed", "id", jb.ID, "err", err)
		return
	}
	w.publish(ctx, Event{Type: EventStarted, JobID: started.ID, TenantID: started.TenantID, Status: job.Running, Timestamp: time.Now().UTC()})

	result := w.invoke(ctx, started)

	if result.Success {
		completed, err := w.leases.CompleteJob(ctx, jb.ID, w.cfg.WorkerID, result.Output)
		if err != nil {
			if kind, ok := KindOf(err); ok && kind == LeaseLost {
				w.log.Warn("lease lost before complete, not committing", "id", jb.ID)
				return
			}
			w.log.Error("complete job failed", "id", jb.ID, "err", err)
			return
		}
		w.publish(ctx, Event{Type: EventCompleted, JobID: completed.ID, TenantID: completed.TenantID, Status: completed.Status, Timestamp: time.Now().UTC()})
		return
	}

	backoff := w.backoff.next(started.Attempt)
	failed, err := w.leases.FailJob(ctx, jb.ID, w.cfg.WorkerID, result.Error, backoff)
	if err != nil {
		if kind, ok := KindOf(err); ok && kind == LeaseLost {
			w.log.Warn("lease lost before fail, not committing", "id", jb.ID)
			return
		}
		w.log.Error("fail job failed", "id", jb.ID, "err", err)
		return
	}
	if failed.Status == job.Dlq {
		w.publish(ctx, Event{Type: EventDLQ, JobID: failed.ID, TenantID: failed.TenantID, Status: failed.Status, Timestamp: time.Now().UTC(), Data: map[string]any{"error": result.Error}})
	} else {
		w.publish(ctx, Event{Type: EventFailed, JobID: failed.ID, TenantID: failed.TenantID, Status: failed.Status, Timestamp: time.Now().UTC(), Data: map[string]any{"error": result.Error}})
	}
}

func (w *Worker) invoke(ctx context.Context, jb *job.Job) (result Result) {
	jobType, ok := jb.JobType()
	if !ok {
		return noHandlerResult("")
	}
	h, ok := w.registry.Lookup(jobType)
	if !ok {
		return noHandlerResult(jobType)
	}
	jc := JobContext{
		JobID:       jb.ID,
		TenantID:    jb.TenantID,
		Attempt:     jb.Attempt,
		MaxAttempts: jb.MaxAttempts,
		Payload:     jb.Payload,
		LeaseOwner:  w.cfg.WorkerID,
	}

	// A panicking handler must still resolve through CompleteJob/FailJob
	// rather than unwind past them: WorkerPool's own recover only stops
	// the pool goroutine from dying, it does not run FailJob, which
	// would otherwise strand the job RUNNING until the next reaper
	// sweep and let a repeatedly-panicking handler hold it there
	// indefinitely instead of ever reaching DLQ.
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("handler panicked", "id", jb.ID, "job_type", jobType, "panic", r)
			result = Result{Success: false, Error: fmt.Sprintf("handler panicked: %v", r)}
		}
	}()
	return h(ctx, jc)
}

// Start begins background polling, dispatching and heartbeating.
//
// Start returns ErrDoubleStarted if the worker has already been
// started. The provided context controls cancellation of the worker:
// when ctx is canceled, polling and heartbeating stop and in-flight
// handlers receive a canceled context.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.tryStart(); err != nil {
		return err
	}
	w.pool.Start(ctx, w.handle)
	w.pullTask.Start(ctx, w.poll, w.cfg.PollInterval)
	w.heartbeatTask.Start(ctx, w.heartbeat, w.cfg.HeartbeatInterval)
	return nil
}

func (w *Worker) doStop() internal.DoneChan {
	first := w.pullTask.Stop()
	second := w.heartbeatTask.Stop()
	third := w.pool.Stop()
	return internal.Combine(internal.Combine(first, second), third)
}

// Stop initiates graceful shutdown: stop polling, stop heartbeating,
// cancel the worker pool, and wait for in-flight handlers to finish.
//
// If shutdown does not complete within timeout, ErrStopTimeout is
// returned; background goroutines may still be terminating. Stop
// returns ErrDoubleStopped if the worker is not running.
func (w *Worker) Stop(timeout time.Duration) error {
	return w.tryStop(timeout, w.doStop)
}
