package queue

import (
	"context"
	"time"

	"github.com/corequeue/corequeue/job"
	"github.com/google/uuid"
)

// LeaseManager defines the read-write contract for acquiring jobs and
// driving them through the state machine in spec.md §4.3, §4.4.
//
// LeaseManager provides visibility-timeout semantics: AcquireLease
// transitions Queued jobs to Leased; while leased, a job is invisible to
// other AcquireLease calls until the lease expires or a terminal
// transition is recorded. The queue provides at-least-once delivery;
// handlers must be idempotent.
type LeaseManager interface {

	// AcquireLease selects up to batchSize Queued jobs whose
	// ScheduledAt has passed (and whose TenantID matches tenantFilter,
	// if non-nil) and atomically transitions them to Leased, ordered by
	// priority weight descending, then CreatedAt ascending.
	//
	// Implementations must use FOR UPDATE SKIP LOCKED (or an equivalent
	// non-blocking locked read) so concurrent callers do not contend for
	// the same rows. AcquireLease itself never increments Attempt —
	// that happens in StartJob.
	//
	// An empty result is not an error; the caller should back off for
	// pollInterval before calling again.
	AcquireLease(ctx context.Context, workerID string, batchSize int, tenantFilter *string, leaseDuration time.Duration) ([]*job.Job, error)

	// StartJob transitions a Leased job owned by workerID to Running,
	// incrementing Attempt. If the job is no longer Leased or is no
	// longer owned by workerID (lease lost, e.g. to the Reaper), StartJob
	// returns an *Error with Kind LeaseLost and the caller must abandon
	// the job silently.
	StartJob(ctx context.Context, id uuid.UUID, workerID string) (*job.Job, error)

	// ExtendLease extends the visibility timeout of a Leased or Running
	// job owned by workerID to now + leaseDuration. If the job is no
	// longer owned by workerID, ExtendLease returns an *Error with Kind
	// LeaseLost; the caller must stop treating the job as in-flight and
	// must not later call CompleteJob or FailJob for it.
	ExtendLease(ctx context.Context, id uuid.UUID, workerID string, leaseDuration time.Duration) error

	// CompleteJob transitions a Running job owned by workerID to
	// Succeeded, recording result and CompletedAt. If the job is not
	// Running under workerID, CompleteJob returns an *Error with Kind
	// LeaseLost and has no effect — the cost of at-least-once is a
	// possible duplicate, never a lost completion.
	CompleteJob(ctx context.Context, id uuid.UUID, workerID string, result []byte) (*job.Job, error)

	// FailJob transitions a Running job owned by workerID according to
	// spec.md §4.3: to Queued (with ScheduledAt delayed by backoff) if
	// Attempt < MaxAttempts, or to Dlq (with CompletedAt set) if
	// Attempt >= MaxAttempts. lastError is recorded either way. If the
	// job is not Running under workerID, FailJob returns an *Error with
	// Kind LeaseLost and has no effect.
	FailJob(ctx context.Context, id uuid.UUID, workerID string, lastError string, backoff time.Duration) (*job.Job, error)

	// RetryFromDLQ transitions a Dlq job back to Queued, available
	// immediately. If reset is true, Attempt is reset to 0; otherwise it
	// is left unchanged. RetryFromDLQ returns an *Error with Kind
	// Conflict if the job is not currently Dlq, or Kind NotFound if it
	// does not exist.
	RetryFromDLQ(ctx context.Context, id uuid.UUID, reset bool) (*job.Job, error)
}
