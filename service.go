package queue

import (
	"context"

	"github.com/corequeue/corequeue/job"
	"github.com/google/uuid"
)

// Service is the full producer-facing surface of the queue: everything
// a caller outside the worker/reaper process needs to submit jobs,
// inspect them, and intervene on the dead letter queue. It is the
// concrete counterpart of the abstract "Producer" boundary in spec.md
// §6, composed from the narrower interfaces storage backends implement
// independently.
//
// store/postgres.Store satisfies Service directly; cmd/queuectl binds
// it to a command-line tree.
type Service interface {
	Submitter
	Observer
	Admission

	// RetryFromDLQ is the one LeaseManager method a producer-facing
	// Service exposes; the rest of LeaseManager (AcquireLease, StartJob,
	// ExtendLease, CompleteJob, FailJob) is worker-internal.
	RetryFromDLQ(ctx context.Context, id uuid.UUID, reset bool) (*job.Job, error)
}
