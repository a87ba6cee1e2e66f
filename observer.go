package queue

import (
	"context"

	"github.com/corequeue/corequeue/job"
	"github.com/google/uuid"
)

// ListPage describes a request for one page of a tenant's jobs, newest
// first by CreatedAt, per spec.md §6's list(tenant, status?, page,
// page_size) producer operation.
type ListPage struct {
	TenantID string
	// Status filters by job.Status. The zero value, job.Unknown, means
	// no filter.
	Status job.Status
	// Page is 1-indexed. Values less than 1 are treated as 1.
	Page int
	// PageSize bounds the number of jobs returned. Implementations may
	// clamp it to a maximum.
	PageSize int
}

// Observer provides read-only access to jobs stored in the queue.
//
// Observer does not modify job state and does not participate in
// visibility-timeout or lifecycle transitions. Methods return
// authoritative snapshots of storage state at the time of the call;
// mutating a returned Job does not affect the underlying queue.
type Observer interface {

	// Get returns the job identified by id.
	//
	// If no job with the given id exists, Get returns an *Error with
	// Kind NotFound. If tenantID is non-empty and does not match the
	// job's TenantID, Get returns an *Error with Kind Forbidden instead
	// of the job, so a caller outside its tenant never sees its contents.
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*job.Job, error)

	// List returns one page of jobs matching page, newest-first by
	// CreatedAt.
	List(ctx context.Context, page ListPage) ([]*job.Job, error)

	// Stats returns a count of jobs per Status for tenantID, including
	// queue depth (the Queued count).
	Stats(ctx context.Context, tenantID string) (map[job.Status]int64, error)
}
