package queue

import (
	"context"

	"github.com/corequeue/corequeue/job"
	"github.com/corequeue/corequeue/submission"
)

// Submitter defines the write-side entry point of the queue: idempotent
// job intake, per spec.md §4.2.
type Submitter interface {

	// Submit durably records req as a new Job, or returns the Job an
	// earlier request with the same (TenantID, IdempotencyKey) already
	// created.
	//
	// created is true only when this call inserted the row. When false,
	// the returned Job reflects whatever the first submission recorded —
	// its Payload, Priority and MaxAttempts are never overwritten by a
	// later, differing request for the same key.
	//
	// Before inserting, Submit consults Admission for req.TenantID. If
	// the tenant is at its concurrency cap, Submit returns an *Error
	// with Kind TenantAtCapacity and creates no row.
	//
	// req is normalized (submission.Request.Normalize) before
	// validation, so a zero MaxAttempts or Priority takes its default
	// rather than being rejected. Submit returns an *Error with Kind
	// InvalidArgument if, after normalization, IdempotencyKey is empty
	// or exceeds submission.MaxIdempotencyKeyBytes, or Priority is not
	// one of the four fixed bands.
	Submit(ctx context.Context, req submission.Request) (j *job.Job, created bool, err error)
}
