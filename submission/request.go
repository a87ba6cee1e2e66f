package submission

import (
	"encoding/json"
	"time"

	"github.com/corequeue/corequeue/job"
)

// MaxIdempotencyKeyBytes is the longest idempotency key a Submitter
// accepts, matching the 255-byte bound in spec.md §6.
const MaxIdempotencyKeyBytes = 255

// Request is what a producer hands to a Submitter. It is the
// not-yet-durable counterpart of job.Job: a Submitter turns a Request
// into a Job row (or returns the row an earlier, identical Request
// already created).
type Request struct {
	TenantID       string
	IdempotencyKey string
	Payload        json.RawMessage

	// MaxAttempts defaults to 3 if zero.
	MaxAttempts uint32
	// Priority defaults to job.Normal if zero.
	Priority job.Priority
	// ScheduledAt defaults to time.Now() if zero. A future value delays
	// eligibility for leasing.
	ScheduledAt time.Time
}

// Normalize applies the defaults spec.md §6 specifies for an
// omitted field and returns the request ready for validation.
func (r Request) Normalize() Request {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.Priority == 0 {
		r.Priority = job.Normal
	}
	if r.ScheduledAt.IsZero() {
		r.ScheduledAt = time.Now().UTC()
	}
	return r
}
