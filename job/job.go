package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job represents a unit of work managed by the queue storage.
//
// CreatedAt records when the job was initially submitted. UpdatedAt
// records the last state transition or modification and is monotonically
// non-decreasing per row (invariant 7 in spec.md §3).
//
// Status represents the current position in the lifecycle state machine.
// Attempt counts how many times the job has been pulled and started
// (incremented by StartJob, not AcquireLease). MaxAttempts bounds it.
//
// LeaseOwner and LeaseExpiresAt are non-nil exactly when Status is
// Leased or Running (invariants 3 and 4). ScheduledAt is the earliest
// time the job becomes eligible for leasing.
//
// Job instances are snapshots of storage state. Mutating fields in
// memory does not change the underlying queue row; transitions happen
// only through a LeaseManager implementation.
type Job struct {
	ID             uuid.UUID
	TenantID       string
	IdempotencyKey string
	Payload        json.RawMessage

	Status      Status
	Priority    Priority
	Attempt     uint32
	MaxAttempts uint32

	LeaseOwner     *string
	LeaseExpiresAt *time.Time
	ScheduledAt    time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	LastError *string
	Result    json.RawMessage
}

// JobType extracts the "job_type" discriminator the Handler Registry
// looks handlers up by. Payload is an opaque, handler-defined document;
// the core only ever inspects this one field of it.
//
// If Payload is not a JSON object or carries no "job_type" string
// field, JobType returns "" and ok is false.
func (j *Job) JobType() (jobType string, ok bool) {
	if len(j.Payload) == 0 {
		return "", false
	}
	var probe struct {
		JobType string `json:"job_type"`
	}
	if err := json.Unmarshal(j.Payload, &probe); err != nil {
		return "", false
	}
	if probe.JobType == "" {
		return "", false
	}
	return probe.JobType, true
}

// Owns reports whether workerID currently holds the job's lease. A job
// with no lease is owned by nobody.
func (j *Job) Owns(workerID string) bool {
	return j.LeaseOwner != nil && *j.LeaseOwner == workerID
}
