package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/job"
)

// AcquireLease implements queue.LeaseManager. It is the one query that
// could not be carried over from the teacher's sqlite-backed puller:
// FOR UPDATE SKIP LOCKED lets concurrent callers each claim a disjoint
// set of up to batchSize rows without blocking on one another. The
// returned jobs are ordered by priority descending, then CreatedAt
// ascending.
func (s *Store) AcquireLease(ctx context.Context, workerID string, batchSize int, tenantFilter *string, leaseDuration time.Duration) ([]*job.Job, error) {
	owner := workerID
	expiresAt := time.Now().Add(leaseDuration)

	rows, err := s.pool.Query(ctx,
		`UPDATE jobs SET
			status = 'LEASED',
			lease_owner = $1,
			lease_expires_at = $2,
			updated_at = now()
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = 'QUEUED'
				AND scheduled_at <= now()
				AND ($3::text IS NULL OR tenant_id = $3)
			`+orderByPriorityThenAge+`
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		owner, expiresAt, tenantFilter, batchSize,
	)
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "acquire lease")
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "scan leased jobs")
	}
	// RETURNING does not preserve the subquery's ORDER BY.
	sort.SliceStable(jobs, func(a, b int) bool {
		if jobs[a].Priority != jobs[b].Priority {
			return jobs[a].Priority > jobs[b].Priority
		}
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs, nil
}

// StartJob implements queue.LeaseManager.
func (s *Store) StartJob(ctx context.Context, id uuid.UUID, workerID string) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET
			status = 'RUNNING',
			attempt = attempt + 1,
			updated_at = now()
		WHERE id = $1 AND status = 'LEASED' AND lease_owner = $2
		RETURNING `+jobColumns,
		id, workerID,
	)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, newErr(queue.LeaseLost, "job %s is no longer leased by %s", id, workerID)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "start job")
	}
	return j, nil
}

// ExtendLease implements queue.LeaseManager.
func (s *Store) ExtendLease(ctx context.Context, id uuid.UUID, workerID string, leaseDuration time.Duration) error {
	expiresAt := time.Now().Add(leaseDuration)
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET lease_expires_at = $1, updated_at = now()
		 WHERE id = $2 AND lease_owner = $3 AND status IN ('LEASED', 'RUNNING')`,
		expiresAt, id, workerID,
	)
	if err != nil {
		return wrapErr(queue.Infrastructure, err, "extend lease")
	}
	if tag.RowsAffected() == 0 {
		return newErr(queue.LeaseLost, "job %s is no longer leased by %s", id, workerID)
	}
	return nil
}

// CompleteJob implements queue.LeaseManager.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID, workerID string, result []byte) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET
			status = 'SUCCEEDED',
			result = $1,
			completed_at = now(),
			lease_owner = NULL,
			lease_expires_at = NULL,
			updated_at = now()
		WHERE id = $2 AND status = 'RUNNING' AND lease_owner = $3
		RETURNING `+jobColumns,
		result, id, workerID,
	)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, newErr(queue.LeaseLost, "job %s is not running under %s", id, workerID)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "complete job")
	}
	return j, nil
}

// FailJob implements queue.LeaseManager. It first attempts the retry
// path (attempt < max_attempts); if that affects no row because
// attempts are exhausted, it falls back to the DLQ path. A LeaseLost
// row-count-zero on both attempts means the caller no longer owns the
// job, not that it ran out of attempts.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, workerID string, lastError string, backoff time.Duration) (*job.Job, error) {
	retryAt := time.Now().Add(backoff)
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET
			status = 'QUEUED',
			scheduled_at = $1,
			last_error = $2,
			lease_owner = NULL,
			lease_expires_at = NULL,
			updated_at = now()
		WHERE id = $3 AND status = 'RUNNING' AND lease_owner = $4 AND attempt < max_attempts
		RETURNING `+jobColumns,
		retryAt, lastError, id, workerID,
	)
	j, err := scanJob(row)
	if err == nil {
		return j, nil
	}
	if err != pgx.ErrNoRows {
		return nil, wrapErr(queue.Infrastructure, err, "fail job (retry path)")
	}

	row = s.pool.QueryRow(ctx,
		`UPDATE jobs SET
			status = 'DLQ',
			last_error = $1,
			completed_at = now(),
			lease_owner = NULL,
			lease_expires_at = NULL,
			updated_at = now()
		WHERE id = $2 AND status = 'RUNNING' AND lease_owner = $3
		RETURNING `+jobColumns,
		lastError, id, workerID,
	)
	j, err = scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, newErr(queue.LeaseLost, "job %s is not running under %s", id, workerID)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "fail job (dlq path)")
	}
	return j, nil
}

// RetryFromDLQ implements queue.LeaseManager. Besides returning the job
// to Queued, it clears last_error and completed_at: a retried job is no
// longer terminal and its prior failure message and completion time no
// longer describe its current state.
func (s *Store) RetryFromDLQ(ctx context.Context, id uuid.UUID, reset bool) (*job.Job, error) {
	query := `UPDATE jobs SET
			status = 'QUEUED',
			scheduled_at = now(),
			last_error = NULL,
			completed_at = NULL,
			lease_owner = NULL,
			lease_expires_at = NULL,
			updated_at = now()`
	if reset {
		query += `, attempt = 0`
	}
	query += ` WHERE id = $1 AND status = 'DLQ' RETURNING ` + jobColumns

	row := s.pool.QueryRow(ctx, query, id)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		exists, checkErr := s.exists(ctx, id)
		if checkErr != nil {
			return nil, wrapErr(queue.Infrastructure, checkErr, "check job existence")
		}
		if !exists {
			return nil, newErr(queue.NotFound, "job %s not found", id)
		}
		return nil, newErr(queue.Conflict, "job %s is not in DLQ", id)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "retry from dlq")
	}
	s.publish(ctx, queue.Event{Type: queue.EventRetried, JobID: j.ID, TenantID: j.TenantID, Status: j.Status, Timestamp: time.Now().UTC()})
	return j, nil
}

func (s *Store) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// CheckTenantConcurrency implements queue.Admission.
func (s *Store) CheckTenantConcurrency(ctx context.Context, tenantID string, max int) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM jobs WHERE tenant_id = $1 AND status IN ('LEASED', 'RUNNING')`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return false, wrapErr(queue.Infrastructure, err, "check tenant concurrency")
	}
	return count < max, nil
}
