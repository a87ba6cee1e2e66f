package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/job"
	"github.com/corequeue/corequeue/submission"
)

// Submit implements queue.Submitter. It normalizes and validates req,
// consults CheckTenantConcurrency, and then inserts the row, relying on
// the unique (tenant_id, idempotency_key) constraint to make concurrent
// duplicate submissions race-free: only one of two racing inserts for
// the same key wins; the loser re-reads the winner's row.
func (s *Store) Submit(ctx context.Context, req submission.Request) (*job.Job, bool, error) {
	req = req.Normalize()

	if req.IdempotencyKey == "" || len(req.IdempotencyKey) > submission.MaxIdempotencyKeyBytes {
		return nil, false, newErr(queue.InvalidArgument, "idempotency key must be 1-%d bytes", submission.MaxIdempotencyKeyBytes)
	}
	if !req.Priority.Valid() {
		return nil, false, newErr(queue.InvalidArgument, "invalid priority %d", req.Priority)
	}
	if req.MaxAttempts < 1 {
		return nil, false, newErr(queue.InvalidArgument, "max_attempts must be >= 1")
	}

	if s.tenantConcurrencyLimit > 0 {
		ok, err := s.CheckTenantConcurrency(ctx, req.TenantID, s.tenantConcurrencyLimit)
		if err != nil {
			return nil, false, wrapErr(queue.Infrastructure, err, "check tenant concurrency")
		}
		if !ok {
			return nil, false, newErr(queue.TenantAtCapacity, "tenant %s is at its concurrency cap", req.TenantID)
		}
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, tenant_id, idempotency_key, payload, status, priority, attempt, max_attempts, scheduled_at)
		 VALUES ($1, $2, $3, $4, 'QUEUED', $5, 0, $6, $7)
		 ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
		 RETURNING `+jobColumns,
		uuid.New(), req.TenantID, req.IdempotencyKey, req.Payload, int32(req.Priority), req.MaxAttempts, req.ScheduledAt,
	)
	j, err := scanJob(row)
	if err == nil {
		s.publish(ctx, queue.Event{Type: queue.EventCreated, JobID: j.ID, TenantID: j.TenantID, Status: j.Status, Timestamp: time.Now().UTC()})
		return j, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, wrapErr(queue.Infrastructure, err, "insert job")
	}

	// A row already exists for (tenant_id, idempotency_key); return it.
	existing := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE tenant_id = $1 AND idempotency_key = $2`,
		req.TenantID, req.IdempotencyKey,
	)
	j, err = scanJob(existing)
	if err != nil {
		return nil, false, wrapErr(queue.Infrastructure, err, "read existing job")
	}
	return j, false, nil
}
