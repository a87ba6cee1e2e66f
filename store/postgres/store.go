package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/job"
)

// Store is the Postgres-backed implementation of every core storage
// interface: queue.Submitter, queue.LeaseManager, queue.Observer,
// queue.Admission and queue.Reclaimer.
type Store struct {
	pool *pgxpool.Pool
	// tenantConcurrencyLimit is the max a tenant may hold in Leased or
	// Running state before Submit refuses new work with
	// queue.TenantAtCapacity. Zero means unbounded.
	tenantConcurrencyLimit int
	// bus publishes job.created and job.retried events: these happen
	// above the lease lifecycle Worker drives, so Store — the
	// orchestration point for Submit and RetryFromDLQ — publishes them
	// itself rather than leaving them for Worker to infer. May be nil.
	bus queue.EventBus
	log *slog.Logger
}

// NewStore wraps an already-configured pgxpool.Pool. Callers are
// responsible for the pool's lifecycle (Close) and for calling
// InitSchema before first use.
//
// tenantConcurrencyLimit is the per-tenant in-flight cap Submit
// enforces via CheckTenantConcurrency; pass 0 for no cap. bus may be
// nil, in which case publishing is a no-op.
func NewStore(pool *pgxpool.Pool, tenantConcurrencyLimit int, bus queue.EventBus, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{pool: pool, tenantConcurrencyLimit: tenantConcurrencyLimit, bus: bus, log: log}
}

func (s *Store) publish(ctx context.Context, evt queue.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Debug("event publish failed", "type", evt.Type, "job_id", evt.JobID, "err", err)
	}
}

const jobColumns = `id, tenant_id, idempotency_key, payload,
	status, priority, attempt, max_attempts,
	lease_owner, lease_expires_at, scheduled_at,
	created_at, updated_at, completed_at,
	last_error, result`

func scanJob(row pgx.Row) (*job.Job, error) {
	var j job.Job
	var status string
	var priority int32
	if err := row.Scan(
		&j.ID, &j.TenantID, &j.IdempotencyKey, &j.Payload,
		&status, &priority, &j.Attempt, &j.MaxAttempts,
		&j.LeaseOwner, &j.LeaseExpiresAt, &j.ScheduledAt,
		&j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
		&j.LastError, &j.Result,
	); err != nil {
		return nil, err
	}
	parsedStatus, err := job.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	j.Status = parsedStatus
	j.Priority = job.Priority(priority)
	return &j, nil
}

func scanJobs(rows pgx.Rows) ([]*job.Job, error) {
	defer rows.Close()
	var out []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// orderByPriorityThenAge ranks jobs by priority weight descending, then
// CreatedAt ascending (oldest first) within a band. The Priority enum's own integer values
// (Low=1 ... Critical=100) sort correctly as plain integers, so
// AcquireLease needs no CASE expression to translate them.
const orderByPriorityThenAge = `ORDER BY priority DESC, created_at ASC`
