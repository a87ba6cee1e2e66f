package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the jobs table and its four required indexes if they
// do not already exist, per spec.md §3.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               UUID PRIMARY KEY,
	tenant_id        TEXT NOT NULL,
	idempotency_key  TEXT NOT NULL,
	payload          JSONB NOT NULL,

	status           TEXT NOT NULL,
	priority         INTEGER NOT NULL,
	attempt          INTEGER NOT NULL DEFAULT 0,
	max_attempts     INTEGER NOT NULL,

	lease_owner      TEXT,
	lease_expires_at TIMESTAMPTZ,
	scheduled_at     TIMESTAMPTZ NOT NULL,

	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ,

	last_error       TEXT,
	result           JSONB,

	CONSTRAINT jobs_tenant_idempotency_key UNIQUE (tenant_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS jobs_lease_acquire_idx
	ON jobs (status, scheduled_at)
	WHERE status = 'QUEUED';

CREATE INDEX IF NOT EXISTS jobs_reaper_idx
	ON jobs (status, lease_expires_at)
	WHERE status IN ('LEASED', 'RUNNING');

CREATE INDEX IF NOT EXISTS jobs_tenant_status_idx
	ON jobs (tenant_id, status);

CREATE INDEX IF NOT EXISTS jobs_tenant_created_idx
	ON jobs (tenant_id, created_at DESC);
`

// InitSchema creates the jobs table and its indexes if they do not
// already exist. It is idempotent and safe to call on every process
// startup, mirroring the teacher's sql.InitDB.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
