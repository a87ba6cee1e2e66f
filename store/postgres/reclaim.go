package postgres

import (
	"context"

	queue "github.com/corequeue/corequeue"
)

// ReclaimExpiredLeases implements queue.Reclaimer. Both LEASED and
// RUNNING jobs are reclaimed: a worker can die between StartJob and a
// terminal transition just as easily as before StartJob, and either way
// the lease going stale is the only signal storage has.
func (s *Store) ReclaimExpiredLeases(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET
			status = 'QUEUED',
			lease_owner = NULL,
			lease_expires_at = NULL,
			updated_at = now()
		WHERE status IN ('LEASED', 'RUNNING') AND lease_expires_at < now()`,
	)
	if err != nil {
		return 0, wrapErr(queue.Infrastructure, err, "reclaim expired leases")
	}
	return tag.RowsAffected(), nil
}
