// Package postgres is the reference Job Store backend: it implements
// every core interface in the root queue package — Submitter,
// LeaseManager, Observer, Admission, Reclaimer — against a single
// "jobs" table via github.com/jackc/pgx/v5 and pgxpool.
//
// Every state transition is one conditional SQL statement; the number
// of rows it affects is the success signal, not a prior read followed
// by a write. AcquireLease relies on Postgres's FOR UPDATE SKIP LOCKED
// to let many workers dequeue concurrently without blocking on each
// other's row locks; the reaper's ReclaimExpiredLeases is a plain
// conditional UPDATE.
package postgres
