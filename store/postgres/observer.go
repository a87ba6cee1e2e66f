package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/job"
)

// Get implements queue.Observer.
func (s *Store) Get(ctx context.Context, tenantID string, id uuid.UUID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, newErr(queue.NotFound, "job %s not found", id)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "get job")
	}
	if tenantID != "" && j.TenantID != tenantID {
		return nil, newErr(queue.Forbidden, "job %s does not belong to tenant %s", id, tenantID)
	}
	return j, nil
}

// List implements queue.Observer.
func (s *Store) List(ctx context.Context, page queue.ListPage) ([]*job.Job, error) {
	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := page.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}
	offset := (pageNum - 1) * pageSize

	var rows pgx.Rows
	var err error
	if page.Status == job.Unknown {
		rows, err = s.pool.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE tenant_id = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			page.TenantID, pageSize, offset,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE tenant_id = $1 AND status = $2
			 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
			page.TenantID, page.Status.String(), pageSize, offset,
		)
	}
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "list jobs")
	}
	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "scan listed jobs")
	}
	return jobs, nil
}

// Stats implements queue.Observer.
func (s *Store) Stats(ctx context.Context, tenantID string) (map[job.Status]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, count(*) FROM jobs WHERE tenant_id = $1 GROUP BY status`,
		tenantID,
	)
	if err != nil {
		return nil, wrapErr(queue.Infrastructure, err, "stats")
	}
	defer rows.Close()

	out := make(map[job.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrapErr(queue.Infrastructure, err, "scan stats row")
		}
		parsed, err := job.ParseStatus(status)
		if err != nil {
			return nil, wrapErr(queue.Infrastructure, err, "parse stats status")
		}
		out[parsed] = count
	}
	return out, rows.Err()
}
