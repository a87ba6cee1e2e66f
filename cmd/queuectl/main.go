// Command queuectl is an operator CLI for submitting and inspecting
// jobs against a running queue deployment: submit, get, list, retry and
// stats.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/eventbus/redisbus"
	"github.com/corequeue/corequeue/job"
	"github.com/corequeue/corequeue/store/postgres"
	"github.com/corequeue/corequeue/submission"
)

var databaseURL, redisURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "queuectl",
		Short: "Operate a corequeue deployment",
		Long:  "queuectl submits, inspects and retries jobs against a corequeue Postgres store.",
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("COREQUEUE_DATABASE_URL"), "Postgres connection string")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", os.Getenv("COREQUEUE_REDIS_URL"), "optional Redis URL to publish job.created/job.retried events to")

	rootCmd.AddCommand(submitCmd(), getCmd(), listCmd(), retryCmd(), statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore connects a short-lived pgxpool.Pool for a single CLI
// invocation. queuectl is not a long-running process and does not go
// through config.Load; its only settings are the two flags above. When
// --redis-url is set, Submit
// and RetryFromDLQ publish job.created/job.retried to the same bus a
// worker process would use, so external subscribers see operator-driven
// changes too, not only worker-driven ones.
func openStore(ctx context.Context) (*postgres.Store, *pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("--database-url (or COREQUEUE_DATABASE_URL) is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log := slog.Default()
	var bus queue.EventBus
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		bus = redisbus.New(redis.NewClient(opts), log)
	}
	return postgres.NewStore(pool, 0, bus, log), pool, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jobView is the CLI-facing rendering of a job.Job: job.Job's fields
// carry no json tags since the core package never serializes one
// directly, so queuectl maps to a shape with explicit tags instead.
type jobView struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       string          `json:"tenant_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	Priority       string          `json:"priority"`
	Attempt        uint32          `json:"attempt"`
	MaxAttempts    uint32          `json:"max_attempts"`
	LeaseOwner     *string         `json:"lease_owner,omitempty"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	LastError      *string         `json:"last_error,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
}

func newJobView(j *job.Job) jobView {
	return jobView{
		ID:             j.ID,
		TenantID:       j.TenantID,
		IdempotencyKey: j.IdempotencyKey,
		Payload:        j.Payload,
		Status:         j.Status.String(),
		Priority:       j.Priority.String(),
		Attempt:        j.Attempt,
		MaxAttempts:    j.MaxAttempts,
		LeaseOwner:     j.LeaseOwner,
		ScheduledAt:    j.ScheduledAt,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		CompletedAt:    j.CompletedAt,
		LastError:      j.LastError,
		Result:         j.Result,
	}
}

func submitCmd() *cobra.Command {
	var tenant, idempotencyKey, payload, priority string
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			p := job.Normal
			if priority != "" {
				p, err = job.ParsePriority(priority)
				if err != nil {
					return err
				}
			}

			j, created, err := store.Submit(ctx, submission.Request{
				TenantID:       tenant,
				IdempotencyKey: idempotencyKey,
				Payload:        json.RawMessage(payload),
				MaxAttempts:    uint32(maxAttempts),
				Priority:       p,
			})
			if err != nil {
				return err
			}
			view := newJobView(j)
			return printJSON(struct {
				Created bool `json:"created"`
				jobView
			}{Created: created, jobView: view})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key (required)")
	cmd.Flags().StringVar(&payload, "payload", "{}", "job payload as a JSON document, must include job_type")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, NORMAL, HIGH or CRITICAL (default NORMAL)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "maximum delivery attempts before DLQ")
	cmd.MarkFlagRequired("tenant")
	cmd.MarkFlagRequired("idempotency-key")
	return cmd
}

func getCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Get a job by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			j, err := store.Get(ctx, tenant, id)
			if err != nil {
				return err
			}
			return printJSON(newJobView(j))
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id used to scope and authorize the lookup")
	return cmd
}

func listCmd() *cobra.Command {
	var tenant, status string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			var st job.Status
			if status != "" {
				st, err = job.ParseStatus(status)
				if err != nil {
					return err
				}
			}
			jobs, err := store.List(ctx, queue.ListPage{
				TenantID: tenant,
				Status:   st,
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			views := make([]jobView, len(jobs))
			for i, j := range jobs {
				views[i] = newJobView(j)
			}
			return printJSON(views)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (QUEUED, LEASED, RUNNING, SUCCEEDED, DLQ)")
	cmd.Flags().IntVar(&page, "page", 1, "1-indexed page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "jobs per page")
	cmd.MarkFlagRequired("tenant")
	return cmd
}

func retryCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Requeue a job from the dead letter queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}
			j, err := store.RetryFromDLQ(ctx, id, reset)
			if err != nil {
				return err
			}
			return printJSON(newJobView(j))
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "reset attempt count to 0")
	return cmd
}

func statsCmd() *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per status for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			counts, err := store.Stats(ctx, tenant)
			if err != nil {
				return err
			}
			out := make(map[string]int64, len(counts))
			for status, n := range counts {
				out[status.String()] = n
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	cmd.MarkFlagRequired("tenant")
	return cmd
}
