// Command reaper runs a queue.Reaper process: it periodically reclaims
// jobs whose lease expired without the owning worker renewing or
// completing them, returning them to Queued.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	queue "github.com/corequeue/corequeue"
	"github.com/corequeue/corequeue/config"
	"github.com/corequeue/corequeue/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.InitSchema(ctx, pool); err != nil {
		log.Error("init schema", "err", err)
		os.Exit(1)
	}

	// The reaper only reclaims expired leases back to Queued; it never
	// creates or retries jobs, so it has no job.created/job.retried
	// events to publish.
	store := postgres.NewStore(pool, cfg.TenantConcurrencyLimit, nil, log)

	reaper := queue.NewReaper(store, queue.ReaperConfig{Interval: cfg.ReaperInterval}, log)
	if err := reaper.Start(ctx); err != nil {
		log.Error("start reaper", "err", err)
		os.Exit(1)
	}
	log.Info("reaper started", "interval", cfg.ReaperInterval)

	<-ctx.Done()
	log.Info("shutdown signal received")
	if err := reaper.Stop(10 * time.Second); err != nil {
		log.Error("reaper did not stop cleanly", "err", err)
		os.Exit(1)
	}
}
