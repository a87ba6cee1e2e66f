// Command worker runs a queue.Worker process: it polls Postgres for
// leasable jobs, dispatches them to registered handlers, heartbeats
// in-flight leases, and publishes lifecycle events to an event bus.
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
	"github.com/corequeue/corequeue/eventbus/localbus"
	"github.com/corequeue/corequeue/eventbus/redisbus"
	"github.com/corequeue/corequeue/handlers"
	"github.com/corequeue/corequeue/store/postgres"

	"github.com/redis/go-redis/v9"
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

	bus := newEventBus(ctx, cfg, log)

	store := postgres.NewStore(pool, cfg.TenantConcurrencyLimit, bus, log)

	registry := queue.NewRegistry()
	registry.Register("echo", handlers.Echo)
	registry.Register("sleep", handlers.Sleep)
	registry.Register("http_request", handlers.HTTPRequest(nil))

	worker := queue.NewWorker(store, registry, bus, queue.WorkerConfig{
		WorkerID:          cfg.WorkerID,
		Concurrency:       cfg.Concurrency,
		BatchSize:         cfg.BatchSize,
		PollInterval:      cfg.PollInterval,
		LeaseDuration:     cfg.LeaseDuration,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, log)

	if err := worker.Start(ctx); err != nil {
		log.Error("start worker", "err", err)
		os.Exit(1)
	}
	log.Info("worker started", "worker_id", cfg.WorkerID, "concurrency", cfg.Concurrency)

	<-ctx.Done()
	log.Info("shutdown signal received, draining in-flight jobs")
	if err := worker.Stop(30 * time.Second); err != nil {
		log.Error("worker did not stop cleanly", "err", err)
		os.Exit(1)
	}
}

// newEventBus wires a redisbus.Bus when RedisURL is configured, and
// falls back to an in-process localbus.Bus otherwise. A worker is fully
// functional without either; losing the event bus never affects job
// state, only external visibility into it.
func newEventBus(ctx context.Context, cfg *config.Config, log *slog.Logger) queue.EventBus {
	if cfg.RedisURL == "" {
		return localbus.New(log)
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("parse redis url, falling back to localbus", "err", err)
		return localbus.New(log)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("connect to redis, falling back to localbus", "err", err)
		return localbus.New(log)
	}
	return redisbus.New(client, log)
}
