// Package config loads worker and reaper process configuration from
// environment variables over built-in defaults. Precedence: env vars >
// defaults, the same two-tier precedence Load follows, minus the
// config.json tier this project has no use for.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything a worker or reaper process needs to
// connect to storage and the event bus and to size its own behavior.
type Config struct {
	DatabaseURL string
	RedisURL    string // empty means use the in-process localbus instead

	WorkerID          string
	Concurrency       int
	BatchSize         int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration

	ReaperInterval time.Duration

	TenantConcurrencyLimit int
}

// Load returns a Config populated from environment variables, falling
// back to defaults for anything unset.
//
//	COREQUEUE_DATABASE_URL
//	COREQUEUE_REDIS_URL
//	COREQUEUE_WORKER_ID
//	COREQUEUE_CONCURRENCY
//	COREQUEUE_BATCH_SIZE
//	COREQUEUE_POLL_INTERVAL          (Go duration string, e.g. "1s")
//	COREQUEUE_LEASE_DURATION
//	COREQUEUE_HEARTBEAT_INTERVAL
//	COREQUEUE_REAPER_INTERVAL
//	COREQUEUE_TENANT_CONCURRENCY_LIMIT
func Load() *Config {
	cfg := &Config{
		DatabaseURL:            "postgres://localhost:5432/corequeue",
		WorkerID:               defaultWorkerID(),
		Concurrency:            10,
		BatchSize:              10,
		PollInterval:           time.Second,
		LeaseDuration:          30 * time.Second,
		HeartbeatInterval:      10 * time.Second,
		ReaperInterval:         10 * time.Second,
		TenantConcurrencyLimit: 0,
	}

	if v := os.Getenv("COREQUEUE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("COREQUEUE_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("COREQUEUE_WORKER_ID"); v != "" {
		cfg.WorkerID = v
	}
	if v, ok := envInt("COREQUEUE_CONCURRENCY"); ok {
		cfg.Concurrency = v
	}
	if v, ok := envInt("COREQUEUE_BATCH_SIZE"); ok {
		cfg.BatchSize = v
	}
	if v, ok := envDuration("COREQUEUE_POLL_INTERVAL"); ok {
		cfg.PollInterval = v
	}
	if v, ok := envDuration("COREQUEUE_LEASE_DURATION"); ok {
		cfg.LeaseDuration = v
	}
	if v, ok := envDuration("COREQUEUE_HEARTBEAT_INTERVAL"); ok {
		cfg.HeartbeatInterval = v
	}
	if v, ok := envDuration("COREQUEUE_REAPER_INTERVAL"); ok {
		cfg.ReaperInterval = v
	}
	if v, ok := envInt("COREQUEUE_TENANT_CONCURRENCY_LIMIT"); ok {
		cfg.TenantConcurrencyLimit = v
	}

	return cfg
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker-unknown"
	}
	return host
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
