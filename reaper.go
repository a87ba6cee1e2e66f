package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/corequeue/corequeue/internal"
)

// Reclaimer reclaims jobs whose lease has expired without the owning
// worker extending or completing it, per spec.md §4.6.
//
// Implementations must treat both Leased and Running as reclaimable:
// a worker may crash after StartJob but before the handler returns, and
// a Running job with an expired lease is just as abandoned as one still
// waiting to be started.
type Reclaimer interface {

	// ReclaimExpiredLeases atomically moves every job whose LeaseExpiresAt
	// is in the past back to Queued, clearing LeaseOwner and
	// LeaseExpiresAt, and returns the number of jobs reclaimed.
	//
	// A reclaimed job's Attempt is not incremented and its history is not
	// otherwise altered: from the next worker's perspective it is
	// indistinguishable from a job that was never leased, aside from
	// having a non-zero Attempt already recorded for a previous, abandoned
	// try.
	ReclaimExpiredLeases(ctx context.Context) (int64, error)
}

// ReaperConfig controls how often a Reaper sweeps for abandoned leases.
type ReaperConfig struct {
	Interval time.Duration
}

func (c *ReaperConfig) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
}

// Reaper periodically reclaims jobs abandoned by crashed or partitioned
// workers, per spec.md §4.6.
//
// Unlike the lease-acquisition query, which only ever considers Queued
// jobs, Reaper is the sole place expired Leased/Running jobs are
// returned to circulation. Without it, a worker that dies mid-handler
// would strand its jobs forever.
//
// Reaper never deletes rows; retention and row destruction are left to
// an external policy outside this package.
//
// Reaper has the same strict lifecycle as Worker: Start may only be
// called once, and Stop waits for the in-flight sweep to finish or a
// timeout to elapse.
type Reaper struct {
	lcBase
	reclaimer Reclaimer
	task      internal.TimerTask
	log       *slog.Logger
	interval  time.Duration
}

// NewReaper creates a new Reaper. The reaper is not started
// automatically; call Start to begin sweeping.
func NewReaper(reclaimer Reclaimer, cfg ReaperConfig, log *slog.Logger) *Reaper {
	cfg.setDefaults()
	return &Reaper{
		reclaimer: reclaimer,
		log:       log,
		interval:  cfg.Interval,
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	count, err := r.reclaimer.ReclaimExpiredLeases(ctx)
	if err != nil {
		r.log.Error("error while reclaiming expired leases", "error", err)
		return
	}
	if count > 0 {
		r.log.Info("reclaimed expired leases", "count", count)
	}
}

// Start begins periodic sweeping for abandoned leases.
//
// Start returns ErrDoubleStarted if the reaper has already been
// started. The provided context controls cancellation of the
// background sweep task.
func (r *Reaper) Start(ctx context.Context) error {
	if err := r.tryStart(); err != nil {
		return err
	}
	r.task.Start(ctx, r.sweep, r.interval)
	return nil
}

// Stop terminates the background sweep task.
//
// Stop waits until the current sweep finishes or timeout elapses. If
// shutdown does not complete within timeout, ErrStopTimeout is
// returned. Stop returns ErrDoubleStopped if the reaper is not running.
func (r *Reaper) Stop(timeout time.Duration) error {
	return r.tryStop(timeout, r.task.Stop)
}
