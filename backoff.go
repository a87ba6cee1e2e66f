package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig shapes the delay Worker requests via FailJob when a
// handler fails and the job still has attempts remaining. The
// retry-vs-DLQ decision itself is the store's: it compares the job's own
// Attempt against its own MaxAttempts (set at submission), not against
// anything in this config.
type BackoffConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultBackoffConfig mirrors common exponential-backoff defaults: a
// 1s initial interval doubling up to a 5-minute ceiling, with 20%
// jitter to avoid thundering-herd retries across tenants.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval:     time.Second,
		MaxInterval:         5 * time.Minute,
		Multiplier:          2,
		RandomizationFactor: 0.2,
	}
}

type backoffCounter struct {
	BackoffConfig
}

// next computes the delay before a job that has just failed its
// attempt'th attempt becomes eligible again.
func (bc *backoffCounter) next(attempt uint32) time.Duration {
	if attempt == 0 {
		attempt = 1
	}
	exp := float64(bc.InitialInterval) * math.Pow(bc.Multiplier, float64(attempt-1))
	if bc.MaxInterval > 0 && exp > float64(bc.MaxInterval) {
		exp = float64(bc.MaxInterval)
	}
	if bc.RandomizationFactor > 0 {
		delta := bc.RandomizationFactor * exp
		minExp := exp - delta
		maxExp := exp + delta
		exp = minExp + rand.Float64()*(maxExp-minExp)
	}
	return time.Duration(exp)
}
