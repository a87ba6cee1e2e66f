// Package queue implements the coordination substrate of a durable,
// multi-tenant distributed job queue whose source of truth is a
// relational database.
//
// # Overview
//
// The package accepts jobs from many producers, distributes them to a
// fleet of stateless workers, guarantees at-least-once execution,
// tolerates worker crashes, and enforces per-tenant fairness through
// priority ordering and concurrency caps. It does not mandate a
// particular relational backend; store/postgres provides the reference
// implementation against PostgreSQL via pgx.
//
// # Delivery Semantics
//
// The queue provides at-least-once processing guarantees. A job may be
// delivered more than once if a worker crashes before completing it, a
// lease expires before completion, or a lease is lost to concurrent
// reclaiming. Handlers must therefore be idempotent.
//
// Visibility Timeout (Lease Model)
//
// When a job is leased, it transitions Queued -> Leased and receives a
// visibility timeout (LeaseExpiresAt). A worker then transitions it to
// Running and begins executing the matching Handler. While the lease is
// valid, the job is invisible to other workers' AcquireLease calls. The
// Worker extends the lease on a heartbeat interval strictly shorter than
// the lease duration while the handler runs. If the lease expires before
// completion, the Reaper returns the job to Queued so another worker may
// acquire it.
//
// # State Machine
//
//	Queued  -> Leased    (AcquireLease)
//	Leased  -> Running   (StartJob)
//	Leased  -> Queued    (Reaper, lease expired before StartJob)
//	Running -> Succeeded (CompleteJob)
//	Running -> Queued    (FailJob, attempt < max_attempts)
//	Running -> Dlq       (FailJob, attempt >= max_attempts)
//	Running -> Queued    (Reaper, lease expired mid-execution)
//	Dlq     -> Queued    (RetryFromDLQ)
//
// Succeeded and Dlq are terminal states, not retried unless explicitly
// requeued via RetryFromDLQ.
//
// # Retry Policy
//
// Retry behavior is controlled by BackoffConfig, consulted by Worker
// when a handler returns a Result with Success false. If Attempt has not reached
// MaxAttempts, the job is returned to Queued with ScheduledAt delayed by
// the computed backoff. Otherwise it moves to Dlq.
//
// # Worker
//
// Worker coordinates leasing, dispatching, retrying and completing
// jobs. It periodically polls AcquireLease, dispatches eligible jobs to
// a bounded worker pool, extends leases for in-flight jobs on a
// heartbeat tick, and applies the retry/DLQ policy on handler failure.
// Worker does not guarantee exactly-once delivery.
//
// # Reaper
//
// Reaper is a separate periodic component that reclaims jobs whose
// lease has expired — whether they are Leased (never reached Running) or
// Running (a worker crashed mid-execution) — returning them to Queued.
// It does not touch rows whose lease has not expired.
//
// # Interfaces
//
// The package defines:
//
//	Submitter    — idempotent intake: submission.Request -> job.Job
//	LeaseManager — acquire, extend, and resolve leases
//	Observer     — read-only inspection (Get, List, Stats)
//	Admission    — per-tenant concurrency gating
//	EventBus     — fire-and-forget lifecycle event fan-out
//	Service      — Submitter + Observer + Admission + RetryFromDLQ,
//	               the producer-facing surface cmd/queuectl binds to
//
// These interfaces let storage and transport backends be plugged in
// without coupling queue logic to a specific database or broker.
//
// # Concurrency Model
//
// Worker uses a bounded internal queue and a fixed-size worker pool
// (internal.WorkerPool). Leasing and processing are decoupled to smooth
// load. Shutdown is graceful: in-flight handlers are allowed to finish,
// subject to a configurable timeout.
//
// # Storage Expectations
//
// LeaseManager implementations must ensure atomic state transitions,
// durable persistence, and correct visibility-timeout handling via
// row-level locking (FOR UPDATE SKIP LOCKED on the lease scan,
// conditional UPDATE ... WHERE id = ? AND status = ? AND lease_owner = ?
// on every owner-scoped transition). No distributed consensus above the
// database is required.
package queue
