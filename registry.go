package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// JobContext is what a worker hands a Handler for one execution
// attempt, per spec.md §4.5.
type JobContext struct {
	JobID       uuid.UUID
	TenantID    string
	Attempt     uint32
	MaxAttempts uint32
	Payload     json.RawMessage
	LeaseOwner  string
}

// Result is what a Handler returns. Output is only meaningful when
// Success is true; Error is only meaningful when it is false.
type Result struct {
	Success bool
	Output  json.RawMessage
	Error   string
}

// Handler is a user-provided function processing one job attempt.
//
// Handlers must be idempotent: the queue provides at-least-once
// delivery, and a job may execute more than once if a worker crashes or
// its lease expires before completion. A handler should not retry,
// lock, or hold state beyond what JobContext provides.
//
// A handler must not panic; Worker recovers a panic at the point it
// invokes the handler and converts it to a failing Result, so the job
// still reaches CompleteJob/FailJob. A recovered panic loses any
// partial progress bookkeeping the handler itself was relying on.
type Handler func(ctx context.Context, jc JobContext) Result

// Registry is a process-wide map from job_type to Handler, built once
// at startup. It replaces the decorator/reflection-based registration
// some queue frameworks use: every entry is an explicit Register call.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds jobType to h. Registering the same jobType twice
// replaces the previous handler; this is intentional (it lets startup
// code override a default registration), not an error.
func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

// Lookup returns the handler registered for jobType, and false if none
// is registered.
func (r *Registry) Lookup(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// noHandlerResult returns the Result a Worker produces for a job whose job_type has
// no registered Handler, per spec.md §4.5 step 3.
func noHandlerResult(jobType string) Result {
	return Result{Success: false, Error: fmt.Sprintf("no handler registered for job_type %q", jobType)}
}
