package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	queue "github.com/corequeue/corequeue"
)

type sleepPayload struct {
	DurationMS int `json:"duration_ms"`
}

// Sleep blocks for the duration_ms field of the job's payload, honoring
// ctx cancellation. It exists to exercise a worker's handling of
// long-running jobs and of a lease expiring mid-execution: set
// duration_ms longer than the worker's lease duration to watch the
// reaper reclaim the job out from under it.
func Sleep(ctx context.Context, jc queue.JobContext) queue.Result {
	var p sleepPayload
	if err := json.Unmarshal(jc.Payload, &p); err != nil {
		return queue.Result{Success: false, Error: fmt.Sprintf("invalid payload: %v", err)}
	}
	timer := time.NewTimer(time.Duration(p.DurationMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return queue.Result{Success: true}
	case <-ctx.Done():
		return queue.Result{Success: false, Error: ctx.Err().Error()}
	}
}
