package handlers

import (
	"context"

	queue "github.com/corequeue/corequeue"
)

// Echo returns the job's own payload as its result. It is useful for
// smoke-testing a worker deployment end to end without any external
// side effect.
func Echo(ctx context.Context, jc queue.JobContext) queue.Result {
	return queue.Result{Success: true, Output: jc.Payload}
}
