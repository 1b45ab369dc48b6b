package delivery

import (
	"context"
	"errors"
	"time"

	"deliverycore/internal/observability"
	"deliverycore/internal/store"
)

// ErrOptimisticConflict means ClaimTask's conditional update lost a race
// against another worker claiming the same task.
var ErrOptimisticConflict = errors.New("delivery: optimistic claim conflict")

// claimWithRetry attempts ClaimTask, retrying a bounded number of times
// on optimistic-concurrency loss with a short backoff before giving up
// and yielding the task back to the next poll cycle.
func claimWithRetry(ctx context.Context, backing store.Store, task *store.Task, workerID string, maxRetries int) (*store.Task, error) {
	b := claimRetryBackOff()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		claimed, err := backing.ClaimTask(ctx, task.TaskID, task.Attempts, workerID, time.Now())
		switch {
		case err == nil && claimed != nil:
			return claimed, nil
		case errors.Is(err, store.ErrConflict):
			observability.ClaimConflicts.Inc()
			lastErr = ErrOptimisticConflict
		case err != nil:
			return nil, err
		default:
			// claimed == nil, nil error: another worker's claim already
			// moved the task past this attempt count.
			return nil, ErrOptimisticConflict
		}

		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}
	return nil, lastErr
}
