// Package delivery implements the Task Generator & Scheduler and the
// Delivery Worker: decomposing an accepted order into atomic tasks,
// distributing their scheduled start times across the delivery window,
// and running the claim/dispatch/finalize loop that drives each task to
// a terminal state.
package delivery

import (
	"deliverycore/internal/store"
)

// updateProgress applies a finalization delta to an order's counters and
// derives its terminal status once Remains reaches 0: COMPLETED if no
// quantity failed permanently, FAILED if nothing was delivered, PARTIAL
// otherwise. It mutates o in place and returns whether the order has
// reached a terminal status.
func updateProgress(o *store.Order, deliveredDelta, remainsDelta, failedDelta int) bool {
	o.Delivered += deliveredDelta
	o.Remains += remainsDelta
	o.FailedPermanent += failedDelta

	if o.Remains > 0 {
		return false
	}
	switch {
	case o.FailedPermanent == 0:
		o.Status = store.OrderCompleted
	case o.Delivered == 0:
		o.Status = store.OrderFailed
	default:
		o.Status = store.OrderPartial
	}
	return true
}

// startExecution transitions a task from PENDING to EXECUTING under a
// worker, recording the claiming worker and the attempt's idempotency
// token. Callers must already hold a successful ClaimTask result; this
// only shapes the in-memory view consistently with that result.
func startExecution(t *store.Task, workerID string) {
	t.Status = store.TaskExecuting
	t.WorkerID = workerID
	t.IdempotencyToken = store.IdempotencyToken(t.OrderID, t.Sequence, t.Attempts)
}

// failExecution decides the next status for a task after a failed
// dispatch attempt: FAILED_RETRYING while attempts remain, otherwise
// FAILED_PERMANENT.
func failExecution(t *store.Task, errMsg string) store.TaskStatus {
	t.LastError = errMsg
	if t.Attempts < t.MaxAttempts {
		return store.TaskFailedRetrying
	}
	return store.TaskFailedPermanent
}
