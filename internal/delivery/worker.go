package delivery

import (
	"context"
	"fmt"
	"log"
	"time"

	"deliverycore/internal/observability"
	"deliverycore/internal/proxy"
	"deliverycore/internal/store"
	"deliverycore/internal/streaming"
	"deliverycore/internal/timeline"
)

// Worker runs the poll/claim/dispatch/finalize loop for eligible tasks.
// At most one logical worker per order is required for correctness, but
// any number may run concurrently claiming disjoint tasks — the
// conditional update inside ClaimTask is the only coordination needed.
type Worker struct {
	backing    store.Store
	selector   *proxy.Selector
	registry   *proxy.Registry
	dispatcher Dispatcher
	cfg        WorkerConfig
	metrics    WorkerMetrics
	sem        chan struct{}
	limiter    *proxy.NodeLimiter
	timeline   *timeline.Store
	publisher  streaming.Publisher
}

func NewWorker(backing store.Store, selector *proxy.Selector, registry *proxy.Registry, dispatcher Dispatcher, cfg WorkerConfig) *Worker {
	return &Worker{
		backing:    backing,
		selector:   selector,
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.Concurrency),
	}
}

// Metrics exposes the worker's local counters.
func (w *Worker) Metrics() *WorkerMetrics { return &w.metrics }

// ID returns the worker's configured identity.
func (w *Worker) ID() string { return w.cfg.WorkerID }

// SetLimiter installs a per-node rate limiter consulted after node
// selection and before dispatch. Nil (the default) disables the check.
func (w *Worker) SetLimiter(limiter *proxy.NodeLimiter) { w.limiter = limiter }

// SetTimeline installs an audit trail recorder. Nil (the default) skips
// recording.
func (w *Worker) SetTimeline(t *timeline.Store) { w.timeline = t }

// SetPublisher installs a best-effort lifecycle event publisher. Nil
// (the default) skips publishing.
func (w *Worker) SetPublisher(p streaming.Publisher) { w.publisher = p }

func (w *Worker) recordStage(taskID, orderID, stage, nodeID string) {
	if w.timeline == nil {
		return
	}
	w.timeline.Record(timeline.Event{TaskID: taskID, OrderID: orderID, Stage: stage, NodeID: nodeID})
}

// Run polls for eligible tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	observability.WorkerStart.WithLabelValues(w.cfg.WorkerID).Set(float64(time.Now().Unix()))
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	tasks, err := w.backing.ListEligibleTasks(ctx, time.Now(), w.cfg.ClaimBatchSize)
	if err != nil {
		log.Printf("worker %s: list eligible tasks: %v", w.cfg.WorkerID, err)
		return
	}
	observability.TaskQueueDepth.Set(float64(len(tasks)))

	for _, task := range tasks {
		task := task
		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		go func() {
			defer func() { <-w.sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("worker %s: task %s panicked: %v", w.cfg.WorkerID, task.TaskID, r)
				}
			}()
			w.processTask(ctx, task)
		}()
	}
}

func (w *Worker) processTask(ctx context.Context, task *store.Task) {
	w.metrics.ClaimStarted()
	observability.ActiveClaims.Inc()
	defer func() {
		w.metrics.ClaimFinished()
		observability.ActiveClaims.Dec()
	}()

	claimed, err := claimWithRetry(ctx, w.backing, task, w.cfg.WorkerID, w.cfg.MaxClaimRetries)
	if err != nil {
		return // lost the race or transient store error; leave for next poll
	}
	startExecution(claimed, w.cfg.WorkerID)
	w.metrics.TaskProcessed()
	observability.TasksProcessed.Inc()
	w.recordStage(claimed.TaskID, claimed.OrderID, "CLAIMED", "")

	node, err := w.selector.Select(ctx, proxy.SelectionRequest{TaskID: claimed.TaskID})
	if err != nil {
		w.finalizeRetryOrFail(ctx, claimed, "", "no available node: "+err.Error())
		return
	}
	if w.limiter != nil {
		if allowed, _ := w.limiter.Reserve(node.NodeID); !allowed {
			w.finalizeRetryOrFail(ctx, claimed, node.NodeID, "rate limited: node "+node.NodeID+" at capacity")
			return
		}
	}

	if err := w.registry.IncrementLoad(ctx, node.NodeID); err != nil {
		log.Printf("worker %s: increment load on %s: %v", w.cfg.WorkerID, node.NodeID, err)
	}
	defer func() {
		if err := w.registry.DecrementLoad(ctx, node.NodeID); err != nil {
			log.Printf("worker %s: decrement load on %s: %v", w.cfg.WorkerID, node.NodeID, err)
		}
	}()

	targetRef := ""
	if order, err := w.backing.GetOrder(ctx, claimed.OrderID); err == nil && order != nil {
		targetRef = order.TargetRef
	}

	w.recordStage(claimed.TaskID, claimed.OrderID, "DISPATCHED", node.NodeID)
	start := time.Now()
	result, err := w.dispatcher.Dispatch(ctx, DispatchRequest{
		TaskID:           claimed.TaskID,
		IdempotencyToken: claimed.IdempotencyToken,
		TargetRef:        targetRef,
		Quantity:         claimed.Quantity,
		NodeAddress:      node.Address,
		NodePort:         node.Port,
	})
	observability.DispatchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		w.finalizeRetryOrFail(ctx, claimed, node.NodeID, err.Error())
		return
	}

	switch result.Outcome {
	case DispatchSuccess:
		w.finalizeSuccess(ctx, claimed, node.NodeID, result)
	case DispatchPermanent:
		w.finalizePermanent(ctx, claimed, node.NodeID, result.ErrorMessage)
	default:
		w.finalizeRetryOrFail(ctx, claimed, node.NodeID, result.ErrorMessage)
	}
}

// finalizeSuccess handles a DispatchSuccess outcome. A result reporting
// fewer plays than the task requested is a partial delivery, not a full
// completion: the delivered portion is credited to the order and the
// shortfall is routed back through the retry/permanent path on the same
// task so it gets another attempt (or a refund, once attempts run out).
func (w *Worker) finalizeSuccess(ctx context.Context, task *store.Task, nodeID string, result DispatchResult) {
	delivered := result.PlaysDelivered
	if delivered < 0 {
		delivered = 0
	}
	if delivered < task.Quantity {
		w.finalizePartial(ctx, task, nodeID, delivered)
		return
	}
	update := store.TaskUpdate{
		Status:      store.TaskCompleted,
		Attempts:    task.Attempts,
		ProxyNodeID: nodeID,
		ExecutedAt:  time.Now(),
	}
	if err := w.backing.FinalizeTask(ctx, task.TaskID, store.TaskExecuting, update); err != nil {
		log.Printf("worker %s: finalize success for %s: %v", w.cfg.WorkerID, task.TaskID, err)
		return
	}
	w.metrics.TaskCompleted()
	observability.TasksCompleted.Inc()
	w.recordStage(task.TaskID, task.OrderID, "FINALIZED", nodeID)
	w.completeOrder(ctx, task.OrderID, delivered, 0, 0)
}

// finalizePartial credits the delivered portion of a short dispatch to
// the order immediately, shrinks the task down to the undelivered
// shortfall, and runs that shortfall through the same attempts-remaining
// decision as any other failed attempt.
func (w *Worker) finalizePartial(ctx context.Context, task *store.Task, nodeID string, delivered int) {
	shortfall := task.Quantity - delivered
	errMsg := fmt.Sprintf("partial delivery: %d of %d", delivered, task.Quantity)
	task.Quantity = shortfall
	nextStatus := failExecution(task, errMsg)

	update := store.TaskUpdate{
		Status:      nextStatus,
		Attempts:    task.Attempts,
		LastError:   errMsg,
		ProxyNodeID: nodeID,
		Quantity:    shortfall,
	}
	if nextStatus == store.TaskFailedRetrying {
		update.RetryAfter = time.Now().Add(nextRetryDelay(update.Attempts, w.cfg.MaxRetryInterval))
	}
	if err := w.backing.FinalizeTask(ctx, task.TaskID, store.TaskExecuting, update); err != nil {
		log.Printf("worker %s: finalize partial delivery for %s: %v", w.cfg.WorkerID, task.TaskID, err)
		return
	}
	w.recordStage(task.TaskID, task.OrderID, "FINALIZED", nodeID)

	if nextStatus == store.TaskFailedRetrying {
		w.metrics.TaskRetried()
		observability.TaskRetries.Inc()
		w.completeOrder(ctx, task.OrderID, delivered, 0, 0)
		return
	}
	w.metrics.TaskFailedPermanent()
	observability.TasksFailedPermanent.Inc()
	w.completeOrder(ctx, task.OrderID, delivered, shortfall, 0)
}

func (w *Worker) finalizePermanent(ctx context.Context, task *store.Task, nodeID, errMsg string) {
	update := store.TaskUpdate{
		Status:      store.TaskFailedPermanent,
		Attempts:    task.Attempts,
		LastError:   errMsg,
		ProxyNodeID: nodeID,
	}
	if err := w.backing.FinalizeTask(ctx, task.TaskID, store.TaskExecuting, update); err != nil {
		log.Printf("worker %s: finalize permanent-failure for %s: %v", w.cfg.WorkerID, task.TaskID, err)
		return
	}
	w.metrics.TaskFailedPermanent()
	observability.TasksFailedPermanent.Inc()
	w.recordStage(task.TaskID, task.OrderID, "FINALIZED", nodeID)
	w.completeOrder(ctx, task.OrderID, 0, task.Quantity, 0)
}

func (w *Worker) finalizeRetryOrFail(ctx context.Context, task *store.Task, nodeID, errMsg string) {
	// task.Attempts already reflects this attempt: ClaimTask incremented it
	// when the task moved PENDING/FAILED_RETRYING -> EXECUTING.
	nextStatus := failExecution(task, errMsg)
	update := store.TaskUpdate{
		Status:      nextStatus,
		Attempts:    task.Attempts,
		LastError:   errMsg,
		ProxyNodeID: nodeID,
	}
	if nextStatus == store.TaskFailedRetrying {
		update.RetryAfter = time.Now().Add(nextRetryDelay(update.Attempts, w.cfg.MaxRetryInterval))
	}
	if err := w.backing.FinalizeTask(ctx, task.TaskID, store.TaskExecuting, update); err != nil {
		log.Printf("worker %s: finalize retry/fail for %s: %v", w.cfg.WorkerID, task.TaskID, err)
		return
	}
	w.recordStage(task.TaskID, task.OrderID, "FINALIZED", nodeID)
	if nextStatus == store.TaskFailedRetrying {
		w.metrics.TaskRetried()
		observability.TaskRetries.Inc()
		return
	}
	w.metrics.TaskFailedPermanent()
	observability.TasksFailedPermanent.Inc()
	w.completeOrder(ctx, task.OrderID, 0, task.Quantity, 0)
}

// completeOrder applies the delivery outcome to the owning order's
// counters. delivered/failedPermanent are deltas; remains always shrinks
// by their sum, since a task leaving EXECUTING always leaves "remains".
// The store only applies the counter deltas; this derives the resulting
// terminal status and persists it in a second call when reached.
func (w *Worker) completeOrder(ctx context.Context, orderID string, delivered, failedPermanent, _ int) {
	remainsDelta := -(delivered + failedPermanent)
	order, err := w.backing.UpdateOrderCounters(ctx, orderID, delivered, remainsDelta, failedPermanent)
	if err != nil {
		log.Printf("worker %s: update order counters for %s: %v", w.cfg.WorkerID, orderID, err)
		return
	}
	if order == nil {
		return
	}
	if terminal := updateProgress(order, 0, 0, 0); terminal {
		if err := w.backing.UpdateOrderStatus(ctx, orderID, order.Status); err != nil {
			log.Printf("worker %s: update order status for %s: %v", w.cfg.WorkerID, orderID, err)
			return
		}
		if w.publisher != nil {
			w.publisher.Publish(ctx, "order.completed", map[string]interface{}{
				"order_id":         orderID,
				"status":           string(order.Status),
				"delivered":        order.Delivered,
				"failed_permanent": order.FailedPermanent,
			})
		}
	}
}
