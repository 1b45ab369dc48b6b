package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store defines the methods required for a permanent storage backend.
// It abstracts over Postgres (durable) and an in-memory implementation
// used for tests and single-process deployments.
type Store interface {
	// Order Operations
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error
	// UpdateOrderCounters conditionally applies delivered/remains/failed-permanent
	// deltas. expectedStatus guards the update so replayed finalizations are
	// no-ops once the owning task has left its prior non-terminal status.
	UpdateOrderCounters(ctx context.Context, orderID string, deliveredDelta, remainsDelta, failedDelta int) (*Order, error)
	ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)

	// Task Operations
	CreateTasks(ctx context.Context, tasks []*Task) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
	ListTasksByOrder(ctx context.Context, orderID string) ([]*Task, error)
	ListEligibleTasks(ctx context.Context, now time.Time, limit int) ([]*Task, error)
	ListOrphanedTasks(ctx context.Context, olderThan time.Time, limit int) ([]*Task, error)
	ListFailedPermanentTasks(ctx context.Context, orderID string) ([]*Task, error)
	ListDeadLetterTasks(ctx context.Context, limit int) ([]*Task, error)

	// ClaimTask performs the conditional claim update: it succeeds only if
	// the task's current (task_id, attempts) still match expectedAttempts.
	ClaimTask(ctx context.Context, taskID string, expectedAttempts int, workerID string, now time.Time) (*Task, error)
	// ReclaimOrphan resets an EXECUTING task back to PENDING without
	// incrementing attempts.
	ReclaimOrphan(ctx context.Context, taskID string) error
	// FinalizeTask persists a terminal or retry transition for a task.
	// Succeeds only if the task's prior status is still the expected one
	// (replay safety).
	FinalizeTask(ctx context.Context, taskID string, expectedStatus TaskStatus, update TaskUpdate) error

	// Proxy Registry Operations
	RegisterProxyNode(ctx context.Context, node *ProxyNode) error
	GetProxyNode(ctx context.Context, nodeID string) (*ProxyNode, error)
	ListProxyNodes(ctx context.Context) ([]*ProxyNode, error)
	UpdateProxyNode(ctx context.Context, node *ProxyNode) error
	GetProxyMetrics(ctx context.Context, nodeID string) (*ProxyMetrics, error)
	SaveProxyMetrics(ctx context.Context, metrics *ProxyMetrics) error

	// Settlement & Ledger Operations
	InsertRefundEvent(ctx context.Context, event *RefundEvent) (inserted bool, err error)
	ListRefundEvents(ctx context.Context, orderID string) ([]*RefundEvent, error)
	// InsertBalanceTransaction appends a transaction and marks the order as
	// refunded, atomically and only on first successful pass.
	InsertBalanceTransaction(ctx context.Context, orderID string, txn *BalanceTransaction) (inserted bool, err error)
	GetUserBalance(ctx context.Context, userID string) (balance decimal.Decimal, err error)
	InsertRefundAnomaly(ctx context.Context, anomaly *RefundAnomaly) error
	ListRefundAnomalies(ctx context.Context, orderID string) ([]*RefundAnomaly, error)

	// Coordination Operations
	IncrementDurableEpoch(ctx context.Context, resourceID string) (int64, error)
	GetDurableEpoch(ctx context.Context, resourceID string) (int64, error)
}

// TaskUpdate carries the fields FinalizeTask may mutate in one write.
// Quantity is 0 when a finalization doesn't shrink the task (the
// common case); a partial-delivery finalization sets it to the
// undelivered shortfall.
type TaskUpdate struct {
	Status      TaskStatus
	Attempts    int
	LastError   string
	ProxyNodeID string
	RetryAfter  time.Time
	Token       string
	ExecutedAt  time.Time
	Quantity    int
}
