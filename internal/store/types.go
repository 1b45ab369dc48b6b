package store

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the lifecycle states of an Order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderRunning   OrderStatus = "RUNNING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderPartial   OrderStatus = "PARTIAL"
	OrderFailed    OrderStatus = "FAILED"
	OrderRefunded  OrderStatus = "REFUNDED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// TaskStatus enumerates the lifecycle states of a Task.
type TaskStatus string

const (
	TaskPending         TaskStatus = "PENDING"
	TaskExecuting       TaskStatus = "EXECUTING"
	TaskCompleted       TaskStatus = "COMPLETED"
	TaskFailedRetrying  TaskStatus = "FAILED_RETRYING"
	TaskFailedPermanent TaskStatus = "FAILED_PERMANENT"
)

// Order represents one accepted customer request for N units of delivery.
type Order struct {
	OrderID             string          `json:"order_id" db:"order_id"`
	UserID              string          `json:"user_id" db:"user_id"`
	ServiceID           string          `json:"service_id" db:"service_id"`
	Quantity            int             `json:"quantity" db:"quantity"`
	PricePerUnit        decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	TargetRef           string          `json:"target_ref" db:"target_ref"`
	Region              string          `json:"region" db:"region"`
	Status              OrderStatus     `json:"status" db:"status"`
	Delivered           int             `json:"delivered" db:"delivered"`
	Remains             int             `json:"remains" db:"remains"`
	FailedPermanent     int             `json:"failed_permanent" db:"failed_permanent"`
	TaskBased           bool            `json:"task_based" db:"task_based"`
	IdempotencyKey      string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	StartedAt           time.Time       `json:"started_at" db:"started_at"`
	EstimatedCompletion time.Time       `json:"estimated_completion" db:"estimated_completion"`
	CompletedAt         time.Time       `json:"completed_at" db:"completed_at"`
}

// Task is an atomic delivery batch owned by exactly one Order.
type Task struct {
	TaskID             string     `json:"task_id" db:"task_id"`
	OrderID            string     `json:"order_id" db:"order_id"`
	Sequence           int        `json:"sequence" db:"sequence"`
	Quantity           int        `json:"quantity" db:"quantity"`
	Status             TaskStatus `json:"status" db:"status"`
	Attempts           int        `json:"attempts" db:"attempts"`
	MaxAttempts        int        `json:"max_attempts" db:"max_attempts"`
	LastError          string     `json:"last_error,omitempty" db:"last_error"`
	ProxyNodeID        string     `json:"proxy_node_id,omitempty" db:"proxy_node_id"`
	ScheduledAt        time.Time  `json:"scheduled_at" db:"scheduled_at"`
	RetryAfter         time.Time  `json:"retry_after,omitempty" db:"retry_after"`
	WorkerID           string     `json:"worker_id,omitempty" db:"worker_id"`
	ExecutionStartedAt time.Time  `json:"execution_started_at,omitempty" db:"execution_started_at"`
	ExecutedAt         time.Time  `json:"executed_at,omitempty" db:"executed_at"`
	IdempotencyToken   string     `json:"idempotency_token" db:"idempotency_token"`
}

// IdempotencyToken builds the {order-id}:{sequence}:{attempt} token for a task attempt.
func IdempotencyToken(orderID string, sequence, attempt int) string {
	return orderID + ":" + strconv.Itoa(sequence) + ":" + strconv.Itoa(attempt)
}

// ProxyTier orders outbound node cost/quality.
type ProxyTier int

const (
	TierDatacenter ProxyTier = iota
	TierISP
	TierTor
	TierResidential
	TierMobile
)

func (t ProxyTier) String() string {
	switch t {
	case TierDatacenter:
		return "DATACENTER"
	case TierISP:
		return "ISP"
	case TierTor:
		return "TOR"
	case TierResidential:
		return "RESIDENTIAL"
	case TierMobile:
		return "MOBILE"
	default:
		return "UNKNOWN"
	}
}

// ProxyOperationalStatus is the node's administrative status.
type ProxyOperationalStatus string

const (
	ProxyOnline      ProxyOperationalStatus = "ONLINE"
	ProxyOffline     ProxyOperationalStatus = "OFFLINE"
	ProxyMaintenance ProxyOperationalStatus = "MAINTENANCE"
	ProxyBanned      ProxyOperationalStatus = "BANNED"
	ProxyRateLimited ProxyOperationalStatus = "RATE_LIMITED"
)

// ProxyHealth is the derived tri-valued health tag.
type ProxyHealth string

const (
	HealthHealthy  ProxyHealth = "HEALTHY"
	HealthDegraded ProxyHealth = "DEGRADED"
	HealthOffline  ProxyHealth = "OFFLINE"
)

// ProxyNode is an outbound egress endpoint used to execute deliveries.
type ProxyNode struct {
	NodeID      string                 `json:"node_id" db:"node_id"`
	Provider    string                 `json:"provider" db:"provider"`
	Address     string                 `json:"address" db:"address"`
	Port        int                    `json:"port" db:"port"`
	Region      string                 `json:"region" db:"region"`
	Tier        ProxyTier              `json:"tier" db:"tier"`
	Capacity    int                    `json:"capacity" db:"capacity"`
	CurrentLoad int                    `json:"current_load" db:"current_load"`
	Status      ProxyOperationalStatus `json:"status" db:"status"`
	Health      ProxyHealth            `json:"health" db:"health"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// ProxyMetrics holds the rolling-window statistics for one node.
type ProxyMetrics struct {
	NodeID             string    `json:"node_id" db:"node_id"`
	TotalRequests      int64     `json:"total_requests" db:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests" db:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests" db:"failed_requests"`
	BannedRequests     int64     `json:"banned_requests" db:"banned_requests"`
	SuccessRate        float64   `json:"success_rate" db:"success_rate"`
	BanRate            float64   `json:"ban_rate" db:"ban_rate"`
	LatencyP50Ms       int64     `json:"latency_p50_ms" db:"latency_p50_ms"`
	LatencyP95Ms       int64     `json:"latency_p95_ms" db:"latency_p95_ms"`
	LatencyP99Ms       int64     `json:"latency_p99_ms" db:"latency_p99_ms"`
	ActiveConnections  int       `json:"active_connections" db:"active_connections"`
	PeakConnections    int       `json:"peak_connections" db:"peak_connections"`
	WindowStart        time.Time `json:"window_start" db:"window_start"`
}

// RefundSeverity classifies a Refund Anomaly.
type RefundSeverity string

const (
	SeverityInfo     RefundSeverity = "INFO"
	SeverityWarning  RefundSeverity = "WARNING"
	SeverityCritical RefundSeverity = "CRITICAL"
)

// RefundEvent is an append-only ledger entry, at most one per task.
type RefundEvent struct {
	TaskID        string          `json:"task_id" db:"task_id"`
	OrderID       string          `json:"order_id" db:"order_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	WorkerID      string          `json:"worker_id" db:"worker_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// BalanceTransactionType enumerates user-balance ledger entry kinds.
type BalanceTransactionType string

const (
	TxnDebit      BalanceTransactionType = "DEBIT"
	TxnCredit     BalanceTransactionType = "CREDIT"
	TxnRefund     BalanceTransactionType = "REFUND"
	TxnBonus      BalanceTransactionType = "BONUS"
	TxnAdjustment BalanceTransactionType = "ADJUSTMENT"
)

// BalanceTransaction is an append-only user-balance ledger entry.
type BalanceTransaction struct {
	TxnID          string                 `json:"txn_id" db:"txn_id"`
	UserID         string                 `json:"user_id" db:"user_id"`
	Amount         decimal.Decimal        `json:"amount" db:"amount"`
	BalanceBefore  decimal.Decimal        `json:"balance_before" db:"balance_before"`
	BalanceAfter   decimal.Decimal        `json:"balance_after" db:"balance_after"`
	Type           BalanceTransactionType `json:"type" db:"type"`
	Reason         string                 `json:"reason" db:"reason"`
	OrderID        string                 `json:"order_id,omitempty" db:"order_id"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// RefundAnomaly is a reconciliation artifact: inspected, never auto-corrected.
type RefundAnomaly struct {
	AnomalyID string          `json:"anomaly_id" db:"anomaly_id"`
	OrderID   string          `json:"order_id" db:"order_id"`
	Severity  RefundSeverity  `json:"severity" db:"severity"`
	Message   string          `json:"message" db:"message"`
	Delta     decimal.Decimal `json:"delta" db:"delta"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
