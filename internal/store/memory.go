package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore holds in-memory state for orders, tasks and the proxy pool.
// It implements the Store interface and is safe for concurrent use; every
// method takes the single mutex for the duration of its critical section.
type MemoryStore struct {
	mu sync.Mutex

	orders map[string]*Order
	tasks  map[string]*Task
	// tasksByOrder preserves sequence order for deterministic listing.
	tasksByOrder map[string][]string

	idempotency map[string]string // userID|key -> orderID

	proxyNodes   map[string]*ProxyNode
	proxyMetrics map[string]*ProxyMetrics

	refundEvents   map[string]*RefundEvent // keyed by taskID
	refundedOrders map[string]bool         // first-write-wins guard
	balances       map[string]decimal.Decimal
	balanceTxns    []*BalanceTransaction
	anomalies      []*RefundAnomaly

	epochs map[string]int64
}

// NewMemoryStore initializes an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:         make(map[string]*Order),
		tasks:          make(map[string]*Task),
		tasksByOrder:   make(map[string][]string),
		idempotency:    make(map[string]string),
		proxyNodes:     make(map[string]*ProxyNode),
		proxyMetrics:   make(map[string]*ProxyMetrics),
		refundEvents:   make(map[string]*RefundEvent),
		refundedOrders: make(map[string]bool),
		balances:       make(map[string]decimal.Decimal),
		epochs:         make(map[string]int64),
	}
}

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("optimistic conflict")

// --- Order Operations ---

func (s *MemoryStore) CreateOrder(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.OrderID]; exists {
		return nil // generator idempotence: creating twice is a no-op
	}
	cp := *o
	s.orders[o.OrderID] = &cp
	if o.IdempotencyKey != "" {
		s.idempotency[o.UserID+"|"+o.IdempotencyKey] = o.OrderID
	}
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orderID, ok := s.idempotency[userID+"|"+key]
	if !ok {
		return nil, nil
	}
	o := s.orders[orderID]
	if o == nil {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (s *MemoryStore) UpdateOrderCounters(ctx context.Context, orderID string, deliveredDelta, remainsDelta, failedDelta int) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	o.Delivered += deliveredDelta
	o.Remains += remainsDelta
	o.FailedPermanent += failedDelta
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- Task Operations ---

func (s *MemoryStore) CreateTasks(ctx context.Context, tasks []*Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tasks) == 0 {
		return nil
	}
	orderID := tasks[0].OrderID
	if existing := s.tasksByOrder[orderID]; len(existing) > 0 {
		return nil // generator idempotence: regenerating is a no-op
	}
	for _, t := range tasks {
		cp := *t
		s.tasks[t.TaskID] = &cp
		s.tasksByOrder[orderID] = append(s.tasksByOrder[orderID], t.TaskID)
	}
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTasksByOrder(ctx context.Context, orderID string) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, id := range s.tasksByOrder[orderID] {
		cp := *s.tasks[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListEligibleTasks(ctx context.Context, now time.Time, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		eligible := (t.Status == TaskPending && !t.ScheduledAt.After(now)) ||
			(t.Status == TaskFailedRetrying && !t.RetryAfter.IsZero() && !t.RetryAfter.After(now))
		if eligible {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOrphanedTasks(ctx context.Context, olderThan time.Time, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		if t.Status == TaskExecuting && !t.ExecutionStartedAt.IsZero() && t.ExecutionStartedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) ListFailedPermanentTasks(ctx context.Context, orderID string) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, id := range s.tasksByOrder[orderID] {
		t := s.tasks[id]
		if t.Status == TaskFailedPermanent {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListDeadLetterTasks(ctx context.Context, limit int) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Task
	for _, t := range s.tasks {
		if t.Status == TaskFailedPermanent {
			cp := *t
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) ClaimTask(ctx context.Context, taskID string, expectedAttempts int, workerID string, now time.Time) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Attempts != expectedAttempts {
		return nil, ErrConflict
	}
	if t.Status != TaskPending && t.Status != TaskFailedRetrying {
		return nil, ErrConflict
	}
	t.Status = TaskExecuting
	t.ExecutionStartedAt = now
	t.WorkerID = workerID
	t.Attempts++
	t.IdempotencyToken = IdempotencyToken(t.OrderID, t.Sequence, t.Attempts)
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ReclaimOrphan(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != TaskExecuting {
		return nil // already reclaimed or finalized; no-op
	}
	t.Status = TaskPending
	t.WorkerID = ""
	t.ExecutionStartedAt = time.Time{}
	return nil
}

func (s *MemoryStore) FinalizeTask(ctx context.Context, taskID string, expectedStatus TaskStatus, update TaskUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != expectedStatus {
		return nil // already finalized by a concurrent/replayed call; idempotent no-op
	}
	t.Status = update.Status
	t.Attempts = update.Attempts
	t.LastError = update.LastError
	if update.ProxyNodeID != "" {
		t.ProxyNodeID = update.ProxyNodeID
	}
	if update.Quantity > 0 {
		t.Quantity = update.Quantity
	}
	t.RetryAfter = update.RetryAfter
	if update.Token != "" {
		t.IdempotencyToken = update.Token
	}
	if !update.ExecutedAt.IsZero() {
		t.ExecutedAt = update.ExecutedAt
	}
	return nil
}

// --- Proxy Registry Operations ---

func (s *MemoryStore) RegisterProxyNode(ctx context.Context, n *ProxyNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.proxyNodes[n.NodeID] = &cp
	s.proxyMetrics[n.NodeID] = &ProxyMetrics{NodeID: n.NodeID, SuccessRate: 1.0, WindowStart: time.Now()}
	return nil
}

func (s *MemoryStore) GetProxyNode(ctx context.Context, nodeID string) (*ProxyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.proxyNodes[nodeID]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) ListProxyNodes(ctx context.Context) ([]*ProxyNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ProxyNode, 0, len(s.proxyNodes))
	for _, n := range s.proxyNodes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) UpdateProxyNode(ctx context.Context, n *ProxyNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proxyNodes[n.NodeID]; !ok {
		return ErrNotFound
	}
	cp := *n
	s.proxyNodes[n.NodeID] = &cp
	return nil
}

func (s *MemoryStore) GetProxyMetrics(ctx context.Context, nodeID string) (*ProxyMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.proxyMetrics[nodeID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) SaveProxyMetrics(ctx context.Context, m *ProxyMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.proxyMetrics[m.NodeID] = &cp
	return nil
}

// --- Settlement & Ledger Operations ---

func (s *MemoryStore) InsertRefundEvent(ctx context.Context, e *RefundEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.refundEvents[e.TaskID]; exists {
		return false, nil
	}
	cp := *e
	s.refundEvents[e.TaskID] = &cp
	return true, nil
}

func (s *MemoryStore) ListRefundEvents(ctx context.Context, orderID string) ([]*RefundEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*RefundEvent
	for _, e := range s.refundEvents {
		if e.OrderID == orderID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertBalanceTransaction(ctx context.Context, orderID string, txn *BalanceTransaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refundedOrders[orderID] {
		return false, nil
	}
	before, ok := s.balances[txn.UserID]
	if !ok {
		before = decimal.Zero
	}
	txn.BalanceBefore = before
	txn.BalanceAfter = before.Add(txn.Amount)
	s.balances[txn.UserID] = txn.BalanceAfter
	cp := *txn
	s.balanceTxns = append(s.balanceTxns, &cp)
	s.refundedOrders[orderID] = true
	return true, nil
}

func (s *MemoryStore) GetUserBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[userID]
	if !ok {
		return decimal.Zero, nil
	}
	return b, nil
}

func (s *MemoryStore) InsertRefundAnomaly(ctx context.Context, a *RefundAnomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.anomalies = append(s.anomalies, &cp)
	return nil
}

func (s *MemoryStore) ListRefundAnomalies(ctx context.Context, orderID string) ([]*RefundAnomaly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*RefundAnomaly
	for _, a := range s.anomalies {
		if a.OrderID == orderID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- Coordination Operations ---

func (s *MemoryStore) IncrementDurableEpoch(ctx context.Context, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[resourceID]++
	return s.epochs[resourceID], nil
}

func (s *MemoryStore) GetDurableEpoch(ctx context.Context, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[resourceID], nil
}
