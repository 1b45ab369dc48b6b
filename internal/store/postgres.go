package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store using a PostgreSQL backend via pgx.
//
// Schema (managed by migrations maintained outside this package):
//   orders(order_id PK, user_id, service_id, quantity, price_per_unit,
//     target_ref, region, status, delivered, remains, failed_permanent,
//     task_based, idempotency_key, created_at, started_at,
//     estimated_completion, completed_at)
//     unique(user_id, idempotency_key)
//   order_tasks(task_id PK, order_id, sequence, quantity, status, attempts,
//     max_attempts, last_error, proxy_node_id, scheduled_at, retry_after,
//     worker_id, execution_started_at, executed_at, idempotency_token)
//     unique(order_id, sequence), unique(idempotency_token)
//   proxy_nodes(node_id PK, provider, address, port, region, tier,
//     capacity, current_load, status, health, created_at, updated_at)
//     unique(address, port)
//   proxy_metrics(node_id PK references proxy_nodes, ...)
//   refund_events(task_id PK, order_id, user_id, quantity, amount,
//     price_per_unit, worker_id, created_at)
//   refund_issued_orders(order_id PK) -- first-write-wins settlement guard
//   balance_transactions(txn_id PK, user_id, amount, balance_before,
//     balance_after, type, reason, order_id, created_at)
//   user_balances(user_id PK, balance)
//   refund_anomalies(anomaly_id PK, order_id, severity, message, delta,
//     created_at)
//   durable_epochs(resource_id PK, epoch)
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore initializes a new PostgresStore with a connection pool
// tuned for the worker fan-out this core drives (§4.4 bounded concurrency).
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 50
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// --- Order Operations ---

func (s *PostgresStore) CreateOrder(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (order_id, user_id, service_id, quantity, price_per_unit,
			target_ref, region, status, delivered, remains, failed_permanent,
			task_based, idempotency_key, created_at, started_at, estimated_completion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15, $16)
		ON CONFLICT (order_id) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		o.OrderID, o.UserID, o.ServiceID, o.Quantity, o.PricePerUnit,
		o.TargetRef, o.Region, o.Status, o.Delivered, o.Remains, o.FailedPermanent,
		o.TaskBased, o.IdempotencyKey, o.CreatedAt, o.StartedAt, o.EstimatedCompletion,
	)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	query := `
		SELECT order_id, user_id, service_id, quantity, price_per_unit, target_ref,
			region, status, delivered, remains, failed_permanent, task_based,
			COALESCE(idempotency_key, ''), created_at, started_at, estimated_completion, completed_at
		FROM orders WHERE order_id = $1
	`
	return scanOrder(s.pool.QueryRow(ctx, query, orderID))
}

func (s *PostgresStore) GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	query := `
		SELECT order_id, user_id, service_id, quantity, price_per_unit, target_ref,
			region, status, delivered, remains, failed_permanent, task_based,
			COALESCE(idempotency_key, ''), created_at, started_at, estimated_completion, completed_at
		FROM orders WHERE user_id = $1 AND idempotency_key = $2
	`
	return scanOrder(s.pool.QueryRow(ctx, query, userID, key))
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.OrderID, &o.UserID, &o.ServiceID, &o.Quantity, &o.PricePerUnit, &o.TargetRef,
		&o.Region, &o.Status, &o.Delivered, &o.Remains, &o.FailedPermanent, &o.TaskBased,
		&o.IdempotencyKey, &o.CreatedAt, &o.StartedAt, &o.EstimatedCompletion, &o.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE order_id = $2`, status, orderID)
	return err
}

func (s *PostgresStore) UpdateOrderCounters(ctx context.Context, orderID string, deliveredDelta, remainsDelta, failedDelta int) (*Order, error) {
	query := `
		UPDATE orders SET delivered = delivered + $1, remains = remains + $2,
			failed_permanent = failed_permanent + $3
		WHERE order_id = $4
		RETURNING order_id, user_id, service_id, quantity, price_per_unit, target_ref,
			region, status, delivered, remains, failed_permanent, task_based,
			COALESCE(idempotency_key, ''), created_at, started_at, estimated_completion, completed_at
	`
	return scanOrder(s.pool.QueryRow(ctx, query, deliveredDelta, remainsDelta, failedDelta, orderID))
}

func (s *PostgresStore) ListOrdersByStatus(ctx context.Context, status OrderStatus) ([]*Order, error) {
	query := `
		SELECT order_id, user_id, service_id, quantity, price_per_unit, target_ref,
			region, status, delivered, remains, failed_permanent, task_based,
			COALESCE(idempotency_key, ''), created_at, started_at, estimated_completion, completed_at
		FROM orders WHERE status = $1
	`
	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- Task Operations ---

func (s *PostgresStore) CreateTasks(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO order_tasks (task_id, order_id, sequence, quantity, status,
			attempts, max_attempts, scheduled_at, idempotency_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id, sequence) DO NOTHING
	`
	for _, t := range tasks {
		if _, err := tx.Exec(ctx, query, t.TaskID, t.OrderID, t.Sequence, t.Quantity,
			t.Status, t.Attempts, t.MaxAttempts, t.ScheduledAt, t.IdempotencyToken); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var retryAfter, execStarted, executedAt *time.Time
	err := row.Scan(
		&t.TaskID, &t.OrderID, &t.Sequence, &t.Quantity, &t.Status, &t.Attempts,
		&t.MaxAttempts, &t.LastError, &t.ProxyNodeID, &t.ScheduledAt, &retryAfter,
		&t.WorkerID, &execStarted, &executedAt, &t.IdempotencyToken,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if retryAfter != nil {
		t.RetryAfter = *retryAfter
	}
	if execStarted != nil {
		t.ExecutionStartedAt = *execStarted
	}
	if executedAt != nil {
		t.ExecutedAt = *executedAt
	}
	return &t, nil
}

const taskColumns = `task_id, order_id, sequence, quantity, status, attempts, max_attempts,
	COALESCE(last_error, ''), COALESCE(proxy_node_id, ''), scheduled_at, retry_after,
	COALESCE(worker_id, ''), execution_started_at, executed_at, idempotency_token`

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM order_tasks WHERE task_id = $1`
	return scanTask(s.pool.QueryRow(ctx, query, taskID))
}

func (s *PostgresStore) ListTasksByOrder(ctx context.Context, orderID string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM order_tasks WHERE order_id = $1 ORDER BY sequence`
	return queryTasks(ctx, s.pool, query, orderID)
}

func (s *PostgresStore) ListEligibleTasks(ctx context.Context, now time.Time, limit int) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM order_tasks
		WHERE (status = 'PENDING' AND scheduled_at <= $1)
		   OR (status = 'FAILED_RETRYING' AND retry_after IS NOT NULL AND retry_after <= $1)
		ORDER BY scheduled_at ASC
		LIMIT $2
	`
	return queryTasks(ctx, s.pool, query, now, limit)
}

func (s *PostgresStore) ListOrphanedTasks(ctx context.Context, olderThan time.Time, limit int) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM order_tasks
		WHERE status = 'EXECUTING' AND execution_started_at < $1
		LIMIT $2
	`
	return queryTasks(ctx, s.pool, query, olderThan, limit)
}

func (s *PostgresStore) ListFailedPermanentTasks(ctx context.Context, orderID string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM order_tasks WHERE order_id = $1 AND status = 'FAILED_PERMANENT'`
	return queryTasks(ctx, s.pool, query, orderID)
}

func (s *PostgresStore) ListDeadLetterTasks(ctx context.Context, limit int) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM order_tasks WHERE status = 'FAILED_PERMANENT' LIMIT $1`
	return queryTasks(ctx, s.pool, query, limit)
}

func queryTasks(ctx context.Context, pool *pgxpool.Pool, query string, args ...interface{}) ([]*Task, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClaimTask is the sole concurrency primitive on a task row: the UPDATE's
// WHERE clause is the compare-and-swap. Exactly one of two racing workers
// will affect a row and see it come back in RETURNING.
func (s *PostgresStore) ClaimTask(ctx context.Context, taskID string, expectedAttempts int, workerID string, now time.Time) (*Task, error) {
	query := `
		UPDATE order_tasks SET
			status = 'EXECUTING',
			execution_started_at = $1,
			worker_id = $2,
			attempts = attempts + 1,
			idempotency_token = order_id || ':' || sequence || ':' || (attempts + 1)
		WHERE task_id = $3 AND attempts = $4 AND status IN ('PENDING', 'FAILED_RETRYING')
		RETURNING ` + taskColumns
	t, err := scanTask(s.pool.QueryRow(ctx, query, now, workerID, taskID, expectedAttempts))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrConflict
	}
	return t, nil
}

func (s *PostgresStore) ReclaimOrphan(ctx context.Context, taskID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE order_tasks SET status = 'PENDING', worker_id = NULL, execution_started_at = NULL
		WHERE task_id = $1 AND status = 'EXECUTING'
	`, taskID)
	return err
}

func (s *PostgresStore) FinalizeTask(ctx context.Context, taskID string, expectedStatus TaskStatus, update TaskUpdate) error {
	query := `
		UPDATE order_tasks SET
			status = $1, attempts = $2, last_error = $3,
			proxy_node_id = COALESCE(NULLIF($4, ''), proxy_node_id),
			retry_after = NULLIF($5, '0001-01-01 00:00:00+00'::timestamptz),
			idempotency_token = COALESCE(NULLIF($6, ''), idempotency_token),
			executed_at = NULLIF($7, '0001-01-01 00:00:00+00'::timestamptz),
			quantity = COALESCE(NULLIF($8, 0), quantity)
		WHERE task_id = $9 AND status = $10
	`
	_, err := s.pool.Exec(ctx, query,
		update.Status, update.Attempts, update.LastError, update.ProxyNodeID,
		update.RetryAfter, update.Token, update.ExecutedAt, update.Quantity, taskID, expectedStatus)
	return err // affecting zero rows is a valid idempotent no-op, not an error
}

// --- Proxy Registry Operations ---

func (s *PostgresStore) RegisterProxyNode(ctx context.Context, n *ProxyNode) error {
	query := `
		INSERT INTO proxy_nodes (node_id, provider, address, port, region, tier,
			capacity, current_load, status, health, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, NOW(), NOW())
		ON CONFLICT (node_id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, n.NodeID, n.Provider, n.Address, n.Port,
		n.Region, n.Tier, n.Capacity, n.Status, n.Health); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO proxy_metrics (node_id, success_rate, window_start)
		VALUES ($1, 1.0, NOW())
		ON CONFLICT (node_id) DO NOTHING
	`, n.NodeID)
	return err
}

const proxyColumns = `node_id, provider, address, port, region, tier, capacity,
	current_load, status, health, created_at, updated_at`

func scanProxyNode(row pgx.Row) (*ProxyNode, error) {
	var n ProxyNode
	err := row.Scan(&n.NodeID, &n.Provider, &n.Address, &n.Port, &n.Region, &n.Tier,
		&n.Capacity, &n.CurrentLoad, &n.Status, &n.Health, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PostgresStore) GetProxyNode(ctx context.Context, nodeID string) (*ProxyNode, error) {
	return scanProxyNode(s.pool.QueryRow(ctx, `SELECT `+proxyColumns+` FROM proxy_nodes WHERE node_id = $1`, nodeID))
}

func (s *PostgresStore) ListProxyNodes(ctx context.Context) ([]*ProxyNode, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+proxyColumns+` FROM proxy_nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProxyNode
	for rows.Next() {
		n, err := scanProxyNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateProxyNode(ctx context.Context, n *ProxyNode) error {
	query := `
		UPDATE proxy_nodes SET provider = $1, address = $2, port = $3, region = $4,
			tier = $5, capacity = $6, current_load = $7, status = $8, health = $9, updated_at = NOW()
		WHERE node_id = $10
	`
	_, err := s.pool.Exec(ctx, query, n.Provider, n.Address, n.Port, n.Region, n.Tier,
		n.Capacity, n.CurrentLoad, n.Status, n.Health, n.NodeID)
	return err
}

func (s *PostgresStore) GetProxyMetrics(ctx context.Context, nodeID string) (*ProxyMetrics, error) {
	query := `
		SELECT node_id, total_requests, successful_requests, failed_requests, banned_requests,
			success_rate, ban_rate, latency_p50_ms, latency_p95_ms, latency_p99_ms,
			active_connections, peak_connections, window_start
		FROM proxy_metrics WHERE node_id = $1
	`
	var m ProxyMetrics
	err := s.pool.QueryRow(ctx, query, nodeID).Scan(
		&m.NodeID, &m.TotalRequests, &m.SuccessfulRequests, &m.FailedRequests, &m.BannedRequests,
		&m.SuccessRate, &m.BanRate, &m.LatencyP50Ms, &m.LatencyP95Ms, &m.LatencyP99Ms,
		&m.ActiveConnections, &m.PeakConnections, &m.WindowStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) SaveProxyMetrics(ctx context.Context, m *ProxyMetrics) error {
	query := `
		INSERT INTO proxy_metrics (node_id, total_requests, successful_requests, failed_requests,
			banned_requests, success_rate, ban_rate, latency_p50_ms, latency_p95_ms,
			latency_p99_ms, active_connections, peak_connections, window_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (node_id) DO UPDATE SET
			total_requests = EXCLUDED.total_requests,
			successful_requests = EXCLUDED.successful_requests,
			failed_requests = EXCLUDED.failed_requests,
			banned_requests = EXCLUDED.banned_requests,
			success_rate = EXCLUDED.success_rate,
			ban_rate = EXCLUDED.ban_rate,
			latency_p50_ms = EXCLUDED.latency_p50_ms,
			latency_p95_ms = EXCLUDED.latency_p95_ms,
			latency_p99_ms = EXCLUDED.latency_p99_ms,
			active_connections = EXCLUDED.active_connections,
			peak_connections = EXCLUDED.peak_connections
	`
	_, err := s.pool.Exec(ctx, query, m.NodeID, m.TotalRequests, m.SuccessfulRequests,
		m.FailedRequests, m.BannedRequests, m.SuccessRate, m.BanRate, m.LatencyP50Ms,
		m.LatencyP95Ms, m.LatencyP99Ms, m.ActiveConnections, m.PeakConnections, m.WindowStart)
	return err
}

// --- Settlement & Ledger Operations ---

// InsertRefundEvent relies on the unique primary key on task_id: a second
// settlement pass for the same task is a silent skip, not an error.
func (s *PostgresStore) InsertRefundEvent(ctx context.Context, e *RefundEvent) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO refund_events (task_id, order_id, user_id, quantity, amount,
			price_per_unit, worker_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id) DO NOTHING
	`, e.TaskID, e.OrderID, e.UserID, e.Quantity, e.Amount, e.PricePerUnit, e.WorkerID, e.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListRefundEvents(ctx context.Context, orderID string) ([]*RefundEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT task_id, order_id, user_id, quantity, amount, price_per_unit, worker_id, created_at
		FROM refund_events WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RefundEvent
	for rows.Next() {
		var e RefundEvent
		if err := rows.Scan(&e.TaskID, &e.OrderID, &e.UserID, &e.Quantity, &e.Amount,
			&e.PricePerUnit, &e.WorkerID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// InsertBalanceTransaction guards "first write wins" for a settlement via
// a dedicated refund_issued_orders table: the INSERT there either succeeds
// once (claiming the right to write the transaction) or is rejected by the
// unique constraint, in which case this call is a no-op.
func (s *PostgresStore) InsertBalanceTransaction(ctx context.Context, orderID string, txn *BalanceTransaction) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO refund_issued_orders (order_id) VALUES ($1) ON CONFLICT DO NOTHING`, orderID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	var before decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT COALESCE(balance, 0) FROM user_balances WHERE user_id = $1 FOR UPDATE`, txn.UserID).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		before = decimal.Zero
	} else if err != nil {
		return false, err
	}
	after := before.Add(txn.Amount)

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_balances (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = $2
	`, txn.UserID, after); err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO balance_transactions (txn_id, user_id, amount, balance_before,
			balance_after, type, reason, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, txn.TxnID, txn.UserID, txn.Amount, before, after, txn.Type, txn.Reason, orderID, txn.CreatedAt); err != nil {
		return false, err
	}

	txn.BalanceBefore = before
	txn.BalanceAfter = after
	return true, tx.Commit(ctx)
}

func (s *PostgresStore) GetUserBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var b decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(balance, 0) FROM user_balances WHERE user_id = $1`, userID).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	return b, err
}

func (s *PostgresStore) InsertRefundAnomaly(ctx context.Context, a *RefundAnomaly) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refund_anomalies (anomaly_id, order_id, severity, message, delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.AnomalyID, a.OrderID, a.Severity, a.Message, a.Delta, a.CreatedAt)
	return err
}

func (s *PostgresStore) ListRefundAnomalies(ctx context.Context, orderID string) ([]*RefundAnomaly, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT anomaly_id, order_id, severity, message, delta, created_at
		FROM refund_anomalies WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RefundAnomaly
	for rows.Next() {
		var a RefundAnomaly
		if err := rows.Scan(&a.AnomalyID, &a.OrderID, &a.Severity, &a.Message, &a.Delta, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// --- Coordination Operations ---

func (s *PostgresStore) IncrementDurableEpoch(ctx context.Context, resourceID string) (int64, error) {
	var epoch int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO durable_epochs (resource_id, epoch) VALUES ($1, 1)
		ON CONFLICT (resource_id) DO UPDATE SET epoch = durable_epochs.epoch + 1
		RETURNING epoch
	`, resourceID).Scan(&epoch)
	return epoch, err
}

func (s *PostgresStore) GetDurableEpoch(ctx context.Context, resourceID string) (int64, error) {
	var epoch int64
	err := s.pool.QueryRow(ctx, `SELECT epoch FROM durable_epochs WHERE resource_id = $1`, resourceID).Scan(&epoch)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return epoch, err
}
