// Package settlement computes and persists refunds once an order's
// tasks have all reached a terminal state, and detects reconciliation
// anomalies in the resulting ledger.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"deliverycore/internal/observability"
	"deliverycore/internal/store"
	"deliverycore/internal/streaming"
)

// ErrInvariantViolation is returned (and never auto-corrected) when an
// order's terminal counters don't add up to its original quantity.
type ErrInvariantViolation struct {
	OrderID string
	Reason  string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("settlement: invariant violation on order %s: %s", e.OrderID, e.Reason)
}

// Ledger settles one order at a time: it is safe to invoke repeatedly on
// the same order, since every write is guarded by a unique key or a
// first-write-wins marker.
type Ledger struct {
	backing   store.Store
	publisher streaming.Publisher
}

func NewLedger(backing store.Store) *Ledger {
	return &Ledger{backing: backing}
}

// SetPublisher installs a best-effort lifecycle event publisher. Nil
// (the default) skips publishing.
func (l *Ledger) SetPublisher(p streaming.Publisher) { l.publisher = p }

// Settle runs once per order when all tasks are terminal: it emits one
// Refund Event per FAILED_PERMANENT task and a single REFUND Balance
// Transaction for their sum, then transitions the order to REFUNDED.
// Orders with no failed-permanent tasks settle without issuing anything.
func (l *Ledger) Settle(ctx context.Context, orderID string) error {
	order, err := l.backing.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("settlement: order %s not found", orderID)
	}

	tasks, err := l.backing.ListTasksByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	failedPermanent := 0
	var failedTasks []*store.Task
	for _, t := range tasks {
		if t.Status == store.TaskFailedPermanent {
			failedPermanent += t.Quantity
			failedTasks = append(failedTasks, t)
		}
	}

	if order.Delivered+failedPermanent != order.Quantity {
		violation := &ErrInvariantViolation{
			OrderID: orderID,
			Reason:  fmt.Sprintf("delivered(%d) + failed-permanent(%d) != quantity(%d)", order.Delivered, failedPermanent, order.Quantity),
		}
		l.recordAnomaly(ctx, orderID, store.SeverityCritical, violation.Error(), decimal.Zero)
		observability.InvariantViolations.Inc()
		return violation
	}

	if len(failedTasks) == 0 {
		return nil
	}

	total := decimal.Zero
	for _, t := range failedTasks {
		amount := order.PricePerUnit.Mul(decimal.NewFromInt(int64(t.Quantity))).Round(2)
		event := &store.RefundEvent{
			TaskID:       t.TaskID,
			OrderID:      orderID,
			UserID:       order.UserID,
			Quantity:     t.Quantity,
			Amount:       amount,
			PricePerUnit: order.PricePerUnit,
			CreatedAt:    time.Now(),
		}
		inserted, err := l.backing.InsertRefundEvent(ctx, event)
		if err != nil {
			return err
		}
		if inserted {
			total = total.Add(amount)
		}
	}

	txn := &store.BalanceTransaction{
		TxnID:     uuid.NewString(),
		UserID:    order.UserID,
		Amount:    total,
		Type:      store.TxnRefund,
		Reason:    "order " + orderID + " partial/failed delivery refund",
		OrderID:   orderID,
		CreatedAt: time.Now(),
	}
	inserted, err := l.backing.InsertBalanceTransaction(ctx, orderID, txn)
	if err != nil {
		return err
	}
	if inserted {
		observability.RefundsIssued.Inc()
		if err := l.backing.UpdateOrderStatus(ctx, orderID, store.OrderRefunded); err != nil {
			return err
		}
		if l.publisher != nil {
			l.publisher.Publish(ctx, "settlement.issued", map[string]interface{}{
				"order_id": orderID,
				"user_id":  order.UserID,
				"amount":   total.String(),
			})
		}
	}

	return l.CheckAnomalies(ctx, orderID)
}

func (l *Ledger) recordAnomaly(ctx context.Context, orderID string, severity store.RefundSeverity, message string, delta decimal.Decimal) {
	anomaly := &store.RefundAnomaly{
		AnomalyID: uuid.NewString(),
		OrderID:   orderID,
		Severity:  severity,
		Message:   message,
		Delta:     delta,
		CreatedAt: time.Now(),
	}
	if err := l.backing.InsertRefundAnomaly(ctx, anomaly); err != nil {
		return
	}
	observability.RefundAnomalies.WithLabelValues(string(severity)).Inc()
}
