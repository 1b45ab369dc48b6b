package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"deliverycore/internal/store"
)

var (
	anomalyInfoCeiling    = decimal.NewFromFloat(0.01)
	anomalyWarningCeiling = decimal.NewFromInt(10)
)

// severityFor classifies an absolute ledger delta: INFO at or below
// 0.01, WARNING up to 10, CRITICAL beyond that.
func severityFor(delta decimal.Decimal) store.RefundSeverity {
	abs := delta.Abs()
	switch {
	case abs.LessThanOrEqual(anomalyInfoCeiling):
		return store.SeverityInfo
	case abs.LessThanOrEqual(anomalyWarningCeiling):
		return store.SeverityWarning
	default:
		return store.SeverityCritical
	}
}

// CheckAnomalies compares the ledger's recorded Refund Events against the
// order's task counts and the issued refund total, recording a Refund
// Anomaly (never auto-correcting) whenever they disagree.
func (l *Ledger) CheckAnomalies(ctx context.Context, orderID string) error {
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
	failedPermanentCount := 0
	expectedRefund := decimal.Zero
	for _, t := range tasks {
		if t.Status == store.TaskFailedPermanent {
			failedPermanentCount++
			expectedRefund = expectedRefund.Add(order.PricePerUnit.Mul(decimal.NewFromInt(int64(t.Quantity))).Round(2))
		}
	}

	events, err := l.backing.ListRefundEvents(ctx, orderID)
	if err != nil {
		return err
	}
	ledgerTotal := decimal.Zero
	for _, e := range events {
		ledgerTotal = ledgerTotal.Add(e.Amount)
	}

	if len(events) != failedPermanentCount {
		l.recordAnomaly(ctx, orderID, store.SeverityCritical,
			fmt.Sprintf("refund event count %d disagrees with failed-permanent task count %d", len(events), failedPermanentCount),
			decimal.NewFromInt(int64(len(events)-failedPermanentCount)))
	}

	delta := ledgerTotal.Sub(expectedRefund)
	if !delta.IsZero() {
		l.recordAnomaly(ctx, orderID, severityFor(delta),
			fmt.Sprintf("ledger refund total %s disagrees with expected %s", ledgerTotal, expectedRefund),
			delta)
	}
	return nil
}
