package settlement

import (
	"context"
	"log"

	"deliverycore/internal/store"
)

// Sweep settles every order that has reached a terminal state with at
// least one failed-permanent task (PARTIAL or FAILED) and has not yet
// been refunded. Orders reach PARTIAL/FAILED only once their Delivery
// Worker has driven every task to a terminal status, so no task-status
// check is needed here; Settle itself is idempotent, so running Sweep
// concurrently or repeatedly over the same order is safe.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	settled := 0
	for _, status := range []store.OrderStatus{store.OrderPartial, store.OrderFailed} {
		orders, err := l.backing.ListOrdersByStatus(ctx, status)
		if err != nil {
			return settled, err
		}
		for _, order := range orders {
			if err := l.Settle(ctx, order.OrderID); err != nil {
				log.Printf("settlement: settle order %s: %v", order.OrderID, err)
				continue
			}
			settled++
		}
	}
	return settled, nil
}
