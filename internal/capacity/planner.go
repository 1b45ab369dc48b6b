// Package capacity implements admission control for incoming orders: a
// one-shot arithmetic check of whether an order's quantity fits inside
// the delivery window given the currently selectable node pool and the
// load already pending against it.
package capacity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"deliverycore/internal/observability"
	"deliverycore/internal/proxy"
	"deliverycore/internal/store"
)

const windowHours = 72

// Planner answers "does this order fit" against the live node pool.
type Planner struct {
	registry            *proxy.Registry
	backing             store.Store
	playsPerHourPerNode int
}

// NewPlanner builds a Planner. playsPerHourPerNode is the assumed
// sustainable throughput of one selectable node; it is a configuration
// constant rather than a measured quantity since per-node throughput
// varies by tier and target service.
func NewPlanner(registry *proxy.Registry, backing store.Store, playsPerHourPerNode int) *Planner {
	if playsPerHourPerNode <= 0 {
		playsPerHourPerNode = 60
	}
	return &Planner{registry: registry, backing: backing, playsPerHourPerNode: playsPerHourPerNode}
}

// Available returns the plays-per-hour capacity of the current
// selectable pool.
func (p *Planner) Available(ctx context.Context) (int, error) {
	nodes, err := p.registry.ListSelectable(ctx, nil, "")
	if err != nil {
		return 0, err
	}
	return len(nodes) * p.playsPerHourPerNode, nil
}

// PendingLoad sums the quantity remaining (not yet delivered or
// permanently failed) across all non-terminal orders.
func (p *Planner) PendingLoad(ctx context.Context) (int, error) {
	total := 0
	for _, status := range []store.OrderStatus{store.OrderPending, store.OrderRunning} {
		orders, err := p.backing.ListOrdersByStatus(ctx, status)
		if err != nil {
			return 0, err
		}
		for _, o := range orders {
			total += o.Remains
		}
	}
	return total, nil
}

// ErrRejected is returned with a human-readable deficit when an order's
// quantity exceeds available window capacity.
type ErrRejected struct {
	Quantity int
	Ceiling  int
	Deficit  int
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("admission rejected: quantity %d exceeds window capacity %d (deficit %d)", e.Quantity, e.Ceiling, e.Deficit)
}

// Admit checks whether quantity fits within playsPerHour * windowHours
// minus the load already pending. Nothing is persisted by Admit itself;
// the caller persists the order only after a nil return.
func (p *Planner) Admit(ctx context.Context, quantity int) error {
	available, err := p.Available(ctx)
	if err != nil {
		return err
	}
	pending, err := p.PendingLoad(ctx)
	if err != nil {
		return err
	}

	ceiling := available*windowHours - pending
	if quantity > ceiling {
		deficit := quantity - ceiling
		logAdmissionDecision("REJECTED", quantity, ceiling, deficit)
		observability.AdmissionRejections.Inc()
		return &ErrRejected{Quantity: quantity, Ceiling: ceiling, Deficit: deficit}
	}
	logAdmissionDecision("ACCEPTED", quantity, ceiling, 0)
	return nil
}

func logAdmissionDecision(decision string, quantity, ceiling, deficit int) {
	data, _ := json.Marshal(map[string]interface{}{
		"component": "capacity",
		"decision":  decision,
		"quantity":  quantity,
		"ceiling":   ceiling,
		"deficit":   deficit,
	})
	log.Println(string(data))
}
