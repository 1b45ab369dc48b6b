package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"deliverycore/internal/observability"
	"deliverycore/internal/store"
)

// ErrNoAvailableNode is returned when no candidate node exists for a
// selection request, regardless of reason (pool empty, every node at
// capacity, every node OFFLINE).
var ErrNoAvailableNode = errors.New("proxy: no available node")

// SelectionRequest narrows the candidate pool before ranking. TaskID is
// carried through only for the degraded-fallback decision log, not for
// filtering.
type SelectionRequest struct {
	Tier   *store.ProxyTier
	Region string
	TaskID string
}

// Selector chooses one node for a task from the Registry's current pool.
type Selector struct {
	registry *Registry
}

func NewSelector(registry *Registry) *Selector {
	return &Selector{registry: registry}
}

// Select filters to ONLINE, non-OFFLINE, under-capacity nodes, prefers
// HEALTHY over DEGRADED, breaks ties by ascending load, then tier, then
// node id,
// and returns the first candidate. A DEGRADED pick is logged as a
// fallback decision since it signals pool-wide health pressure.
func (s *Selector) Select(ctx context.Context, req SelectionRequest) (*store.ProxyNode, error) {
	candidates, err := s.registry.ListSelectable(ctx, req.Tier, req.Region)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableNode
	}

	chosen := candidates[0]
	if chosen.Health == store.HealthDegraded {
		logDegradedFallback(chosen, req.TaskID, len(candidates))
		observability.DegradedFallbacks.Inc()
	}
	return chosen, nil
}

func logDegradedFallback(node *store.ProxyNode, taskID string, poolSize int) {
	data, _ := json.Marshal(map[string]interface{}{
		"decision":  "degraded_fallback",
		"node_id":   node.NodeID,
		"task_id":   taskID,
		"region":    node.Region,
		"tier":      node.Tier.String(),
		"pool_size": poolSize,
	})
	log.Println(string(data))
}
