// Package proxy implements the Proxy Registry & Health Evaluator and the
// Proxy Selector: the source of truth for the outbound node pool, its
// derived health state, and the pure selection algorithm that picks a
// node for a task.
package proxy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deliverycore/internal/observability"
	"deliverycore/internal/store"
)

// MetricsReport is one inbound report from an external dispatcher.
type MetricsReport struct {
	NodeID    string
	Success   bool
	ErrorCode int
	LatencyMs int64
}

// Registry holds the node pool and its rolling metrics, and recomputes
// health on every report. It is a thin coordinator in front of a durable
// Store — reads and writes always go through the backing store rather
// than a separate process-local cache.
type Registry struct {
	mu      sync.Mutex
	backing store.Store
}

// NewRegistry builds a Registry over a durable Store.
func NewRegistry(backing store.Store) *Registry {
	return &Registry{backing: backing}
}

// Register persists a node in ONLINE status with capacity >= 1 and
// initializes its metrics with successRate = 1.0.
func (r *Registry) Register(ctx context.Context, node *store.ProxyNode) error {
	if node.Capacity < 1 {
		return fmt.Errorf("proxy: capacity must be >= 1, got %d", node.Capacity)
	}
	node.Status = store.ProxyOnline
	node.Health = store.HealthHealthy
	node.CurrentLoad = 0
	if err := r.backing.RegisterProxyNode(ctx, node); err != nil {
		return err
	}
	observability.ProxyHealthState.WithLabelValues(node.NodeID).Set(healthScore(store.HealthHealthy))
	return nil
}

// ReportMetrics atomically increments the rolling counters for node and
// recomputes its health state. A report is counted as banned when its
// error code is 403 or 429.
func (r *Registry) ReportMetrics(ctx context.Context, report MetricsReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.backing.GetProxyMetrics(ctx, report.NodeID)
	if err != nil {
		return err
	}
	if m == nil {
		m = &store.ProxyMetrics{NodeID: report.NodeID, SuccessRate: 1.0, WindowStart: time.Now()}
	}

	m.TotalRequests++
	if report.Success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}
	if report.ErrorCode == 403 || report.ErrorCode == 429 {
		m.BannedRequests++
	}
	if m.TotalRequests > 0 {
		m.SuccessRate = float64(m.SuccessfulRequests) / float64(m.TotalRequests)
		m.BanRate = float64(m.BannedRequests) / float64(m.TotalRequests)
	}
	updateLatency(m, report.LatencyMs)

	if err := r.backing.SaveProxyMetrics(ctx, m); err != nil {
		return err
	}

	node, err := r.backing.GetProxyNode(ctx, report.NodeID)
	if err != nil || node == nil {
		return err
	}
	node.Health = DeriveHealth(m.SuccessRate)
	if err := r.backing.UpdateProxyNode(ctx, node); err != nil {
		return err
	}
	observability.ProxyHealthState.WithLabelValues(node.NodeID).Set(healthScore(node.Health))
	return nil
}

// updateLatency keeps a cheap running estimate of p50/p95/p99 without a
// full quantile sketch: each new sample nudges the estimate toward itself.
// Good enough for the health/selection decisions this core makes; a real
// deployment would swap in a t-digest or HDR histogram here.
func updateLatency(m *store.ProxyMetrics, latencyMs int64) {
	if m.LatencyP50Ms == 0 {
		m.LatencyP50Ms, m.LatencyP95Ms, m.LatencyP99Ms = latencyMs, latencyMs, latencyMs
		return
	}
	m.LatencyP50Ms = ewma(m.LatencyP50Ms, latencyMs, 0.2)
	m.LatencyP95Ms = ewma(m.LatencyP95Ms, latencyMs, 0.05)
	m.LatencyP99Ms = ewma(m.LatencyP99Ms, latencyMs, 0.01)
}

func ewma(prev, sample int64, alpha float64) int64 {
	return int64(float64(prev)*(1-alpha) + float64(sample)*alpha)
}

func healthScore(h store.ProxyHealth) float64 {
	switch h {
	case store.HealthHealthy:
		return 2
	case store.HealthDegraded:
		return 1
	default:
		return 0
	}
}

// ResetWindow zeros the rolling counters for node, invoked by an external
// timer. It satisfies WindowResetter.
func (r *Registry) ResetWindow(ctx context.Context, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backing.SaveProxyMetrics(ctx, &store.ProxyMetrics{
		NodeID:      nodeID,
		SuccessRate: 1.0,
		WindowStart: time.Now(),
	})
}

// WindowResetter is the capability interface a periodic ticker depends on
// to reset a node's rolling metrics window without knowing about the rest
// of the Registry.
type WindowResetter interface {
	ResetWindow(ctx context.Context, nodeID string) error
}

// ListSelectable returns the current selection candidates, ordered by
// (HEALTHY before DEGRADED, ascending current-load, ascending tier cost),
// optionally filtered by tier/region.
func (r *Registry) ListSelectable(ctx context.Context, tier *store.ProxyTier, region string) ([]*store.ProxyNode, error) {
	nodes, err := r.backing.ListProxyNodes(ctx)
	if err != nil {
		return nil, err
	}
	var candidates []*store.ProxyNode
	for _, n := range nodes {
		if !Selectable(n) {
			continue
		}
		if region != "" && n.Region != region {
			continue
		}
		if tier != nil && n.Tier != *tier {
			continue
		}
		candidates = append(candidates, n)
	}
	sortCandidates(candidates)
	return candidates, nil
}

func sortCandidates(nodes []*store.ProxyNode) {
	healthRank := func(h store.ProxyHealth) int {
		if h == store.HealthHealthy {
			return 0
		}
		return 1 // DEGRADED; OFFLINE nodes are already filtered out
	}
	// Simple insertion sort: candidate lists are small (bounded by pool
	// size), and this keeps the ordering rule legible and stable.
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && less(nodes[j], nodes[j-1], healthRank); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

func less(a, b *store.ProxyNode, healthRank func(store.ProxyHealth) int) bool {
	if ra, rb := healthRank(a.Health), healthRank(b.Health); ra != rb {
		return ra < rb
	}
	if a.CurrentLoad != b.CurrentLoad {
		return a.CurrentLoad < b.CurrentLoad
	}
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	return a.NodeID < b.NodeID
}

// IncrementLoad/DecrementLoad implement the logical lease: selection
// consumes headroom on claim, finalization gives it back. Capacity is a
// soft cap, not a hard invariant — a transient off-by-one overbook is
// tolerated rather than guarded against.
func (r *Registry) IncrementLoad(ctx context.Context, nodeID string) error {
	node, err := r.backing.GetProxyNode(ctx, nodeID)
	if err != nil || node == nil {
		return err
	}
	node.CurrentLoad++
	return r.backing.UpdateProxyNode(ctx, node)
}

func (r *Registry) DecrementLoad(ctx context.Context, nodeID string) error {
	node, err := r.backing.GetProxyNode(ctx, nodeID)
	if err != nil || node == nil {
		return err
	}
	if node.CurrentLoad > 0 {
		node.CurrentLoad--
	}
	return r.backing.UpdateProxyNode(ctx, node)
}
