package proxy

import (
	"context"
	"testing"

	"deliverycore/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, store.Store) {
	t.Helper()
	ms := store.NewMemoryStore()
	return NewRegistry(ms), ms
}

func mustRegister(t *testing.T, r *Registry, node *store.ProxyNode) {
	t.Helper()
	if err := r.Register(context.Background(), node); err != nil {
		t.Fatalf("Register(%s): %v", node.NodeID, err)
	}
}

func TestSelectorPrefersHealthyOverDegraded(t *testing.T) {
	ctx := context.Background()
	reg, backing := newTestRegistry(t)

	mustRegister(t, reg, &store.ProxyNode{NodeID: "n-degraded", Capacity: 5, Region: "us"})
	mustRegister(t, reg, &store.ProxyNode{NodeID: "n-healthy", Capacity: 5, Region: "us"})

	degraded, err := backing.GetProxyNode(ctx, "n-degraded")
	if err != nil {
		t.Fatal(err)
	}
	degraded.Health = store.HealthDegraded
	if err := backing.UpdateProxyNode(ctx, degraded); err != nil {
		t.Fatal(err)
	}

	sel := NewSelector(reg)
	chosen, err := sel.Select(ctx, SelectionRequest{Region: "us"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.NodeID != "n-healthy" {
		t.Fatalf("expected n-healthy to be chosen, got %s", chosen.NodeID)
	}
}

func TestSelectorFallsBackToDegradedWhenNoHealthyNode(t *testing.T) {
	ctx := context.Background()
	reg, backing := newTestRegistry(t)

	mustRegister(t, reg, &store.ProxyNode{NodeID: "n1", Capacity: 5, Region: "us"})
	n1, _ := backing.GetProxyNode(ctx, "n1")
	n1.Health = store.HealthDegraded
	backing.UpdateProxyNode(ctx, n1)

	sel := NewSelector(reg)
	chosen, err := sel.Select(ctx, SelectionRequest{Region: "us", TaskID: "t1"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.NodeID != "n1" {
		t.Fatalf("expected fallback to n1, got %s", chosen.NodeID)
	}
}

func TestSelectorReturnsNoAvailableNode(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sel := NewSelector(reg)
	_, err := sel.Select(context.Background(), SelectionRequest{Region: "us"})
	if err != ErrNoAvailableNode {
		t.Fatalf("expected ErrNoAvailableNode, got %v", err)
	}
}

func TestSelectorTieBreaksByLoadThenNodeID(t *testing.T) {
	ctx := context.Background()
	reg, backing := newTestRegistry(t)

	mustRegister(t, reg, &store.ProxyNode{NodeID: "b", Capacity: 10, Region: "us"})
	mustRegister(t, reg, &store.ProxyNode{NodeID: "a", Capacity: 10, Region: "us"})

	b, _ := backing.GetProxyNode(ctx, "b")
	b.CurrentLoad = 1
	backing.UpdateProxyNode(ctx, b)

	sel := NewSelector(reg)
	chosen, err := sel.Select(ctx, SelectionRequest{Region: "us"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if chosen.NodeID != "a" {
		t.Fatalf("expected lowest-load node 'a', got %s", chosen.NodeID)
	}
}
