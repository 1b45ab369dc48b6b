package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"deliverycore/internal/capacity"
	"deliverycore/internal/delivery"
	"deliverycore/internal/idempotency"
	"deliverycore/internal/proxy"
	"deliverycore/internal/settlement"
	"deliverycore/internal/store"
)

func newTestAPI(t *testing.T) (*API, store.Store) {
	t.Helper()
	ms := store.NewMemoryStore()
	registry := proxy.NewRegistry(ms)
	planner := capacity.NewPlanner(registry, ms, 60)
	generator := delivery.NewGenerator(ms, delivery.DefaultGeneratorConfig())
	ledger := settlement.NewLedger(ms)
	idem := idempotency.NewStore(nil, 0)
	return NewAPI(ms, planner, generator, registry, ledger, idem, nil, nil), ms
}

func registerOneNode(t *testing.T, ms store.Store) {
	t.Helper()
	node := &store.ProxyNode{
		NodeID:   "node-a",
		Status:   store.ProxyOnline,
		Health:   store.HealthHealthy,
		Capacity: 1000,
	}
	if err := ms.RegisterProxyNode(context.Background(), node); err != nil {
		t.Fatal(err)
	}
}

func TestHandleCreateOrderAccepts(t *testing.T) {
	a, ms := newTestAPI(t)
	registerOneNode(t, ms)

	body, _ := json.Marshal(createOrderRequest{
		UserID:    "u1",
		ServiceID: "svc1",
		Quantity:  500,
		TargetRef: "https://example.test/target",
		Region:    "us",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()

	a.handleCreateOrder(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp orderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Accepted || resp.OrderID == "" {
		t.Fatalf("expected accepted order with id, got %+v", resp)
	}
}

func TestHandleCreateOrderRejectsOverCapacity(t *testing.T) {
	a, ms := newTestAPI(t)
	registerOneNode(t, ms)

	body, _ := json.Marshal(createOrderRequest{
		UserID:    "u1",
		ServiceID: "svc1",
		Quantity:  1_000_000,
		TargetRef: "https://example.test/target",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()

	a.handleCreateOrder(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
	var resp orderResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accepted {
		t.Fatal("expected rejection")
	}
}

func TestHandleCreateOrderIdempotentRepeat(t *testing.T) {
	a, ms := newTestAPI(t)
	registerOneNode(t, ms)

	body, _ := json.Marshal(createOrderRequest{
		UserID:         "u1",
		ServiceID:      "svc1",
		Quantity:       100,
		TargetRef:      "https://example.test/target",
		IdempotencyKey: "abc123",
	})

	req1 := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	w1 := httptest.NewRecorder()
	a.handleCreateOrder(w1, req1)
	var resp1 orderResponse
	json.Unmarshal(w1.Body.Bytes(), &resp1)

	req2 := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	w2 := httptest.NewRecorder()
	a.handleCreateOrder(w2, req2)
	var resp2 orderResponse
	json.Unmarshal(w2.Body.Bytes(), &resp2)

	if resp1.OrderID != resp2.OrderID {
		t.Fatalf("expected same order id on repeat submission, got %s vs %s", resp1.OrderID, resp2.OrderID)
	}
}

func TestHandleGetOrderNotFound(t *testing.T) {
	a, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	w := httptest.NewRecorder()

	a.handleGetOrder(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
