package api

import (
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
	"deliverycore/internal/timeline"
)

func TestHandleListTasksByOrder(t *testing.T) {
	a, ms := newTestAPI(t)
	ctx := context.Background()
	ms.CreateTasks(ctx, []*store.Task{
		{TaskID: "t1", OrderID: "o1", Sequence: 0, Quantity: 10, Status: store.TaskPending},
		{TaskID: "t2", OrderID: "o1", Sequence: 1, Quantity: 10, Status: store.TaskPending},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/tasks/o1", nil)
	w := httptest.NewRecorder()
	a.handleListTasksByOrder(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var tasks []*store.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestHandleCapacitySnapshot(t *testing.T) {
	a, ms := newTestAPI(t)
	registerOneNode(t, ms)

	req := httptest.NewRequest(http.MethodGet, "/admin/capacity", nil)
	w := httptest.NewRecorder()
	a.handleCapacitySnapshot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var snap capacitySnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Available != 60 {
		t.Fatalf("expected available 60 for one node, got %d", snap.Available)
	}
}

func TestHandleWorkerLivenessEmpty(t *testing.T) {
	a, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/workers", nil)
	w := httptest.NewRecorder()
	a.handleWorkerLiveness(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out []workerLiveness
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no workers registered, got %d", len(out))
	}
}

func TestHandleTimelineByOrderEmptyWithoutRecorder(t *testing.T) {
	a, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/timeline/o1", nil)
	w := httptest.NewRecorder()
	a.handleTimelineByOrder(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out []timeline.Event
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no events without a recorder wired, got %d", len(out))
	}
}

func TestHandleTimelineByOrderReturnsRecordedEvents(t *testing.T) {
	ms := store.NewMemoryStore()
	registry := proxy.NewRegistry(ms)
	planner := capacity.NewPlanner(registry, ms, 60)
	generator := delivery.NewGenerator(ms, delivery.DefaultGeneratorConfig())
	ledger := settlement.NewLedger(ms)
	idem := idempotency.NewStore(nil, 0)
	trail := timeline.NewStore(100)
	trail.Record(timeline.Event{OrderID: "o1", TaskID: "t1", Stage: "CLAIMED"})
	a := NewAPI(ms, planner, generator, registry, ledger, idem, nil, trail)

	req := httptest.NewRequest(http.MethodGet, "/admin/timeline/o1", nil)
	w := httptest.NewRecorder()
	a.handleTimelineByOrder(w, req)

	var out []timeline.Event
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Stage != "CLAIMED" {
		t.Fatalf("expected one CLAIMED event, got %+v", out)
	}
}
