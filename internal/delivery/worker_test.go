package delivery

import (
	"context"
	"testing"
	"time"

	"deliverycore/internal/proxy"
	"deliverycore/internal/store"
	"deliverycore/internal/timeline"
)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeDispatcher struct {
	outcome   DispatchOutcome
	delivered int
	errMsg    string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	return DispatchResult{
		Outcome:        f.outcome,
		PlaysDelivered: f.delivered,
		ErrorMessage:   f.errMsg,
	}, nil
}

func setupWorker(t *testing.T, dispatcher Dispatcher) (*Worker, store.Store) {
	t.Helper()
	ms := store.NewMemoryStore()
	ctx := context.Background()
	reg := proxy.NewRegistry(ms)
	if err := reg.Register(ctx, &store.ProxyNode{NodeID: "n1", Capacity: 10, Region: "us"}); err != nil {
		t.Fatal(err)
	}
	sel := proxy.NewSelector(reg)
	cfg := DefaultWorkerConfig("w1")
	cfg.PollInterval = time.Millisecond
	return NewWorker(ms, sel, reg, dispatcher, cfg), ms
}

func TestProcessTaskCompletesOnSuccess(t *testing.T) {
	ctx := context.Background()
	w, ms := setupWorker(t, &fakeDispatcher{outcome: DispatchSuccess, delivered: 100})

	order := &store.Order{OrderID: "o1", Quantity: 100, Remains: 100, StartedAt: time.Now()}
	if err := ms.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}
	task := &store.Task{TaskID: "t1", OrderID: "o1", Quantity: 100, Status: store.TaskPending, MaxAttempts: 3}
	if err := ms.CreateTasks(ctx, []*store.Task{task}); err != nil {
		t.Fatal(err)
	}

	w.processTask(ctx, task)

	got, err := ms.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.TaskCompleted {
		t.Fatalf("expected COMPLETED, got %s", got.Status)
	}

	gotOrder, err := ms.GetOrder(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if gotOrder.Status != store.OrderCompleted {
		t.Fatalf("expected order COMPLETED, got %s", gotOrder.Status)
	}
}

func TestProcessTaskRetriesOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	w, ms := setupWorker(t, &fakeDispatcher{outcome: DispatchTransient, errMsg: "timeout"})

	order := &store.Order{OrderID: "o2", Quantity: 50, Remains: 50, StartedAt: time.Now()}
	ms.CreateOrder(ctx, order)
	task := &store.Task{TaskID: "t2", OrderID: "o2", Quantity: 50, Status: store.TaskPending, MaxAttempts: 3}
	ms.CreateTasks(ctx, []*store.Task{task})

	w.processTask(ctx, task)

	got, err := ms.GetTask(ctx, "t2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.TaskFailedRetrying {
		t.Fatalf("expected FAILED_RETRYING, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected attempts incremented to 1, got %d", got.Attempts)
	}
	if got.RetryAfter.Before(time.Now()) {
		t.Fatal("expected retry-after to be in the future")
	}
}

func TestProcessTaskPermanentFailureUpdatesOrder(t *testing.T) {
	ctx := context.Background()
	w, ms := setupWorker(t, &fakeDispatcher{outcome: DispatchPermanent, errMsg: "rejected"})

	order := &store.Order{OrderID: "o3", Quantity: 30, Remains: 30, StartedAt: time.Now()}
	ms.CreateOrder(ctx, order)
	task := &store.Task{TaskID: "t3", OrderID: "o3", Quantity: 30, Status: store.TaskPending, MaxAttempts: 3}
	ms.CreateTasks(ctx, []*store.Task{task})

	w.processTask(ctx, task)

	got, _ := ms.GetTask(ctx, "t3")
	if got.Status != store.TaskFailedPermanent {
		t.Fatalf("expected FAILED_PERMANENT, got %s", got.Status)
	}

	gotOrder, _ := ms.GetOrder(ctx, "o3")
	if gotOrder.Status != store.OrderFailed {
		t.Fatalf("expected order FAILED, got %s", gotOrder.Status)
	}
}

func TestProcessTaskRetriesWhenNodeOverLimiterCapacity(t *testing.T) {
	ctx := context.Background()
	w, ms := setupWorker(t, &fakeDispatcher{outcome: DispatchSuccess, delivered: 10})
	w.SetLimiter(proxy.NewNodeLimiter(0, 0)) // zero burst: every Reserve is over limit

	order := &store.Order{OrderID: "o4", Quantity: 10, Remains: 10, StartedAt: time.Now()}
	ms.CreateOrder(ctx, order)
	task := &store.Task{TaskID: "t4", OrderID: "o4", Quantity: 10, Status: store.TaskPending, MaxAttempts: 3}
	ms.CreateTasks(ctx, []*store.Task{task})

	w.processTask(ctx, task)

	got, _ := ms.GetTask(ctx, "t4")
	if got.Status != store.TaskFailedRetrying {
		t.Fatalf("expected FAILED_RETRYING when rate limited, got %s", got.Status)
	}
}

func TestProcessTaskRecordsTimelineAndPublishesOnCompletion(t *testing.T) {
	ctx := context.Background()
	w, ms := setupWorker(t, &fakeDispatcher{outcome: DispatchSuccess, delivered: 5})
	trail := timeline.NewStore(10)
	pub := &recordingPublisher{}
	w.SetTimeline(trail)
	w.SetPublisher(pub)

	order := &store.Order{OrderID: "o5", Quantity: 5, Remains: 5, StartedAt: time.Now()}
	ms.CreateOrder(ctx, order)
	task := &store.Task{TaskID: "t5", OrderID: "o5", Quantity: 5, Status: store.TaskPending, MaxAttempts: 3}
	ms.CreateTasks(ctx, []*store.Task{task})

	w.processTask(ctx, task)

	events := trail.ByTask("t5")
	if len(events) != 3 {
		t.Fatalf("expected 3 recorded stages (CLAIMED, DISPATCHED, FINALIZED), got %d: %+v", len(events), events)
	}
	if events[0].Stage != "CLAIMED" || events[len(events)-1].Stage != "FINALIZED" {
		t.Fatalf("unexpected stage order: %+v", events)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "order.completed" {
		t.Fatalf("expected one order.completed publish, got %v", pub.topics)
	}
}
