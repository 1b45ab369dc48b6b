package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"deliverycore/internal/store"
)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func setupOrder(t *testing.T, ms store.Store, delivered, failedPermanent, quantity int) *store.Order {
	t.Helper()
	ctx := context.Background()
	order := &store.Order{
		OrderID:         "o1",
		UserID:          "u1",
		Quantity:        quantity,
		PricePerUnit:    decimal.NewFromFloat(0.10),
		Delivered:       delivered,
		FailedPermanent: failedPermanent,
	}
	if err := ms.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}
	return order
}

func TestSettleIssuesRefundForFailedPermanentTasks(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	setupOrder(t, ms, 80, 20, 100)

	tasks := []*store.Task{
		{TaskID: "t1", OrderID: "o1", Quantity: 20, Status: store.TaskFailedPermanent},
	}
	if err := ms.CreateTasks(ctx, tasks); err != nil {
		t.Fatal(err)
	}

	ledger := NewLedger(ms)
	if err := ledger.Settle(ctx, "o1"); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	events, err := ms.ListRefundEvents(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 refund event, got %d", len(events))
	}
	wantAmount := decimal.NewFromFloat(0.10).Mul(decimal.NewFromInt(20)).Round(2)
	if !events[0].Amount.Equal(wantAmount) {
		t.Fatalf("expected amount %s, got %s", wantAmount, events[0].Amount)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	setupOrder(t, ms, 80, 20, 100)
	ms.CreateTasks(ctx, []*store.Task{
		{TaskID: "t1", OrderID: "o1", Quantity: 20, Status: store.TaskFailedPermanent},
	})

	ledger := NewLedger(ms)
	if err := ledger.Settle(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Settle(ctx, "o1"); err != nil {
		t.Fatal(err)
	}

	events, _ := ms.ListRefundEvents(ctx, "o1")
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 refund event after repeated settlement, got %d", len(events))
	}
}

func TestSettleDetectsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	setupOrder(t, ms, 50, 20, 100) // 50+20 != 100

	ledger := NewLedger(ms)
	err := ledger.Settle(ctx, "o1")
	if err == nil {
		t.Fatal("expected invariant violation error")
	}
	if _, ok := err.(*ErrInvariantViolation); !ok {
		t.Fatalf("expected *ErrInvariantViolation, got %T", err)
	}

	anomalies, aerr := ms.ListRefundAnomalies(ctx, "o1")
	if aerr != nil {
		t.Fatal(aerr)
	}
	if len(anomalies) != 1 || anomalies[0].Severity != store.SeverityCritical {
		t.Fatalf("expected one CRITICAL anomaly, got %+v", anomalies)
	}
}

func TestSettlePublishesOnRefund(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	setupOrder(t, ms, 80, 20, 100)
	ms.CreateTasks(ctx, []*store.Task{
		{TaskID: "t1", OrderID: "o1", Quantity: 20, Status: store.TaskFailedPermanent},
	})

	ledger := NewLedger(ms)
	pub := &recordingPublisher{}
	ledger.SetPublisher(pub)

	if err := ledger.Settle(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "settlement.issued" {
		t.Fatalf("expected one settlement.issued publish, got %v", pub.topics)
	}
}

func TestSettleNoOpWhenNoFailures(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	setupOrder(t, ms, 100, 0, 100)

	ledger := NewLedger(ms)
	if err := ledger.Settle(ctx, "o1"); err != nil {
		t.Fatal(err)
	}
	events, _ := ms.ListRefundEvents(ctx, "o1")
	if len(events) != 0 {
		t.Fatalf("expected no refund events, got %d", len(events))
	}
}
