package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"deliverycore/internal/store"
)

func TestSweepSettlesPartialOrders(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	order := &store.Order{
		OrderID:      "o1",
		UserID:       "u1",
		Quantity:     100,
		PricePerUnit: decimal.NewFromFloat(0.10),
		Delivered:    80,
		Status:       store.OrderPartial,
	}
	if err := ms.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}
	ms.CreateTasks(ctx, []*store.Task{
		{TaskID: "t1", OrderID: "o1", Quantity: 20, Status: store.TaskFailedPermanent},
	})

	ledger := NewLedger(ms)
	settled, err := ledger.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if settled != 1 {
		t.Fatalf("expected 1 order settled, got %d", settled)
	}

	got, err := ms.GetOrder(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.OrderRefunded {
		t.Fatalf("expected order status REFUNDED, got %s", got.Status)
	}
}

func TestSweepSkipsAlreadyRefunded(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	order := &store.Order{
		OrderID:      "o1",
		UserID:       "u1",
		Quantity:     100,
		PricePerUnit: decimal.NewFromFloat(0.10),
		Delivered:       80,
		FailedPermanent: 20,
		Status:          store.OrderRefunded,
	}
	ms.CreateOrder(ctx, order)

	ledger := NewLedger(ms)
	settled, err := ledger.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if settled != 0 {
		t.Fatalf("expected no orders settled (none PARTIAL/FAILED), got %d", settled)
	}
}
