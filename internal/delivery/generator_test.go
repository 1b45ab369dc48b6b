package delivery

import (
	"context"
	"testing"
	"time"

	"deliverycore/internal/store"
)

func TestTaskCountSingleTaskBelowThreshold(t *testing.T) {
	g := NewGenerator(store.NewMemoryStore(), DefaultGeneratorConfig())
	if got := g.taskCount(1000); got != 1 {
		t.Fatalf("expected 1 task at threshold, got %d", got)
	}
	if got := g.taskCount(500); got != 1 {
		t.Fatalf("expected 1 task below threshold, got %d", got)
	}
}

func TestTaskCountAboveThreshold(t *testing.T) {
	g := NewGenerator(store.NewMemoryStore(), DefaultGeneratorConfig())
	if got := g.taskCount(1001); got != 3 {
		t.Fatalf("expected ceil(1001/400)=3, got %d", got)
	}
	if got := g.taskCount(4000); got != 10 {
		t.Fatalf("expected 10 tasks for quantity 4000, got %d", got)
	}
}

func TestQuantityPerBatchSumsExactly(t *testing.T) {
	batches := quantityPerBatch(1001, 3)
	sum := 0
	for _, b := range batches {
		sum += b
	}
	if sum != 1001 {
		t.Fatalf("expected batches to sum to 1001, got %d", sum)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	g := NewGenerator(ms, DefaultGeneratorConfig())

	order := &store.Order{OrderID: "o1", Quantity: 4000, StartedAt: time.Now()}
	if err := g.Generate(ctx, order); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	first, err := ms.ListTasksByOrder(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 10 {
		t.Fatalf("expected 10 tasks, got %d", len(first))
	}

	if err := g.Generate(ctx, order); err != nil {
		t.Fatalf("Generate (second call): %v", err)
	}
	second, err := ms.ListTasksByOrder(ctx, "o1")
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected regeneration to be a no-op, got %d tasks", len(second))
	}
}

func TestGenerateDistinctSequencesAndTokens(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	g := NewGenerator(ms, DefaultGeneratorConfig())

	order := &store.Order{OrderID: "o2", Quantity: 2000, StartedAt: time.Now()}
	if err := g.Generate(ctx, order); err != nil {
		t.Fatal(err)
	}
	tasks, err := ms.ListTasksByOrder(ctx, "o2")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int]bool{}
	for _, task := range tasks {
		if seen[task.Sequence] {
			t.Fatalf("duplicate sequence %d", task.Sequence)
		}
		seen[task.Sequence] = true
		if task.Sequence < 1 || task.Sequence > len(tasks) {
			t.Fatalf("expected sequence in 1..%d, got %d", len(tasks), task.Sequence)
		}
		want := store.IdempotencyToken("o2", task.Sequence, 0)
		if task.IdempotencyToken != want {
			t.Fatalf("expected token %s, got %s", want, task.IdempotencyToken)
		}
	}
}
