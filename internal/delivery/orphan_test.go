package delivery

import (
	"context"
	"testing"
	"time"

	"deliverycore/internal/store"
	"deliverycore/internal/timeline"
)

func TestSweepOrphansReclaimsWithoutIncrementingAttempts(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	task := &store.Task{
		TaskID:             "t1",
		OrderID:            "o1",
		Status:             store.TaskExecuting,
		Attempts:           1,
		MaxAttempts:        3,
		ExecutionStartedAt: time.Now().Add(-1 * time.Hour),
	}
	if err := ms.CreateTasks(ctx, []*store.Task{task}); err != nil {
		t.Fatal(err)
	}

	recovered, err := SweepOrphans(ctx, ms, 30*time.Second, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != 1 {
		t.Fatalf("expected 1 recovered task, got %d", recovered)
	}

	got, err := ms.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.TaskPending {
		t.Fatalf("expected PENDING, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected attempts unchanged at 1, got %d", got.Attempts)
	}
}

func TestSweepOrphansRecordsTimelineWhenTrailProvided(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	trail := timeline.NewStore(10)

	task := &store.Task{
		TaskID:             "t3",
		OrderID:            "o1",
		Status:             store.TaskExecuting,
		ExecutionStartedAt: time.Now().Add(-1 * time.Hour),
	}
	if err := ms.CreateTasks(ctx, []*store.Task{task}); err != nil {
		t.Fatal(err)
	}

	if _, err := SweepOrphans(ctx, ms, 30*time.Second, 10, trail); err != nil {
		t.Fatal(err)
	}

	events := trail.ByTask("t3")
	if len(events) != 1 || events[0].Stage != "ORPHAN_RECLAIMED" {
		t.Fatalf("expected one ORPHAN_RECLAIMED event, got %+v", events)
	}
}

func TestSweepOrphansIgnoresRecentExecutions(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()

	task := &store.Task{
		TaskID:             "t2",
		OrderID:            "o1",
		Status:             store.TaskExecuting,
		ExecutionStartedAt: time.Now(),
	}
	if err := ms.CreateTasks(ctx, []*store.Task{task}); err != nil {
		t.Fatal(err)
	}

	recovered, err := SweepOrphans(ctx, ms, 30*time.Second, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != 0 {
		t.Fatalf("expected 0 recovered tasks, got %d", recovered)
	}
}
