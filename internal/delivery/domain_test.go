package delivery

import (
	"testing"

	"deliverycore/internal/store"
)

func TestUpdateProgressCompletedWhenNoFailures(t *testing.T) {
	o := &store.Order{Quantity: 100, Remains: 100}
	terminal := updateProgress(o, 100, -100, 0)
	if !terminal {
		t.Fatal("expected terminal order")
	}
	if o.Status != store.OrderCompleted {
		t.Fatalf("expected COMPLETED, got %s", o.Status)
	}
}

func TestUpdateProgressPartialWhenSomeDelivered(t *testing.T) {
	o := &store.Order{Quantity: 100, Remains: 100}
	updateProgress(o, 60, -100, 40)
	if o.Status != store.OrderPartial {
		t.Fatalf("expected PARTIAL, got %s", o.Status)
	}
}

func TestUpdateProgressFailedWhenNothingDelivered(t *testing.T) {
	o := &store.Order{Quantity: 100, Remains: 100}
	updateProgress(o, 0, -100, 100)
	if o.Status != store.OrderFailed {
		t.Fatalf("expected FAILED, got %s", o.Status)
	}
}

func TestUpdateProgressNotYetTerminal(t *testing.T) {
	o := &store.Order{Quantity: 100, Remains: 100}
	terminal := updateProgress(o, 50, -50, 0)
	if terminal {
		t.Fatal("expected non-terminal order while remains > 0")
	}
	if o.Status != "" {
		t.Fatalf("expected status untouched while non-terminal, got %s", o.Status)
	}
}

func TestFailExecutionRetriesUntilMaxAttempts(t *testing.T) {
	task := &store.Task{Attempts: 1, MaxAttempts: 3}
	if got := failExecution(task, "boom"); got != store.TaskFailedRetrying {
		t.Fatalf("expected FAILED_RETRYING, got %s", got)
	}
	task.Attempts = 3
	if got := failExecution(task, "boom"); got != store.TaskFailedPermanent {
		t.Fatalf("expected FAILED_PERMANENT, got %s", got)
	}
}
