package delivery

import (
	"context"
	"log"
	"time"

	"deliverycore/internal/observability"
	"deliverycore/internal/store"
	"deliverycore/internal/timeline"
)

// SweepOrphans resets tasks that have sat EXECUTING past threshold back
// to PENDING without incrementing attempts — a crashed worker never
// "spent" a retry. Intended to run on a periodic timer, guarded by a
// coordination.FencingGuard so two replicas don't double-sweep the same
// task concurrently. trail may be nil to skip audit recording.
func SweepOrphans(ctx context.Context, backing store.Store, threshold time.Duration, limit int, trail *timeline.Store) (int, error) {
	cutoff := time.Now().Add(-threshold)
	orphans, err := backing.ListOrphanedTasks(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, task := range orphans {
		if err := backing.ReclaimOrphan(ctx, task.TaskID); err != nil {
			log.Printf("orphan sweep: failed to reclaim task %s: %v", task.TaskID, err)
			continue
		}
		recovered++
		if trail != nil {
			trail.Record(timeline.Event{TaskID: task.TaskID, OrderID: task.OrderID, Stage: "ORPHAN_RECLAIMED"})
		}
	}
	if recovered > 0 {
		observability.OrphansRecovered.Add(float64(recovered))
	}
	return recovered, nil
}
