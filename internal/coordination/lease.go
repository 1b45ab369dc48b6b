package coordination

import (
	"context"
	"log"
	"time"
)

// FencingGuard wraps a Coordinator lease around a single periodic job (the
// orphan sweep, or a settlement pass) so that at most one worker replica
// runs it at a time. This is deliberately narrower than full leader
// election: any number of workers may still claim disjoint tasks
// concurrently without holding any lease at all. A FencingGuard only
// brackets the specific operations that are not safe to run twice at once.
type FencingGuard struct {
	coordinator Coordinator
	ownerID     string
	ttl         time.Duration
}

// NewFencingGuard builds a guard identified by ownerID (typically the
// worker's generated identity).
func NewFencingGuard(c Coordinator, ownerID string, ttl time.Duration) *FencingGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FencingGuard{coordinator: c, ownerID: ownerID, ttl: ttl}
}

// Run attempts to acquire the named lease and, on success, runs fn and
// releases the lease afterward. If the lease is already held elsewhere,
// Run returns false without calling fn — this is the expected outcome
// when two replicas' sweep tickers fire close together.
func (g *FencingGuard) Run(ctx context.Context, name string, fn func(context.Context) error) (ran bool, err error) {
	acquired, err := g.coordinator.AcquireLease(ctx, name, g.ownerID, g.ttl)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		if relErr := g.coordinator.ReleaseLease(ctx, name, g.ownerID); relErr != nil {
			log.Printf("fencing: failed to release lease %q: %v", name, relErr)
		}
	}()
	return true, fn(ctx)
}
