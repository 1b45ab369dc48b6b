// Package coordination provides the distributed primitives that let more
// than one Delivery Worker replica run safely against the same order pool:
// fencing leases and epoch counters. Task claims themselves never need
// coordination — the conditional update on the task row is sufficient on
// its own — so this package exists for the narrower job of making sure an
// orphan sweep or a settlement pass isn't run twice concurrently by two
// replicas racing after a leadership handoff.
package coordination

import (
	"context"
	"time"
)

// Coordinator is the distributed lock/lease/epoch primitive this package
// is built around. A Redis-backed implementation and an in-memory
// implementation (for single-process deployments and tests) are provided.
type Coordinator interface {
	// AcquireLock attempts to acquire a lock for the given key.
	AcquireLock(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error)
	// RenewLock extends the TTL of a held lock.
	RenewLock(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error)
	// ReleaseLock releases the lock if held by ownerID.
	ReleaseLock(ctx context.Context, key string, ownerID string) error

	// AcquireLease acquires a named, fenced lease — used for per-order
	// orphan-sweep/settlement mutual exclusion across replicas.
	AcquireLease(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error)
	// ReleaseLease releases the lease if still held by ownerID.
	ReleaseLease(ctx context.Context, key string, ownerID string) error

	// IncrementEpoch returns a monotonically increasing fencing token for
	// resourceID, durable across process restarts.
	IncrementEpoch(ctx context.Context, resourceID string) (int64, error)
}

// ErrNotHeld reports that the caller does not (or no longer) hold a
// lock/lease. Neither provided coordinator returns it: their Release*
// methods return nil when the caller is not the holder.
type notHeldError struct{}

func (notHeldError) Error() string { return "lock/lease not held by caller" }

var ErrNotHeld error = notHeldError{}
