package proxy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NodeLimiter enforces a per-node token bucket on outbound dispatch
// attempts, keyed by node id, so a single hot node cannot be hammered
// past its own rate regardless of how many workers select it.
type NodeLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

// NewNodeLimiter builds a limiter allowing r requests/sec per node with
// burst b. Buckets are created lazily on first use.
func NewNodeLimiter(r float64, b int) *NodeLimiter {
	return &NodeLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(r),
		b:        b,
	}
}

func (l *NodeLimiter) bucket(nodeID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[nodeID]
	if !ok {
		lim = rate.NewLimiter(l.r, l.b)
		l.limiters[nodeID] = lim
	}
	return lim
}

// Allow reports whether a dispatch attempt against nodeID may proceed now.
func (l *NodeLimiter) Allow(nodeID string) bool {
	return l.bucket(nodeID).Allow()
}

// Reserve reports whether a dispatch attempt may proceed immediately, and
// if not, how long the caller would need to wait. It never blocks: a
// reservation over the limit is cancelled rather than held.
func (l *NodeLimiter) Reserve(nodeID string) (allowed bool, delay time.Duration) {
	r := l.bucket(nodeID).Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d
	}
	return true, 0
}
