package delivery

import "sync/atomic"

// WorkerMetrics unifies the two legacy in-process counters (the
// scheduler's activeTasks field and the observability package's
// Prometheus gauges) into one struct a worker updates locally and
// flushes to observability, rather than mutating the global Prometheus
// gauges directly from every goroutine.
type WorkerMetrics struct {
	activeClaims   int64
	processed      int64
	completed      int64
	failedPermanent int64
	retried        int64
}

func (m *WorkerMetrics) ClaimStarted()   { atomic.AddInt64(&m.activeClaims, 1) }
func (m *WorkerMetrics) ClaimFinished()  { atomic.AddInt64(&m.activeClaims, -1) }
func (m *WorkerMetrics) TaskProcessed()  { atomic.AddInt64(&m.processed, 1) }
func (m *WorkerMetrics) TaskCompleted()  { atomic.AddInt64(&m.completed, 1) }
func (m *WorkerMetrics) TaskFailedPermanent() { atomic.AddInt64(&m.failedPermanent, 1) }
func (m *WorkerMetrics) TaskRetried()    { atomic.AddInt64(&m.retried, 1) }

func (m *WorkerMetrics) ActiveClaims() int64 { return atomic.LoadInt64(&m.activeClaims) }
func (m *WorkerMetrics) Processed() int64    { return atomic.LoadInt64(&m.processed) }
func (m *WorkerMetrics) Completed() int64    { return atomic.LoadInt64(&m.completed) }
func (m *WorkerMetrics) FailedPermanent() int64 { return atomic.LoadInt64(&m.failedPermanent) }
func (m *WorkerMetrics) Retried() int64      { return atomic.LoadInt64(&m.retried) }
