package delivery

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryBackOff builds the per-attempt exponential schedule used to space
// FAILED_RETRYING tasks out: 30s initial interval doubling each attempt,
// capped at maxInterval. RetryAfter is computed by taking NextBackOff
// once per failed attempt rather than running the whole retry loop
// in-process — each attempt is a separate claim cycle, possibly by a
// different worker.
func retryBackOff(maxInterval time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 30 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0 // this schedule only ever advances one step at a time
	return b
}

// nextRetryDelay returns the delay before attempt number `attempt`
// (1-indexed) should be retried.
func nextRetryDelay(attempt int, maxInterval time.Duration) time.Duration {
	b := retryBackOff(maxInterval)
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// claimRetryBackOff is the much tighter schedule used to retry a single
// ClaimTask call after losing an optimistic-concurrency race: short
// initial interval, small bound on total attempts enforced by the caller.
func claimRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}
