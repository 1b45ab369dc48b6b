// Package idempotency caches the accepted-order response for a user's
// submission idempotency key, so a duplicate submission returns the
// original order id instead of creating a second order.
package idempotency

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Response is the cached order-intake result.
type Response struct {
	OrderID  string
	Accepted bool
	Reason   string
}

// Backend is the subset of a keyed TTL cache idempotency needs.
type Backend interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// Store caches idempotent order-intake responses, falling back to an
// in-memory map when no distributed backend is configured (single-process
// deployments, tests).
type Store struct {
	backend Backend
	cache   sync.Map
	ttl     time.Duration
}

type entry struct {
	Resp      Response
	Timestamp time.Time
}

// NewStore builds an idempotency cache. ttl defaults to 24h, matching the
// teacher's idempotency TTL for cached intake responses.
func NewStore(backend Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{backend: backend, ttl: ttl}
}

// Get returns the cached response for key, if any.
func (s *Store) Get(ctx context.Context, key string) (Response, bool) {
	if s.backend != nil {
		val, err := s.backend.Get(ctx, key)
		if err != nil {
			log.Printf("idempotency: backend error getting %s: %v", key, err)
			return Response{}, false
		}
		if val == "" {
			return Response{}, false
		}
		var e entry
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			return Response{}, false
		}
		return e.Resp, true
	}

	val, ok := s.cache.Load(key)
	if !ok {
		return Response{}, false
	}
	e := val.(entry)
	if time.Since(e.Timestamp) > s.ttl {
		s.cache.Delete(key)
		return Response{}, false
	}
	return e.Resp, true
}

// Set caches resp under key.
func (s *Store) Set(ctx context.Context, key string, resp Response) {
	e := entry{Resp: resp, Timestamp: time.Now()}

	if s.backend != nil {
		data, _ := json.Marshal(e)
		if err := s.backend.Set(ctx, key, string(data), s.ttl); err != nil {
			log.Printf("idempotency: backend error setting %s: %v", key, err)
		}
		return
	}
	s.cache.Store(key, e)
}

// Key builds the cache key for a user's submission idempotency key.
func Key(userID, idempotencyKey string) string {
	return "order-intake:" + userID + ":" + idempotencyKey
}
