// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package ratelimit implements per-client request admission inside a fixed
counting window.

Each client key owns an independent budget of max requests per window. A key's
window starts on its first request and resets once the window duration has
elapsed; the (max+1)-th request inside a live window is rejected. The
check-then-increment is a single atomic step per key, so concurrent requests
for the same key can never double-admit past the limit.

Two implementations share the [Limiter] contract:

  - Memory: mutex-guarded in-process table, suitable for a single instance.
  - Redis: shared counters for horizontally scaled deployments.

Budgets charge attempted requests: an admit decision is never refunded, even
if the request is aborted before reaching its handler.
*/
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/constants"
)

// Limiter decides whether a request from a client key may proceed.
type Limiter interface {

	/*
		Admit charges one request against the client's current window.

		Parameters:
		  - context: context.Context
		  - clientKey: string (source address or resolved identity)

		Returns:
		  - error: nil when admitted, apperr.RateLimited when the budget is
		    exhausted, apperr.Internal when the backing store fails
	*/
	Admit(context context.Context, clientKey string) error
}

// # In-Memory Limiter

// windowEntry is the per-client budget state. Only touched under Memory.mu.
type windowEntry struct {
	start    time.Time
	count    int
	lastSeen time.Time
}

// Memory is a fixed-window limiter backed by a mutex-guarded map.
//
// # Concurrency
//
// All window reads and writes happen under a single mutex, which serializes
// admit/reject decisions per key in arrival order at the point of update.
type Memory struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowEntry

	// now is swapped in tests to step through windows without sleeping.
	now func() time.Time
}

// NewMemory creates an in-process fixed-window limiter.
//
// Both parameters are fixed for the lifetime of the limiter; changing limits
// is a restart concern, not a runtime one.
func NewMemory(maxRequests int, window time.Duration) (*Memory, error) {
	if maxRequests <= 0 {
		return nil, fmt.Errorf("ratelimit: max requests must be positive, got %d", maxRequests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}

	return &Memory{
		max:     maxRequests,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}, nil
}

// Admit implements [Limiter].
//
// A client absent from the table is implicitly in a fresh window with count
// zero. Rejected attempts still count; the client recovers only by letting
// the window elapse.
func (m *Memory) Admit(_ context.Context, clientKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	entry, found := m.entries[clientKey]
	if !found || now.Sub(entry.start) >= m.window {
		entry = &windowEntry{start: now}
		m.entries[clientKey] = entry
	}

	entry.count++
	entry.lastSeen = now

	if entry.count > m.max {
		return apperr.RateLimited(retryAfterSeconds(entry.start, now, m.window))
	}

	return nil
}

// StartJanitor launches a background goroutine that evicts idle client
// entries, bounding memory under churny traffic. It stops when ctx is done.
func (m *Memory) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				for key, entry := range m.entries {
					if m.now().Sub(entry.lastSeen) > constants.RateLimitClientTTL {
						delete(m.entries, key)
					}
				}
				m.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// retryAfterSeconds reports how long until the client's window resets,
// rounded up so clients never retry early.
func retryAfterSeconds(windowStart, now time.Time, window time.Duration) int {
	remaining := window - now.Sub(windowStart)
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Ceil(remaining.Seconds()))
}
