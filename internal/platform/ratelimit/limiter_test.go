// Copyright (c) 2026 Authgate. All rights reserved.

package ratelimit_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/ratelimit"
)

func isRateLimited(t *testing.T, err error) bool {
	t.Helper()
	ae := apperr.As(err)
	return ae != nil && ae.HTTPStatus == http.StatusTooManyRequests
}

/*
TestMemory_BudgetExhaustion verifies the N-allowed / (N+1)-rejected contract:
three admits succeed immediately, the fourth inside the same window fails,
and a call after the window elapses succeeds again.
*/
func TestMemory_BudgetExhaustion(t *testing.T) {
	const window = 150 * time.Millisecond

	limiter, err := ratelimit.NewMemory(3, window)
	require.NoError(t, err)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Admit(ctx, "10.0.0.1"), "request %d should be admitted", i+1)
	}

	err = limiter.Admit(ctx, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, isRateLimited(t, err))

	// A fresh window restores the budget.
	time.Sleep(window + 50*time.Millisecond)
	assert.NoError(t, limiter.Admit(ctx, "10.0.0.1"))
}

/*
TestMemory_IndependentKeys verifies that exhausting one client's budget never
affects another client.
*/
func TestMemory_IndependentKeys(t *testing.T) {
	limiter, err := ratelimit.NewMemory(1, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, limiter.Admit(ctx, "10.0.0.1"))
	require.Error(t, limiter.Admit(ctx, "10.0.0.1"))

	// Other keys still start from a fresh window.
	assert.NoError(t, limiter.Admit(ctx, "10.0.0.2"))
	assert.NoError(t, limiter.Admit(ctx, "10.0.0.3"))
}

/*
TestMemory_UnknownKeyFreshWindow verifies the implicit fresh-window state for
clients never seen before.
*/
func TestMemory_UnknownKeyFreshWindow(t *testing.T) {
	limiter, err := ratelimit.NewMemory(5, time.Minute)
	require.NoError(t, err)

	assert.NoError(t, limiter.Admit(context.Background(), "never-seen"))
}

/*
TestMemory_ConcurrentAdmits fires many simultaneous requests for one key and
asserts that exactly max of them are admitted — no lost updates, no
double-admits past the limit.
*/
func TestMemory_ConcurrentAdmits(t *testing.T) {
	const (
		maxRequests = 25
		attempts    = 200
	)

	limiter, err := ratelimit.NewMemory(maxRequests, time.Minute)
	require.NoError(t, err)

	var admitted atomic.Int64
	var rejected atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Admit(context.Background(), "contended-key"); err == nil {
				admitted.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(maxRequests), admitted.Load())
	assert.Equal(t, int64(attempts-maxRequests), rejected.Load())
}

/*
TestNewMemory_InvalidConfig verifies that non-positive parameters are refused
at construction.
*/
func TestNewMemory_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		window time.Duration
	}{
		{"zero_max", 0, time.Second},
		{"negative_max", -1, time.Second},
		{"zero_window", 10, 0},
		{"negative_window", 10, -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ratelimit.NewMemory(tt.max, tt.window)
			assert.Error(t, err)
		})
	}
}
