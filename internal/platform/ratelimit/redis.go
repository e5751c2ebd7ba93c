// Copyright (c) 2026 Authgate. All rights reserved.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/constants"
)

// Redis is a fixed-window limiter whose counters live in Redis, letting
// multiple gateway instances share one budget per client key.
//
// # Atomicity
//
// Each window maps to its own key (prefix + client key + window index), and
// INCR provides the atomic check-then-increment: every concurrent caller
// observes a distinct counter value, so at most max callers see a value
// within budget.
type Redis struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedis creates a Redis-backed fixed-window limiter.
func NewRedis(client *redis.Client, maxRequests int, window time.Duration) (*Redis, error) {
	if maxRequests <= 0 {
		return nil, fmt.Errorf("ratelimit: max requests must be positive, got %d", maxRequests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}

	return &Redis{
		client: client,
		max:    maxRequests,
		window: window,
	}, nil
}

// Admit implements [Limiter].
//
// Store failures surface as a generic service failure, never as a
// rate-limit rejection.
func (r *Redis) Admit(ctx context.Context, clientKey string) error {
	now := time.Now()
	windowIndex := now.UnixNano() / int64(r.window)
	key := fmt.Sprintf("%s%s:%d", constants.RedisPrefixRateLimit, clientKey, windowIndex)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return apperr.Internal(fmt.Errorf("ratelimit: redis incr failed: %w", err))
	}

	// First hit in this window owns setting the expiry. The extra window of
	// grace keeps the key alive for Retry-After math near the boundary.
	if count == 1 {
		if err := r.client.Expire(ctx, key, 2*r.window).Err(); err != nil {
			return apperr.Internal(fmt.Errorf("ratelimit: redis expire failed: %w", err))
		}
	}

	if count > int64(r.max) {
		windowStart := time.Unix(0, windowIndex*int64(r.window))
		return apperr.RateLimited(retryAfterSeconds(windowStart, now, r.window))
	}

	return nil
}
