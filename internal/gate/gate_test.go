// Copyright (c) 2026 Authgate. All rights reserved.

package gate_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/gate"
	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/ratelimit"
	"github.com/authgate/authgate/internal/platform/sec"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

// stubKeyResolver resolves exactly one known API key.
type stubKeyResolver struct {
	key    string
	claims *sec.AuthClaims
}

func (resolver *stubKeyResolver) LookupByAPIKey(_ context.Context, apiKey string) (*sec.AuthClaims, error) {
	if resolver.key != "" && apiKey == resolver.key {
		return resolver.claims, nil
	}
	return nil, apperr.Unauthorized("Invalid credentials")
}

func newTestGate(t *testing.T, config gate.Config, maxRequests int, keys gate.KeyResolver) (*gate.Gate, *sec.TokenService) {
	t.Helper()

	tokens, err := sec.NewTokenService(testSigningSecret, "authgate-test")
	require.NoError(t, err)

	limiter, err := ratelimit.NewMemory(maxRequests, time.Minute)
	require.NoError(t, err)

	mediator, err := gate.New(config, limiter, tokens, keys)
	require.NoError(t, err)

	return mediator, tokens
}

func checkStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, wantStatus, appError.HTTPStatus)
}

func TestCheck_PublicRoute(t *testing.T) {
	mediator, _ := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/open", Policy: gate.Public()},
	}}, 100, nil)

	decision, err := mediator.Check(context.Background(), gate.Request{
		Path:      "/open",
		ClientKey: "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Nil(t, decision.Identity)
}

func TestCheck_UnregisteredPathIsPublic(t *testing.T) {
	mediator, _ := newTestGate(t, gate.Config{}, 100, nil)

	decision, err := mediator.Check(context.Background(), gate.Request{
		Path:      "/never-registered",
		ClientKey: "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Nil(t, decision.Identity)
}

func TestCheck_PasswordRoute(t *testing.T) {
	mediator, _ := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/hidden", Policy: gate.PasswordProtected("Password123")},
	}}, 100, nil)

	t.Run("correct_password", func(t *testing.T) {
		decision, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/hidden",
			ClientKey: "10.0.0.1",
			Password:  "Password123",
		})
		require.NoError(t, err)
		assert.Nil(t, decision.Identity)
	})

	t.Run("case_mismatch", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/hidden",
			ClientKey: "10.0.0.1",
			Password:  "password123",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("missing_password", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/hidden",
			ClientKey: "10.0.0.1",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	})
}

func TestCheck_TokenRoute(t *testing.T) {
	mediator, tokens := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/members", Policy: gate.TokenProtected(sec.LevelMember)},
		{Path: "/admin", Policy: gate.TokenProtected(sec.LevelAdmin)},
	}}, 100, nil)

	memberToken, err := tokens.IssueAccessToken("user-1", "alice@example.com", sec.LevelMember, time.Minute)
	require.NoError(t, err)

	t.Run("valid_token_sufficient_level", func(t *testing.T) {
		decision, err := mediator.Check(context.Background(), gate.Request{
			Path:        "/members",
			ClientKey:   "10.0.0.1",
			BearerToken: memberToken,
		})
		require.NoError(t, err)
		require.NotNil(t, decision.Identity)
		assert.Equal(t, "user-1", decision.Identity.UserID)
		assert.Equal(t, sec.LevelMember, decision.Identity.Level)
	})

	t.Run("equal_level_allowed", func(t *testing.T) {
		adminToken, err := tokens.IssueAccessToken("user-2", "root@example.com", sec.LevelAdmin, time.Minute)
		require.NoError(t, err)

		decision, err := mediator.Check(context.Background(), gate.Request{
			Path:        "/admin",
			ClientKey:   "10.0.0.1",
			BearerToken: adminToken,
		})
		require.NoError(t, err)
		assert.Equal(t, sec.LevelAdmin, decision.Identity.Level)
	})

	t.Run("insufficient_level", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:        "/admin",
			ClientKey:   "10.0.0.1",
			BearerToken: memberToken,
		})
		checkStatus(t, err, http.StatusForbidden)
	})

	t.Run("missing_credential", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/members",
			ClientKey: "10.0.0.1",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("garbage_token", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:        "/members",
			ClientKey:   "10.0.0.1",
			BearerToken: "not.a.jwt",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("expired_token_same_failure_shape", func(t *testing.T) {
		expiredToken, err := tokens.IssueAccessToken("user-1", "alice@example.com", sec.LevelMember, -time.Minute)
		require.NoError(t, err)

		_, expiredErr := mediator.Check(context.Background(), gate.Request{
			Path:        "/members",
			ClientKey:   "10.0.0.1",
			BearerToken: expiredToken,
		})
		_, garbageErr := mediator.Check(context.Background(), gate.Request{
			Path:        "/members",
			ClientKey:   "10.0.0.1",
			BearerToken: "not.a.jwt",
		})

		checkStatus(t, expiredErr, http.StatusUnauthorized)
		assert.Equal(t, garbageErr.Error(), expiredErr.Error())
	})
}

func TestCheck_APIKeyScheme(t *testing.T) {
	resolver := &stubKeyResolver{
		key: "deadbeefdeadbeef",
		claims: &sec.AuthClaims{
			UserID: "user-9",
			Email:  "ops@example.com",
			Level:  sec.LevelOperator,
		},
	}

	mediator, _ := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/ops", Policy: gate.TokenProtected(sec.LevelOperator)},
	}}, 100, resolver)

	t.Run("known_key", func(t *testing.T) {
		decision, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/ops",
			ClientKey: "10.0.0.1",
			APIKey:    "deadbeefdeadbeef",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-9", decision.Identity.UserID)
	})

	t.Run("unknown_key", func(t *testing.T) {
		_, err := mediator.Check(context.Background(), gate.Request{
			Path:      "/ops",
			ClientKey: "10.0.0.1",
			APIKey:    "0000000000000000",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	})
}

func TestCheck_RateLimitShortCircuits(t *testing.T) {
	mediator, _ := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/hidden", Policy: gate.PasswordProtected("Password123")},
	}}, 2, nil)

	ctx := context.Background()

	// Burn the budget with valid requests.
	for i := 0; i < 2; i++ {
		_, err := mediator.Check(ctx, gate.Request{
			Path: "/hidden", ClientKey: "10.0.0.1", Password: "Password123",
		})
		require.NoError(t, err)
	}

	// Even a correct password is rejected with 429, not 401: RateCheck runs first.
	_, err := mediator.Check(ctx, gate.Request{
		Path: "/hidden", ClientKey: "10.0.0.1", Password: "Password123",
	})
	checkStatus(t, err, http.StatusTooManyRequests)

	// An unrelated client is unaffected.
	_, err = mediator.Check(ctx, gate.Request{
		Path: "/hidden", ClientKey: "10.0.0.2", Password: "Password123",
	})
	require.NoError(t, err)
}

func TestCheck_RejectedRequestsStillCharge(t *testing.T) {
	mediator, _ := newTestGate(t, gate.Config{Routes: []gate.Route{
		{Path: "/hidden", Policy: gate.PasswordProtected("Password123")},
	}}, 3, nil)

	ctx := context.Background()

	// Three failed credential attempts exhaust the budget.
	for i := 0; i < 3; i++ {
		_, err := mediator.Check(ctx, gate.Request{
			Path: "/hidden", ClientKey: "10.0.0.1", Password: "wrong",
		})
		checkStatus(t, err, http.StatusUnauthorized)
	}

	_, err := mediator.Check(ctx, gate.Request{
		Path: "/hidden", ClientKey: "10.0.0.1", Password: "Password123",
	})
	checkStatus(t, err, http.StatusTooManyRequests)
}

func TestNew_InvalidConfig(t *testing.T) {
	limiter, err := ratelimit.NewMemory(10, time.Minute)
	require.NoError(t, err)

	_, err = gate.New(gate.Config{Routes: []gate.Route{
		{Path: "/hidden", Policy: gate.PasswordProtected("")},
	}}, limiter, nil, nil)
	assert.Error(t, err)

	_, err = gate.New(gate.Config{Routes: []gate.Route{
		{Path: "/members", Policy: gate.TokenProtected(sec.LevelMember)},
	}}, limiter, nil, nil)
	assert.Error(t, err, "token routes without a verifier must be rejected")

	_, err = gate.New(gate.Config{}, nil, nil, nil)
	assert.Error(t, err, "nil limiter must be rejected")
}
