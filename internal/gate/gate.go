// Copyright (c) 2026 Authgate. All rights reserved.

package gate

import (
	"context"
	"fmt"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/ratelimit"
	"github.com/authgate/authgate/internal/platform/sec"
)

// # Collaborator Contracts

// TokenVerifier validates a signed access token into identity claims.
type TokenVerifier interface {
	// VerifyAccessToken checks signature and expiry of a JWT string.
	VerifyAccessToken(tokenString string) (*sec.AuthClaims, error)
}

// KeyResolver resolves a presented API key into identity claims.
//
// Implemented by the auth service; declared here so the gate depends on a
// capability, not on the auth package.
type KeyResolver interface {
	// LookupByAPIKey returns the identity owning the key, or an
	// authentication failure.
	LookupByAPIKey(context context.Context, apiKey string) (*sec.AuthClaims, error)
}

// # Mediator

// Request is the transport-neutral view of one inbound request.
type Request struct {
	// Path selects the route policy. Unknown paths are treated as public.
	Path string

	// ClientKey partitions rate budgets (source address by default).
	ClientKey string

	// Password is the candidate for password-protected routes. May be empty.
	Password string

	// BearerToken is the JWT presented via the Authorization header. May be empty.
	BearerToken string

	// APIKey is the long-lived credential alternative to a JWT. May be empty.
	APIKey string
}

// Decision is the outcome of an admitted request.
type Decision struct {
	// Identity is the resolved principal, or nil for unauthenticated routes.
	Identity *sec.AuthClaims
}

// Gate sequences every request through rate limiting, credential resolution,
// and the privilege check.
//
// # Concurrency
//
// The policy table is immutable after construction; the limiter and the
// collaborators own their own synchronization. A single Gate is safe for
// arbitrary concurrent use.
type Gate struct {
	limiter  ratelimit.Limiter
	tokens   TokenVerifier
	keys     KeyResolver
	policies map[string]Policy
}

// New validates the route configuration and builds the gate.
//
// keys may be nil, disabling the API key scheme; tokens must not be nil when
// any route declares token protection.
func New(config Config, limiter ratelimit.Limiter, tokens TokenVerifier, keys KeyResolver) (*Gate, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if limiter == nil {
		return nil, fmt.Errorf("gate: limiter is required")
	}

	for _, route := range config.Routes {
		if route.Policy.Kind == PolicyToken && tokens == nil {
			return nil, fmt.Errorf("gate: route %q requires a token verifier", route.Path)
		}
	}

	return &Gate{
		limiter:  limiter,
		tokens:   tokens,
		keys:     keys,
		policies: config.table(),
	}, nil
}

/*
Check runs the admission state machine for one request.

Description: RateCheck always runs first, regardless of route policy, and a
rate rejection short-circuits every later check. Credential and privilege
checks then apply per the route's policy. Every failure is terminal and maps
to exactly one rejection.

Parameters:
  - context: context.Context
  - request: Request

Returns:
  - *Decision: The resolved identity (nil for unauthenticated routes)
  - error: apperr.RateLimited, apperr.Unauthorized, apperr.Forbidden, or
    apperr.Internal for limiter/store failures
*/
func (gate *Gate) Check(context context.Context, request Request) (*Decision, error) {

	// 1. RateCheck: uniform, before any credential work. The charge sticks
	// even if the request fails a later check or is aborted.
	if err := gate.limiter.Admit(context, request.ClientKey); err != nil {
		return nil, err
	}

	// 2. Route policy lookup. Paths never registered carry no protection.
	policy, registered := gate.policies[request.Path]
	if !registered {
		policy = Public()
	}

	switch policy.Kind {

	case PolicyPublic:
		return &Decision{}, nil

	case PolicyPassword:
		if !VerifyRoutePassword(policy.Secret, request.Password) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return &Decision{}, nil

	case PolicyToken:
		identity, err := gate.resolveIdentity(context, request)
		if err != nil {
			return nil, err
		}

		// PrivilegeCheck: equality satisfies the requirement.
		if !identity.Level.AtLeast(policy.MinLevel) {
			return nil, apperr.Forbidden("Insufficient privilege")
		}

		return &Decision{Identity: identity}, nil

	default:
		return nil, apperr.Internal(fmt.Errorf("gate: unknown policy kind %d for path %q", policy.Kind, request.Path))
	}
}

// OptionalIdentity resolves a presented credential without demanding one.
//
// Used by the transport adapter on routes whose policy does not require
// identity, so handlers that do their own authorization (for example
// parameterized admin endpoints) still see the caller. Resolution failures
// are swallowed; the route's own policy already admitted the request.
func (gate *Gate) OptionalIdentity(context context.Context, request Request) *sec.AuthClaims {
	if request.APIKey == "" && request.BearerToken == "" {
		return nil
	}
	if request.BearerToken != "" && gate.tokens == nil {
		return nil
	}

	identity, err := gate.resolveIdentity(context, request)
	if err != nil {
		return nil
	}
	return identity
}

// resolveIdentity tries the API key scheme first, then the JWT scheme.
//
// Expired, malformed, and forged tokens all collapse into the same opaque
// authentication failure; only the server logs see which check failed.
func (gate *Gate) resolveIdentity(context context.Context, request Request) (*sec.AuthClaims, error) {
	if request.APIKey != "" && gate.keys != nil {
		return gate.keys.LookupByAPIKey(context, request.APIKey)
	}

	if request.BearerToken == "" {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	claims, err := gate.tokens.VerifyAccessToken(request.BearerToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return claims, nil
}
