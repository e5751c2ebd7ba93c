// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Window defaults and client-entry eviction TTLs.
  - Security: JWT issuer and credential header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "authgate"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitMax is the default number of requests admitted per window.
	DefaultRateLimitMax = 100

	// DefaultRateLimitWindow is the default counting window duration.
	DefaultRateLimitWindow = 60 * time.Second

	// RateLimitCleanupInterval is how often stale client windows are evicted from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "authgate"

	// MinSigningSecretLength is the minimum byte length of the JWT signing
	// secret. Startup fails below this threshold.
	MinSigningSecretLength = 32

	// RefreshTokenCookieName is the name of the cookie that stores the refresh token.
	RefreshTokenCookieName = "refresh_token"

	// RefreshTokenCookiePath is the scoped path for the refresh token cookie.
	RefreshTokenCookiePath = "/api/v1/auth"

	// RoutePasswordHeader carries the secret for password-protected routes.
	RoutePasswordHeader = "X-Route-Password"

	// RoutePasswordQueryParam is the fallback query parameter for route passwords.
	RoutePasswordQueryParam = "password"

	// APIKeyHeader carries the long-lived bearer credential alternative to JWTs.
	APIKeyHeader = "X-API-Key"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Database Schemas

const (
	SchemaAuth = "auth"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixRateLimit = "ratelimit:"
)
