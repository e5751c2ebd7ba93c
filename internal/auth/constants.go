// Copyright (c) 2026 Authgate. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a refresh token remains redeemable.
	// Long-lived (14 days) so clients re-authenticate rarely; rotation on
	// every redemption keeps the replay window at one use.
	RefreshTokenTTL = 14 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random refresh token.
	RefreshTokenLength = 32

	// APIKeyLength is the byte length of the random API key material.
	APIKeyLength = 32
)
