// Copyright (c) 2026 Authgate. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/platform/sec"
)

/*
TestHashSecret_RoundTrip verifies bcrypt hashing and comparison.
*/
func TestHashSecret_RoundTrip(t *testing.T) {
	hash, err := sec.HashSecret("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, sec.CheckSecretHash("correct horse battery staple", hash))
	assert.False(t, sec.CheckSecretHash("Correct horse battery staple", hash))
	assert.False(t, sec.CheckSecretHash("", hash))
}

/*
TestGenerateSecureToken verifies length and uniqueness of opaque tokens.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// 32 random bytes hex-encode to 64 characters.
	assert.Len(t, first, 64)
	assert.Len(t, second, 64)
	assert.NotEqual(t, first, second)
}

/*
TestHashToken verifies the digest is deterministic and never the identity.
*/
func TestHashToken(t *testing.T) {
	digest := sec.HashToken("opaque-token-value")

	assert.Equal(t, digest, sec.HashToken("opaque-token-value"))
	assert.NotEqual(t, digest, sec.HashToken("opaque-token-value2"))
	assert.NotEqual(t, "opaque-token-value", digest)
	assert.Len(t, digest, 64)
}
