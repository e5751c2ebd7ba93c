// Copyright (c) 2026 Authgate. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

/*
TestTokenService_RoundTrip verifies that an issued token verifies back into
the same identity.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "authgate-test")
	require.NoError(t, err)

	token, err := service.IssueAccessToken("user-123", "alice@example.com", sec.LevelOperator, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.VerifyAccessToken(token)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, sec.LevelOperator, claims.Level)
	assert.Equal(t, "authgate-test", claims.Issuer)
}

/*
TestTokenService_Expired verifies that a token past its TTL fails with the
expiry sentinel.
*/
func TestTokenService_Expired(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "authgate-test")
	require.NoError(t, err)

	token, err := service.IssueAccessToken("user-123", "alice@example.com", sec.LevelMember, -1*time.Second)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	require.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_WrongSecret verifies that tokens signed under a different
secret fail with the invalid sentinel, not the expiry one.
*/
func TestTokenService_WrongSecret(t *testing.T) {
	issuer, err := sec.NewTokenService(testSecret, "authgate-test")
	require.NoError(t, err)

	verifier, err := sec.NewTokenService("another-secret-another-secret-xx", "authgate-test")
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken("user-123", "alice@example.com", sec.LevelMember, time.Minute)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	require.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_Garbage verifies that a non-JWT string is rejected.
*/
func TestTokenService_Garbage(t *testing.T) {
	service, err := sec.NewTokenService(testSecret, "authgate-test")
	require.NoError(t, err)

	_, err = service.VerifyAccessToken("not-a-token")
	require.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestNewTokenService_WeakSecret verifies that construction refuses short secrets.
*/
func TestNewTokenService_WeakSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		ok     bool
	}{
		{"empty", "", false},
		{"short", "tiny-secret", false},
		{"boundary_31", "0123456789abcdef0123456789abcde", false},
		{"boundary_32", testSecret, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sec.NewTokenService(tt.secret, "authgate-test")
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, sec.ErrWeakSecret)
			}
		})
	}
}
