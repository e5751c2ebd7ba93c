// Copyright (c) 2026 Authgate. All rights reserved.

package auth_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/sec"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *auth.Service {
	t.Helper()

	tokens, err := sec.NewTokenService(testSigningSecret, "authgate-test")
	require.NoError(t, err)

	return auth.NewService(
		auth.NewMemoryUserRepository(),
		auth.NewMemorySessionRepository(),
		tokens,
	)
}

func registerMember(t *testing.T, service *auth.Service, email, secret string) *auth.RegisterResult {
	t.Helper()

	result, err := service.Register(context.Background(), auth.RegisterInput{
		Email:  email,
		Secret: secret,
		Level:  sec.LevelMember,
	})
	require.NoError(t, err)
	require.NotNil(t, result.User)
	require.NotEmpty(t, result.APIKey)

	return result
}

func assertStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	appError := apperr.As(err)
	require.NotNil(t, appError, "expected an AppError, got %v", err)
	assert.Equal(t, wantStatus, appError.HTTPStatus)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service := newTestService(t)

	registerMember(t, service, "alice@example.com", "correct horse battery")

	_, err := service.Register(context.Background(), auth.RegisterInput{
		Email:  "alice@example.com",
		Secret: "another secret entirely",
		Level:  sec.LevelMember,
	})

	require.Error(t, err)
	assertStatus(t, err, http.StatusConflict)
}

func TestRegister_SecretNeverStoredPlain(t *testing.T) {
	service := newTestService(t)

	result := registerMember(t, service, "alice@example.com", "correct horse battery")

	assert.NotEqual(t, "correct horse battery", result.User.SecretHash)
	assert.NotContains(t, result.User.SecretHash, "correct horse battery")
}

func TestLogin_Outcomes(t *testing.T) {
	service := newTestService(t)
	registerMember(t, service, "alice@example.com", "correct horse battery")

	t.Run("correct_secret", func(t *testing.T) {
		pair, err := service.Login(context.Background(), auth.LoginInput{
			Email:  "alice@example.com",
			Secret: "correct horse battery",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "alice@example.com", pair.User.Email)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		_, err := service.Login(context.Background(), auth.LoginInput{
			Email:  "alice@example.com",
			Secret: "wrong secret",
		})
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := service.Login(context.Background(), auth.LoginInput{
			Email:  "nobody@example.com",
			Secret: "correct horse battery",
		})
		assertStatus(t, err, http.StatusUnauthorized)
	})

	// Both failure paths must present identical response shapes.
	t.Run("failures_indistinguishable", func(t *testing.T) {
		_, wrongErr := service.Login(context.Background(), auth.LoginInput{
			Email: "alice@example.com", Secret: "wrong secret",
		})
		_, unknownErr := service.Login(context.Background(), auth.LoginInput{
			Email: "nobody@example.com", Secret: "whatever",
		})
		assert.Equal(t, wrongErr.Error(), unknownErr.Error())
		assert.Equal(t, apperr.As(wrongErr).Code, apperr.As(unknownErr).Code)
	})
}

func TestRedeemRefreshToken_Rotation(t *testing.T) {
	service := newTestService(t)
	registerMember(t, service, "alice@example.com", "correct horse battery")

	pair, err := service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)

	// First redemption succeeds and rotates the token.
	rotated, err := service.RedeemRefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The spent token is dead.
	_, err = service.RedeemRefreshToken(context.Background(), pair.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)

	// The replacement still works.
	_, err = service.RedeemRefreshToken(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRedeemRefreshToken_ConcurrentExactlyOnce(t *testing.T) {
	const attempts = 50

	service := newTestService(t)
	registerMember(t, service, "alice@example.com", "correct horse battery")

	pair, err := service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)

	var succeeded atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.RedeemRefreshToken(context.Background(), pair.RefreshToken); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load())
}

func TestRedeemRefreshToken_Garbage(t *testing.T) {
	service := newTestService(t)

	_, err := service.RedeemRefreshToken(context.Background(), "not-a-token")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestAPIKey_Lifecycle(t *testing.T) {
	service := newTestService(t)
	result := registerMember(t, service, "alice@example.com", "correct horse battery")

	// The registration key resolves to the account.
	claims, err := service.LookupByAPIKey(context.Background(), result.APIKey)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, sec.LevelMember, claims.Level)

	// Rotation returns a new key and kills the old one immediately.
	newKey, err := service.RotateAPIKey(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, result.APIKey, newKey)

	_, err = service.LookupByAPIKey(context.Background(), result.APIKey)
	assertStatus(t, err, http.StatusUnauthorized)

	claims, err = service.LookupByAPIKey(context.Background(), newKey)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}

func TestLookupByAPIKey_Unknown(t *testing.T) {
	service := newTestService(t)

	_, err := service.LookupByAPIKey(context.Background(), "ffffffffffffffff")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestUpdatePrivilege_RevokesSessions(t *testing.T) {
	service := newTestService(t)
	result := registerMember(t, service, "alice@example.com", "correct horse battery")

	pair, err := service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, service.UpdatePrivilege(context.Background(), result.User.ID, sec.LevelOperator))

	// Old refresh tokens die with the privilege change.
	_, err = service.RedeemRefreshToken(context.Background(), pair.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)

	// A fresh login carries the new level.
	pair, err = service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, sec.LevelOperator, pair.User.Level)
}

func TestUpdatePrivilege_UnknownUser(t *testing.T) {
	service := newTestService(t)

	err := service.UpdatePrivilege(context.Background(), "01890000-0000-7000-8000-000000000000", sec.LevelAdmin)
	assertStatus(t, err, http.StatusNotFound)
}

func TestDisable_BlocksAllSchemes(t *testing.T) {
	service := newTestService(t)
	result := registerMember(t, service, "alice@example.com", "correct horse battery")

	pair, err := service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, service.Disable(context.Background(), result.User.ID))

	_, err = service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = service.LookupByAPIKey(context.Background(), result.APIKey)
	assertStatus(t, err, http.StatusUnauthorized)

	_, err = service.RedeemRefreshToken(context.Background(), pair.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestLogout_Idempotent(t *testing.T) {
	service := newTestService(t)
	registerMember(t, service, "alice@example.com", "correct horse battery")

	pair, err := service.Login(context.Background(), auth.LoginInput{
		Email:  "alice@example.com",
		Secret: "correct horse battery",
	})
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), pair.RefreshToken))
	require.NoError(t, service.Logout(context.Background(), pair.RefreshToken))

	_, err = service.RedeemRefreshToken(context.Background(), pair.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized)
}
