// Copyright (c) 2026 Authgate. All rights reserved.

package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/sec"
	"github.com/authgate/authgate/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating signed access tokens.
type TokenProvider interface {
	// IssueAccessToken creates a signed JWT string for the given identity.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - level: The privilege level of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an error if signing fails.
	IssueAccessToken(userID, email string, level sec.Level, timeToLive time.Duration) (string, error)
}

// Service implements the credential and token lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, verification,
// or redemption logic must be reviewed by the security team.
type Service struct {
	userRepository    UserRepository
	sessionRepository SessionRepository
	tokenProvider     TokenProvider
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	tokenProv TokenProvider,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		tokenProvider:     tokenProv,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new principal.
type RegisterInput struct {
	Email  string
	Secret string
	Level  sec.Level
}

// RegisterResult carries the created account and its initial API key.
//
// The plaintext key exists only in this result; the store keeps a digest, so
// this is the single chance for the caller to capture it.
type RegisterResult struct {
	User   *User  `json:"user"`
	APIKey string `json:"api_key"`
}

/*
Register validates, hashes, and persists a brand new user account.

Description: Enrolls a new principal with a hashed secret and a freshly
generated API key. Duplicate detection is delegated to the store's unique
constraint so two concurrent registrations of the same email cannot both win.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *RegisterResult: Created entity plus its one-time-visible API key
  - error: apperr.Conflict (if the email exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*RegisterResult, error) {

	// Prevent storing plain-text secrets. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedSecret, err := sec.HashSecret(input.Secret)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Mint the account's long-lived bearer credential up front.
	apiKey, err := sec.GenerateSecureToken(APIKeyLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_api_key_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:         uuid.New(),
		Email:      input.Email,
		SecretHash: hashedSecret,
		APIKeyHash: sec.HashToken(apiKey),
		Level:      input.Level,
	}

	// Persist the user; the unique index on email decides conflicts.
	if err := service.userRepository.Create(context, user); err != nil {
		if appError := apperr.As(err); appError != nil {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return &RegisterResult{User: user, APIKey: apiKey}, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email  string
	Secret string
}

// TokenPair represents a successfully issued credential set.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
VerifySecret validates an email/secret pair against the credential store.

Description: The unknown-account and wrong-secret paths are deliberately
indistinguishable: both burn a full bcrypt comparison and both return the
same generic authentication failure. Store I/O failures surface as a service
failure instead, never as an authentication outcome.

Parameters:
  - context: context.Context
  - email: string
  - secret: string

Returns:
  - *User: The verified account
  - error: apperr.Unauthorized or internal failures
*/
func (service *Service) VerifySecret(context context.Context, email, secret string) (*User, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		appError := apperr.As(err)
		if appError == nil || appError.HTTPStatus != http.StatusNotFound {
			// Store unreachable or query failure. This must not masquerade
			// as bad credentials.
			return nil, apperr.Internal(fmt.Errorf("auth_service_verify_lookup_failed: %w", err))
		}

		// Unknown account: equalize timing with the known-account path.
		sec.BurnSecretCheck(secret)
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if !sec.CheckSecretHash(secret, user.SecretHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if !user.Enabled() {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return user, nil
}

/*
Login validates user credentials and issues a fresh token pair.

Description: Verifies identity via [Service.VerifySecret], then issues a
short-lived access token and a single-use refresh token.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *TokenPair: Transport-ready session credentials
  - error: apperr.Unauthorized or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*TokenPair, error) {
	user, err := service.VerifySecret(context, input.Email, input.Secret)
	if err != nil {
		return nil, err
	}

	return service.issueTokenPair(context, user)
}

// issueTokenPair mints an access token and a tracked refresh token for the user.
func (service *Service) issueTokenPair(context context.Context, user *User) (*TokenPair, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.IssueAccessToken(user.ID, user.Email, user.Level, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	// Generate long-lived single-use Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	// Persist the tracking session (digest only)
	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		ExpiresAt: expiresAt,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

/*
Logout permanently revokes the presented refresh token.

Description: Idempotent; revoking an unknown or already-spent token is
treated as success.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	if err := service.sessionRepository.Revoke(context, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Session Rotation

/*
RedeemRefreshToken implements the refresh token rotation mechanism.

Description: Spends the presented refresh token and issues a fresh pair. The
spend is atomic in the store: under concurrent redemption attempts for the
same token, exactly one caller receives a new pair and every other caller
receives the same opaque authentication failure as an expired or unknown
token.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New session credentials
  - error: apperr.Unauthorized or storage failures
*/
func (service *Service) RedeemRefreshToken(context context.Context, refreshToken string) (*TokenPair, error) {

	// Atomically revoke-and-fetch. Losing the race lands here too.
	session, err := service.sessionRepository.Redeem(context, sec.HashToken(refreshToken))
	if err != nil {
		appError := apperr.As(err)
		if appError == nil || appError.HTTPStatus != http.StatusNotFound {
			return nil, apperr.Internal(fmt.Errorf("auth_service_redeem_failed: %w", err))
		}
		// Expired, revoked, and unknown collapse into one opaque failure.
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Fetch the user associated with this session
	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	if !user.Enabled() {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	return service.issueTokenPair(context, user)
}

// # API Key Management

/*
RotateAPIKey generates a replacement API key for an account.

Description: The previous key is invalidated in the same store update that
installs the new digest; there is no overlap window.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - string: The new plaintext key (visible only in this response)
  - error: apperr.NotFound or storage failures
*/
func (service *Service) RotateAPIKey(context context.Context, userID string) (string, error) {
	apiKey, err := sec.GenerateSecureToken(APIKeyLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_rotate_key_generation_failed: %w", err)
	}

	if err := service.userRepository.ReplaceAPIKeyHash(context, userID, sec.HashToken(apiKey)); err != nil {
		if appError := apperr.As(err); appError != nil {
			return "", err
		}
		return "", fmt.Errorf("auth_service_rotate_key_failed: %w", err)
	}

	return apiKey, nil
}

/*
LookupByAPIKey resolves a presented API key into identity claims.

Description: Only the SHA-256 digest of the key is used for the lookup.
Unknown keys and disabled accounts yield the same generic failure.

Parameters:
  - context: context.Context
  - apiKey: string

Returns:
  - *sec.AuthClaims: Resolved identity for the privilege gate
  - error: apperr.Unauthorized or internal failures
*/
func (service *Service) LookupByAPIKey(context context.Context, apiKey string) (*sec.AuthClaims, error) {
	user, err := service.userRepository.FindByAPIKeyHash(context, sec.HashToken(apiKey))
	if err != nil {
		appError := apperr.As(err)
		if appError == nil || appError.HTTPStatus != http.StatusNotFound {
			return nil, apperr.Internal(fmt.Errorf("auth_service_api_key_lookup_failed: %w", err))
		}
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if !user.Enabled() {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	return user.Claims(), nil
}

// # Account Administration

/*
UpdatePrivilege sets a user's privilege level and revokes their sessions.

Description: Refresh tokens minted under the old level die with the change,
forcing the next access token to carry the new level.

Parameters:
  - context: context.Context
  - userID: string
  - level: sec.Level

Returns:
  - error: apperr.NotFound or storage failures
*/
func (service *Service) UpdatePrivilege(context context.Context, userID string, level sec.Level) error {
	if err := service.userRepository.UpdatePrivilege(context, userID, level); err != nil {
		if appError := apperr.As(err); appError != nil {
			return err
		}
		return fmt.Errorf("auth_service_update_privilege_failed: %w", err)
	}

	// Outstanding refresh tokens embed nothing, but the access tokens they
	// would mint must reflect the new level.
	_ = service.sessionRepository.RevokeAll(context, userID)

	return nil
}

/*
Disable soft-disables an account and revokes all its sessions.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Disable(context context.Context, userID string) error {
	if err := service.userRepository.SoftDisable(context, userID); err != nil {
		if appError := apperr.As(err); appError != nil {
			return err
		}
		return fmt.Errorf("auth_service_disable_failed: %w", err)
	}

	_ = service.sessionRepository.RevokeAll(context, userID)

	return nil
}
