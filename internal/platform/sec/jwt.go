// Copyright (c) 2026 Authgate. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces defined at the point of use.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation sentinels. Internally the issuer distinguishes expiry from
// signature failures; the transport layer collapses both into one opaque
// authentication failure before anything reaches a client.
var (
	// ErrTokenExpired marks a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid marks a malformed token or one whose signature does not verify.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrWeakSecret is returned at construction when the signing secret is too short.
	ErrWeakSecret = errors.New("sec: signing secret below minimum length")
)

// minSecretLength mirrors constants.MinSigningSecretLength without importing
// it (sec sits below constants in the dependency order).
const minSecretLength = 32

// AuthClaims represents the payload embedded inside a JWT access token.
//
// # Why custom claims?
//
// By embedding the UserID, Email, and Level directly inside the JWT, the
// request mediator can authorize token-protected routes WITHOUT querying the
// database on the hot path. Validity is determined purely by signature and
// expiry.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Email  string `json:"eml"`
	Level  Level  `json:"lvl"`
}

// TokenService handles generation and verification of JWT tokens using HS256.
//
// The signing secret is loaded once at process start and never mutated;
// rotating it is a deployment concern and invalidates all previously issued
// access tokens.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService creates a new TokenService from a process-wide secret.
//
// It refuses secrets shorter than 32 bytes: running with a weak signing key
// silently breaks the forgery guarantee, so startup must fail instead.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrWeakSecret, len(secret), minSecretLength)
	}

	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// IssueAccessToken creates a new signed JWT access token for an identity.
func (service *TokenService) IssueAccessToken(userID, email string, level Level, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: userID,
		Email:  email,
		Level:  level,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken checks the signature and validity of a JWT string.
//
// Returns [ErrTokenExpired] for expired tokens and [ErrTokenInvalid] for
// every other failure (bad signature, wrong algorithm, malformed payload).
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
