// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package auth implements the credential store and token lifecycle layer.

It defines the core domain entities (User, Session) and the logic for
registration, credential verification, API key management, and refresh-token
rotation.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/authgate/authgate/internal/platform/sec"
)

// # Domain Entities

// User represents a registered principal of the authorization layer.
//
// Accounts are never physically deleted while tokens referencing them may
// exist; DisabledAt soft-disables the account instead.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	SecretHash string     `json:"-"` // Explicitly omitted from JSON for security.
	APIKeyHash string     `json:"-"` // Only the digest is ever stored or serialized.
	Level      sec.Level  `json:"level"`
	DisabledAt *time.Time `json:"disabled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Enabled reports whether the account may authenticate.
func (user *User) Enabled() bool {
	return user.DisabledAt == nil
}

// Claims maps the account to the identity payload carried by access tokens.
func (user *User) Claims() *sec.AuthClaims {
	return &sec.AuthClaims{
		UserID: user.ID,
		Email:  user.Email,
		Level:  user.Level,
	}
}

// Session represents one live refresh token.
//
// The plaintext token is never stored; TokenHash is its SHA-256 digest. A
// session is spendable while RevokedAt is nil and ExpiresAt is in the future,
// and every redemption revokes it in the same operation that reads it.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // Hashed value of the refresh token. Omitted for security.
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldLevel       = "level"
	FieldUserID      = "user_id"
	FieldAPIKey      = "api_key"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldUser        = "user"
	FieldMessage     = "message"
)
