// Copyright (c) 2026 Authgate. All rights reserved.

package auth

import (
	"context"

	"github.com/authgate/authgate/internal/platform/sec"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Every mutation must be durably persisted before the call returns; the auth
// service treats a returned nil as a committed write.
type UserRepository interface {

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate email or API key hash,
		    otherwise persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByAPIKeyHash returns the account owning the given API key digest.

		Parameters:
		  - context: context.Context
		  - keyHash: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByAPIKeyHash(context context.Context, keyHash string) (*User, error)

	/*
		UpdateSecret replaces only the user's secret hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdateSecret(context context.Context, userID, newHash string) error

	/*
		UpdatePrivilege replaces the user's privilege level.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - level: sec.Level

		Returns:
		  - error: Persistence failures
	*/
	UpdatePrivilege(context context.Context, userID string, level sec.Level) error

	/*
		ReplaceAPIKeyHash swaps the stored API key digest. The previous key
		stops resolving the moment this returns.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newKeyHash: string

		Returns:
		  - error: Persistence failures
	*/
	ReplaceAPIKeyHash(context context.Context, userID, newKeyHash string) error

	/*
		SoftDisable marks the account as disabled without removing the row.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	SoftDisable(context context.Context, userID string) error
}

// # Session Data Access

// SessionRepository defines the data access contract for refresh-token sessions.
type SessionRepository interface {

	/*
		Create persists a new session for an issued refresh token.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		Redeem atomically revokes the live session matching the token hash and
		returns it. Revocation and retrieval are one operation: under K
		concurrent calls for the same hash, exactly one succeeds and the rest
		observe an already-spent session.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: The session as it was before revocation
		  - error: apperr.NotFound when the hash matches no live session
		    (unknown, expired, or already redeemed), otherwise storage failures
	*/
	Redeem(context context.Context, tokenHash string) (*Session, error)

	/*
		Revoke marks the session with the given token hash as invalidated.
		Revoking an unknown or already-revoked hash is not an error.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	Revoke(context context.Context, tokenHash string) error

	/*
		RevokeAll revokes every live session belonging to the userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Batch revocation failures
	*/
	RevokeAll(context context.Context, userID string) error

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context) error
}
