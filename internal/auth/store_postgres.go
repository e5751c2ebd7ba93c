// Copyright (c) 2026 Authgate. All rights reserved.

// PostgreSQL implementations of the auth storage contracts.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They implement
// the domain-defined interfaces ([UserRepository], [SessionRepository]) using
// the [pgxpool.Pool] connection manager.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/dberr"
	"github.com/authgate/authgate/internal/platform/sec"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the auth.account table.

Description: Persists the account with its hashed secret and API key digest,
initializing timestamps if not provided.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate email or key, otherwise Internal
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO auth.account (
			id, email, secrethash, apikeyhash, level, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.SecretHash,
		user.APIKeyHash,
		user.Level,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Email is already registered")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by their unique ID.

Description: Primary key resolution for user accounts.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, secrethash, apikeyhash, level, disabledat, createdat, updatedat
		FROM auth.account
		WHERE id = $1`

	return repository.scanOne(context, query, id, "User not found")
}

/*
FindByEmail retrieves a user record by their unique email address.

Description: Lookup used on the login path; includes disabled accounts so
the service can distinguish disabled from unknown internally.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, secrethash, apikeyhash, level, disabledat, createdat, updatedat
		FROM auth.account
		WHERE LOWER(email) = LOWER($1)`

	return repository.scanOne(context, query, email, "User not found with this email")
}

/*
FindByAPIKeyHash retrieves a user record by the digest of their API key.

Description: Securely resolves a presented API key into an account without
the plaintext key ever touching the database.

Parameters:
  - context: context.Context
  - keyHash: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByAPIKeyHash(context context.Context, keyHash string) (*User, error) {
	const query = `
		SELECT id, email, secrethash, apikeyhash, level, disabledat, createdat, updatedat
		FROM auth.account
		WHERE apikeyhash = $1`

	return repository.scanOne(context, query, keyHash, "No account matches this key")
}

// scanOne runs a single-row account query and hydrates the entity.
func (repository *PostgresUserRepository) scanOne(context context.Context, query, argument, notFoundMessage string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Email,
		&user.SecretHash,
		&user.APIKeyHash,
		&user.Level,
		&user.DisabledAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(notFoundMessage)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}

/*
UpdateSecret updates only the secret hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdateSecret(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE auth.account
		SET secrethash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_secret_failed: %w", err)
	}

	return nil
}

/*
UpdatePrivilege replaces the privilege level for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - level: sec.Level

Returns:
  - error: apperr.NotFound when no account matches, or execution errors
*/
func (repository *PostgresUserRepository) UpdatePrivilege(context context.Context, userID string, level sec.Level) error {
	const query = `
		UPDATE auth.account
		SET level = $2, updatedat = $3
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, userID, level, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_privilege_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}

	return nil
}

/*
ReplaceAPIKeyHash swaps the stored API key digest for a specific user.

Description: The old key stops resolving as soon as the UPDATE commits,
making rotation an immediate invalidation.

Parameters:
  - context: context.Context
  - userID: string
  - newKeyHash: string

Returns:
  - error: apperr.NotFound when no account matches, or execution errors
*/
func (repository *PostgresUserRepository) ReplaceAPIKeyHash(context context.Context, userID, newKeyHash string) error {
	const query = `
		UPDATE auth.account
		SET apikeyhash = $2, updatedat = $3
		WHERE id = $1`

	tag, err := repository.pool.Exec(context, query, userID, newKeyHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_replace_api_key_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}

	return nil
}

/*
SoftDisable marks a user account as disabled using their ID.

Description: Retention-friendly deactivation by setting disabledat; rows are
never physically removed while tokens referencing them may exist.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Side-effect failures
*/
func (repository *PostgresUserRepository) SoftDisable(context context.Context, userID string) error {
	const query = "UPDATE auth.account SET disabledat = $2, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_soft_disable_failed: %w", err)
	}
	return nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the auth.session table.

Description: Records an issued refresh token (as a digest) in persistent storage.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO auth.session (
			id, userid, tokenhash, expiresat, createdat
		) VALUES ($1, $2, $3, $4, $5)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)

	return dberr.Wrap(err, "postgres_session_repo_create")
}

/*
Redeem atomically revokes and returns the live session for a token hash.

Description: A single conditional UPDATE ... RETURNING both spends the session
and reads it. Postgres row locking serializes concurrent redemptions of the
same hash: the first UPDATE wins, every later one matches zero rows.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: The spent session
  - error: apperr.NotFound when no live session matches, or execution errors
*/
func (repository *PostgresSessionRepository) Redeem(context context.Context, tokenHash string) (*Session, error) {
	const query = `
		UPDATE auth.session
		SET revokedat = NOW()
		WHERE tokenhash = $1 AND revokedat IS NULL AND expiresat > NOW()
		RETURNING id, userid, tokenhash, expiresat, createdat`

	session := &Session{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session not found, expired, or already redeemed")
		}
		return nil, fmt.Errorf("postgres_session_repo_redeem_failed: %w", err)
	}

	return session, nil
}

/*
Revoke marks the session with the given token hash as revoked.

Description: Idempotent; revoking an unknown or already-spent hash affects
zero rows and is not an error.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Revocation failures
*/
func (repository *PostgresSessionRepository) Revoke(context context.Context, tokenHash string) error {
	const query = "UPDATE auth.session SET revokedat = NOW() WHERE tokenhash = $1 AND revokedat IS NULL"
	_, err := repository.pool.Exec(context, query, tokenHash)
	return dberr.Wrap(err, "postgres_session_repo_revoke")
}

/*
RevokeAll marks all live sessions for a user as revoked.

Description: Security nuking of every refresh token for a user, used on
privilege changes and account disable.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) error {
	const query = "UPDATE auth.session SET revokedat = NOW() WHERE userid = $1 AND revokedat IS NULL"
	_, err := repository.pool.Exec(context, query, userID)
	return dberr.Wrap(err, "postgres_session_repo_revoke_all")
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM auth.session WHERE expiresat <= NOW()"
	_, err := repository.pool.Exec(context, query)
	return dberr.Wrap(err, "postgres_session_repo_delete_expired")
}
