// Copyright (c) 2026 Authgate. All rights reserved.

// In-memory implementations of the auth storage contracts.
//
// Intended for tests and single-process development runs. They honor the same
// atomicity contracts as the PostgreSQL repositories (one redemption per
// refresh token, unique emails and key digests) but provide no durability.

package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/authgate/authgate/internal/platform/apperr"
	"github.com/authgate/authgate/internal/platform/sec"
)

// # In-Memory User Repository

// MemoryUserRepository implements UserRepository with a mutex-guarded map.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by ID
}

// NewMemoryUserRepository creates an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*User)}
}

// Create stores the account, enforcing email and key-digest uniqueness.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperr.Conflict("Email is already registered")
		}
		if user.APIKeyHash != "" && existing.APIKeyHash == user.APIKeyHash {
			return apperr.Conflict("API key collision")
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	clone := *user
	repository.users[user.ID] = &clone
	return nil
}

// FindByID returns the account with the given ID.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	user, found := repository.users[id]
	if !found {
		return nil, apperr.NotFound("User not found")
	}

	clone := *user
	return &clone, nil
}

// FindByEmail returns the account with the given email.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}

	return nil, apperr.NotFound("User not found with this email")
}

// FindByAPIKeyHash returns the account owning the given API key digest.
func (repository *MemoryUserRepository) FindByAPIKeyHash(_ context.Context, keyHash string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	for _, user := range repository.users {
		if user.APIKeyHash != "" && user.APIKeyHash == keyHash {
			clone := *user
			return &clone, nil
		}
	}

	return nil, apperr.NotFound("No account matches this key")
}

// UpdateSecret replaces the stored secret hash.
func (repository *MemoryUserRepository) UpdateSecret(_ context.Context, userID, newHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}

	user.SecretHash = newHash
	user.UpdatedAt = time.Now()
	return nil
}

// UpdatePrivilege replaces the stored privilege level.
func (repository *MemoryUserRepository) UpdatePrivilege(_ context.Context, userID string, level sec.Level) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}

	user.Level = level
	user.UpdatedAt = time.Now()
	return nil
}

// ReplaceAPIKeyHash swaps the stored API key digest.
func (repository *MemoryUserRepository) ReplaceAPIKeyHash(_ context.Context, userID, newKeyHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}

	user.APIKeyHash = newKeyHash
	user.UpdatedAt = time.Now()
	return nil
}

// SoftDisable marks the account as disabled.
func (repository *MemoryUserRepository) SoftDisable(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.users[userID]
	if !found {
		return apperr.NotFound("User not found")
	}

	now := time.Now()
	user.DisabledAt = &now
	user.UpdatedAt = now
	return nil
}

// # In-Memory Session Repository

// MemorySessionRepository implements SessionRepository with a mutex-guarded map.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by token hash
}

// NewMemorySessionRepository creates an empty in-memory session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*Session)}
}

// Create stores an issued session keyed by its token hash.
func (repository *MemorySessionRepository) Create(_ context.Context, session *Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	clone := *session
	repository.sessions[session.TokenHash] = &clone
	return nil
}

// Redeem spends the live session for a token hash under the store mutex,
// giving the same exactly-once guarantee as the SQL conditional update.
func (repository *MemorySessionRepository) Redeem(_ context.Context, tokenHash string) (*Session, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session, found := repository.sessions[tokenHash]
	if !found || session.RevokedAt != nil || time.Now().After(session.ExpiresAt) {
		return nil, apperr.NotFound("Session not found, expired, or already redeemed")
	}

	spent := *session
	now := time.Now()
	session.RevokedAt = &now
	return &spent, nil
}

// Revoke marks the session for a token hash as revoked. Idempotent.
func (repository *MemorySessionRepository) Revoke(_ context.Context, tokenHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	session, found := repository.sessions[tokenHash]
	if found && session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

// RevokeAll revokes every live session belonging to the user.
func (repository *MemorySessionRepository) RevokeAll(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := time.Now()
	for _, session := range repository.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			revokedAt := now
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed.
func (repository *MemorySessionRepository) DeleteExpired(_ context.Context) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := time.Now()
	for tokenHash, session := range repository.sessions {
		if now.After(session.ExpiresAt) {
			delete(repository.sessions, tokenHash)
		}
	}
	return nil
}
