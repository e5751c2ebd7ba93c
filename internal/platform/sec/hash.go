// Copyright (c) 2026 Authgate. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret hashes a plain-text secret using the bcrypt algorithm.
func HashSecret(plainTextSecret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextSecret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckSecretHash compares a plain-text secret with its hashed version.
// bcrypt's comparison is constant-time over the hash output.
func CheckSecretHash(plainTextSecret, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextSecret))
	return err == nil
}

// dummyHash is a valid bcrypt digest of an unguessable value. Credential
// verification compares against it when the account does not exist so the
// unknown-user path costs the same bcrypt work as the wrong-secret path.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("authgate-timing-equalizer"), bcrypt.DefaultCost)
	if err != nil {
		panic("sec: failed to precompute dummy hash: " + err.Error())
	}
	return string(h)
}()

// BurnSecretCheck performs a bcrypt comparison against a dummy digest and
// discards the result. Called on the unknown-account path of credential
// verification to keep its timing aligned with a real comparison.
func BurnSecretCheck(plainTextSecret string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plainTextSecret))
}

// # Opaque Tokens

// GenerateSecureToken returns a hex-encoded random token of byteLength
// random bytes. Used for refresh tokens and API keys.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque token.
//
// Refresh tokens and API keys are stored only as digests: a leaked storage
// snapshot never yields a usable bearer credential, and digest lookups stay
// O(1) via a unique index.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
