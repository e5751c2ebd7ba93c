// Copyright (c) 2026 Authgate. All rights reserved.

package gate

import (
	"crypto/sha256"
	"crypto/subtle"
)

// VerifyRoutePassword compares a route's configured secret with the value a
// request presented.
//
// Both sides are reduced to SHA-256 digests before the comparison, so the
// comparison runs over fixed-length inputs: neither the position of the first
// mismatching character nor the length of the candidate affects timing.
func VerifyRoutePassword(routeSecret, provided string) bool {
	secretDigest := sha256.Sum256([]byte(routeSecret))
	providedDigest := sha256.Sum256([]byte(provided))

	return subtle.ConstantTimeCompare(secretDigest[:], providedDigest[:]) == 1
}
