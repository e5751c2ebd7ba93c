// Copyright (c) 2026 Authgate. All rights reserved.

package sec

// # Privilege Levels

// Level represents the authorization tier granted to an account.
//
// Levels form an ordered scale: higher values satisfy lower requirements.
// The named constants cover the common deployment tiers, but any integer is
// a valid level — deployments may define intermediate tiers freely.
type Level int

const (
	// Default tier for unauthenticated callers
	LevelGuest Level = 0

	// Standard tier for registered accounts
	LevelMember Level = 1

	// Elevated tier for operational tooling
	LevelOperator Level = 2

	// Unrestricted system access
	LevelAdmin Level = 3
)

// # Level Ordering

// AtLeast reports whether the level meets or exceeds the required minimum.
//
// Equality satisfies the requirement: a level-5 identity is allowed on a
// route requiring level 5 and rejected on a route requiring level 6.
func (l Level) AtLeast(min Level) bool {
	return l >= min
}

// String returns a human-readable name for the named tiers, or "custom"
// for intermediate values.
func (l Level) String() string {
	switch l {
	case LevelGuest:
		return "guest"
	case LevelMember:
		return "member"
	case LevelOperator:
		return "operator"
	case LevelAdmin:
		return "admin"
	default:
		return "custom"
	}
}
