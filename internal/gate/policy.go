// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package gate implements the request mediator: the single admission pipeline
every inbound request passes through.

Each request is sequenced through a fixed state machine:

	Start -> RateCheck -> CredentialCheck (per route policy) -> PrivilegeCheck -> Forward | Reject

Route protection is declared up front as an explicit, validated [Config]
constructed once at startup and handed to [New]; there is no way to mutate
the routing policy of a running gate, so a partially-configured gate cannot
exist.
*/
package gate

import (
	"fmt"
	"strings"

	"github.com/authgate/authgate/internal/platform/sec"
)

// # Route Policies

// PolicyKind selects the protection scheme attached to a route.
type PolicyKind int

const (
	// PolicyPublic admits any request that clears the rate check.
	PolicyPublic PolicyKind = iota

	// PolicyPassword requires the route's static secret on every request.
	PolicyPassword

	// PolicyToken requires a valid identity credential (JWT or API key) at
	// or above the route's minimum privilege level.
	PolicyToken
)

// String names the policy kind for logs and configuration errors.
func (kind PolicyKind) String() string {
	switch kind {
	case PolicyPublic:
		return "public"
	case PolicyPassword:
		return "password"
	case PolicyToken:
		return "token"
	default:
		return "unknown"
	}
}

// Policy is the protection configuration for a single route.
//
// Immutable after registration; the gate copies policies into its internal
// table at construction.
type Policy struct {
	Kind PolicyKind

	// Secret is the static route password. Only meaningful for PolicyPassword.
	Secret string

	// MinLevel is the minimum privilege required. Only meaningful for PolicyToken.
	MinLevel sec.Level
}

// Public builds a no-auth policy.
func Public() Policy {
	return Policy{Kind: PolicyPublic}
}

// PasswordProtected builds a static-password policy.
func PasswordProtected(secret string) Policy {
	return Policy{Kind: PolicyPassword, Secret: secret}
}

// TokenProtected builds an identity policy with a minimum privilege level.
func TokenProtected(minLevel sec.Level) Policy {
	return Policy{Kind: PolicyToken, MinLevel: minLevel}
}

// # Gate Configuration

// Route binds a path to its protection policy.
type Route struct {
	Path   string
	Policy Policy
}

// Config is the complete route-protection declaration handed to the gate at
// startup.
type Config struct {
	Routes []Route
}

// Validate rejects configurations that would silently weaken protection:
// empty or duplicate paths, and password policies with an empty secret.
func (config Config) Validate() error {
	seen := make(map[string]struct{}, len(config.Routes))

	for _, route := range config.Routes {
		path := strings.TrimSpace(route.Path)
		if path == "" {
			return fmt.Errorf("gate: route with empty path")
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("gate: route path %q must start with '/'", path)
		}
		if _, duplicate := seen[path]; duplicate {
			return fmt.Errorf("gate: duplicate route path %q", path)
		}
		seen[path] = struct{}{}

		if route.Policy.Kind == PolicyPassword && route.Policy.Secret == "" {
			return fmt.Errorf("gate: route %q declares password protection with an empty secret", path)
		}
		if route.Policy.Kind == PolicyToken && route.Policy.MinLevel < sec.LevelGuest {
			return fmt.Errorf("gate: route %q declares a negative privilege level", path)
		}
	}

	return nil
}

// table builds the immutable path lookup used on the hot path.
func (config Config) table() map[string]Policy {
	policies := make(map[string]Policy, len(config.Routes))
	for _, route := range config.Routes {
		policies[route.Path] = route.Policy
	}
	return policies
}
