// Copyright (c) 2026 Authgate. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (token service, limiter) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/authgate/authgate/internal/platform/constants"
)

// # Configuration Schema

// Config holds all runtime configuration for the Authgate server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis). Optional: when empty, rate limiting runs
	// against the in-process limiter instead of shared counters.
	RedisURL string `env:"REDIS_URL"`

	// JWTSecret signs all access tokens for the process lifetime.
	// Supplied once at startup; rotating it invalidates every token whose
	// signature no longer verifies.
	JWTSecret string `env:"AUTH_JWT_SECRET,required"`

	// RoutePassword guards the /api/v1/status route when set. Empty leaves
	// the route unprotected.
	RoutePassword string `env:"ROUTE_PASSWORD"`

	// Rate limiting budget, fixed per deployment (not hot-reloadable).
	RateLimitMax           int `env:"RATE_LIMIT_MAX"            envDefault:"100"`
	RateLimitWindowSeconds int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates
// the security-critical fields.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces invariants the env tags cannot express. A weak signing
// secret or nonsensical rate budget must stop the process before it serves
// a single request.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < constants.MinSigningSecretLength {
		return fmt.Errorf("config: AUTH_JWT_SECRET must be at least %d bytes, got %d",
			constants.MinSigningSecretLength, len(c.JWTSecret))
	}

	if c.RateLimitMax <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}

	if c.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", c.RateLimitWindowSeconds)
	}

	return nil
}

// RateLimitWindow returns the configured window as a [time.Duration].
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
