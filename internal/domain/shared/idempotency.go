package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys that must be acted on at most once within a TTL.
// It backs webhook event deduplication and submission claims.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL
	// Returns true if the key was newly marked, false if it was already held
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key is currently held
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a key so it can be marked again
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a webhook event id is remembered
	// Default: 24 hours
	TTL time.Duration

	// ClaimTTL bounds how long a submission claim blocks a retry if the
	// holder dies before releasing it
	// Default: 2 minutes
	ClaimTTL time.Duration

	// Enabled determines whether event deduplication is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:      24 * time.Hour,
		ClaimTTL: 2 * time.Minute,
		Enabled:  true,
	}
}
