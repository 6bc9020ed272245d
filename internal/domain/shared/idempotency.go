package shared

import (
	"context"
	"time"
)

// IdempotencyStore records operation keys so that a retried request is not applied twice
type IdempotencyStore interface {
	// Claim marks a key as in use with a TTL
	// Returns true if the key was newly claimed, false if it was already claimed
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsClaimed checks if a key is currently claimed
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the operation can be retried after a failure
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks a second attempt
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency keys are honoured
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
