package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed transaction identifiers so duplicate
// submissions can be rejected cheaply, before any storage work happens.
// The movement ledger remains the authoritative dedupe source; this store is
// a fast path with a TTL.
type IdempotencyStore interface {
	// MarkProcessed marks a transaction as processed with a TTL.
	// Returns true if the transaction was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, transactionID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a transaction has already been processed
	IsProcessed(ctx context.Context, transactionID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed transaction IDs
	TTL time.Duration

	// Enabled determines whether the fast-path check is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
