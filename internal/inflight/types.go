// Package inflight keeps one checkout per cart session in flight at a time.
//
// The ordering backend takes no idempotency key, so a second click while a
// submission is outstanding would create a second order. A Guard turns that
// second click into an explicit rejection; it does not make retries safe.
package inflight

import (
	"context"
	"time"
)

// Guard hands out per-key leases.
type Guard interface {
	// Acquire returns ok=false when another holder has an unexpired lease on key.
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	// Release drops the lease if token still owns it.
	Release(ctx context.Context, key, token string) error
}

// LockRecord is the shape persisted in the inflight DynamoDB table.
type LockRecord struct {
	LockKey   string    `dynamodbav:"lock_key"` // PK
	Owner     string    `dynamodbav:"owner"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	ExpiresAt int64     `dynamodbav:"expires_at"` // TTL epoch seconds
}
