// Package storage holds the key-value backends that keep cart sessions.
//
// Values are opaque strings; the cart package owns their encoding. A backend
// is shared by every session, so keys must already carry the session
// namespace (see cart.Keys).
package storage

import "context"

// KV is a flat string key-value store.
type KV interface {
	// Get returns found=false with a nil error when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}
