// Package kvstore provides the expiring key-value store backing the
// gateway's response cache, token records, and rate counters.
package kvstore

import (
	"context"
	"time"
)

// Store is an expiring key-value store. Keys are independent: operations
// are atomic at the key level and no multi-key transactions exist.
// Expiry is enforced lazily at read time; there is no background sweep.
type Store interface {
	// Get returns the value for key, or found=false if the key is absent
	// or its TTL has elapsed.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put stores value under key. A ttl of zero means the entry never
	// expires on its own.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments the counter stored under key and returns
	// the new count. The first increment in a window creates the counter
	// with the given ttl; later increments leave the expiry untouched, so
	// the window is fixed rather than sliding.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// DeleteFunc removes every key for which match returns true.
	DeleteFunc(ctx context.Context, match func(key string) bool) error

	// Close releases any resources held by the store.
	Close() error
}
