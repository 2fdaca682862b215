// Package cache declares the store the HTTP throttle keeps blocked
// clients in. Implementations live in subpackages.
package cache

import "time"

// Cache maps a key to a value with an admission cost. The throttle keys it
// by client address and stores true for every blocked client.
type Cache[K comparable, V any] interface {
	// Get reports the value for key and whether it is present and not
	// expired.
	Get(key K) (V, bool)

	// Set stores value without expiry. It returns false when the cache
	// declined the entry.
	Set(key K, value V, cost int64) bool

	// SetWithTTL stores value until ttl elapses, the block duration for a
	// throttled client. It returns false when the cache declined the entry.
	SetWithTTL(key K, value V, cost int64, ttl time.Duration) bool
}
