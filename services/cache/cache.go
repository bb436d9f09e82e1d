package cache

import (
	"time"
)

// CacheService is the keyed byte cache used by extractors to hold short-lived
// per-provider cooldown markers (rate-limit blocks).
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
