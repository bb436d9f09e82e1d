package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// keyPrefix namespaces every entry so several workers can share one
// memcached instance without colliding on provider names.
const keyPrefix = "offerworker:"

// MemcacheService implements CacheService on top of memcached.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService connects to memcached at the given address. The client
// is lazy, so a down instance surfaces as errors on first use rather than
// here.
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value. A missing key returns memcache.ErrCacheMiss, which
// callers treat as "no cooldown active".
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(keyPrefix + key)
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value with an expiration. Memcached takes whole seconds, so
// cooldown windows should always be at least one second.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        keyPrefix + key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value. Deleting an absent key is not an error for our
// callers, so ErrCacheMiss is swallowed.
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(keyPrefix + key)
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}
