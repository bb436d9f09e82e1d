package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "offers", config.RedisStream)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 30*time.Minute, config.SweepInterval)
	assert.Equal(t, 24*time.Hour, config.FullValidationInterval)
	assert.Equal(t, 5*time.Minute, config.CacheTTL)
	assert.Equal(t, 48*time.Hour, config.StalenessWindow)
	assert.Equal(t, 3, config.RetryMaxAttempts)
	assert.Equal(t, 2000*time.Millisecond, config.RetryBaseDelay)
	assert.Equal(t, 1000*time.Millisecond, config.RetryMaxJitter)

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("REDIS_DB", "1")
	os.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	os.Setenv("SWEEP_INTERVAL_MINUTES", "15")
	os.Setenv("CACHE_TTL_MINUTES", "10")
	os.Setenv("RETRY_MAX_ATTEMPTS", "5")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 15*time.Minute, config.SweepInterval)
	assert.Equal(t, 10*time.Minute, config.CacheTTL)
	assert.Equal(t, 5, config.RetryMaxAttempts)

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("REDIS_DB")
	os.Unsetenv("MEMCACHE_ADDR")
	os.Unsetenv("SWEEP_INTERVAL_MINUTES")
	os.Unsetenv("CACHE_TTL_MINUTES")
	os.Unsetenv("RETRY_MAX_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	bad := config
	bad.SweepInterval = 0
	assert.Error(t, bad.Validate())

	bad = config
	bad.CacheTTL = -time.Minute
	assert.Error(t, bad.Validate())

	bad = config
	bad.RetryMaxAttempts = 0
	assert.Error(t, bad.Validate())
}
