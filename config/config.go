package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration (extractor fetch-block cache)
	MemcacheAddr string

	// Postgres configuration (persisted offer store); empty disables persistence
	DatabaseURL string

	// Scheduling configuration
	SweepInterval          time.Duration
	FullValidationInterval time.Duration

	// Pipeline configuration
	CacheTTL         time.Duration
	StalenessWindow  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxJitter   time.Duration

	// Tracking parameters for resolved outbound URLs
	TrackingSource string
	TrackingMedium string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	sweepMinutes, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_MINUTES", "30"))
	fullValidationHours, _ := strconv.Atoi(getEnv("FULL_VALIDATION_INTERVAL_HOURS", "24"))
	cacheTTLMinutes, _ := strconv.Atoi(getEnv("CACHE_TTL_MINUTES", "5"))
	stalenessHours, _ := strconv.Atoi(getEnv("STALENESS_WINDOW_HOURS", "48"))
	retryAttempts, _ := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "3"))
	retryBaseDelayMs, _ := strconv.Atoi(getEnv("RETRY_BASE_DELAY_MS", "2000"))
	retryMaxJitterMs, _ := strconv.Atoi(getEnv("RETRY_MAX_JITTER_MS", "1000"))

	return Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "offers"),
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),

		SweepInterval:          time.Duration(sweepMinutes) * time.Minute,
		FullValidationInterval: time.Duration(fullValidationHours) * time.Hour,

		CacheTTL:         time.Duration(cacheTTLMinutes) * time.Minute,
		StalenessWindow:  time.Duration(stalenessHours) * time.Hour,
		RetryMaxAttempts: retryAttempts,
		RetryBaseDelay:   time.Duration(retryBaseDelayMs) * time.Millisecond,
		RetryMaxJitter:   time.Duration(retryMaxJitterMs) * time.Millisecond,

		TrackingSource: getEnv("TRACKING_SOURCE", "prisradar"),
		TrackingMedium: getEnv("TRACKING_MEDIUM", "comparison"),

		Environment: getEnv("OFFERWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", c.SweepInterval)
	}
	if c.FullValidationInterval <= 0 {
		return fmt.Errorf("full validation interval must be positive, got %v", c.FullValidationInterval)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", c.CacheTTL)
	}
	if c.StalenessWindow <= 0 {
		return fmt.Errorf("staleness window must be positive, got %v", c.StalenessWindow)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.RetryMaxAttempts)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
