package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"prisradar/offerworker/config"
	"prisradar/offerworker/internal/extractor"
	"prisradar/offerworker/internal/offercache"
	"prisradar/offerworker/internal/provider"
	"prisradar/offerworker/internal/retry"
	"prisradar/offerworker/internal/scheduler"
	"prisradar/offerworker/internal/urlresolver"
	"prisradar/offerworker/internal/validator"
	"prisradar/offerworker/logger"
	"prisradar/offerworker/services/cache"
	"prisradar/offerworker/services/publisher"
	"prisradar/offerworker/services/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the pipeline
	registry := provider.NewRegistry()

	extractorDeps := extractor.Deps{
		Cache:     services.Cache,
		BlockTime: 5 * time.Minute,
	}
	extractors := map[string]extractor.Extractor{
		provider.StrategyHTML: extractor.NewHTMLExtractor(extractorDeps),
		provider.StrategyAPI:  extractor.NewAPIExtractor(extractorDeps),
	}

	sched := scheduler.New(scheduler.Deps{
		Registry:   registry,
		Validator:  validator.New(cfg.StalenessWindow, registry.KnownProviders()),
		Resolver:   urlresolver.New(registry, cfg.TrackingSource, cfg.TrackingMedium),
		OfferCache: offercache.New(cfg.CacheTTL),
		Store:      services.Store,
		Publisher:  services.Publisher,
		Extractors: extractors,
		RetryOptions: retry.Options{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxJitter:   cfg.RetryMaxJitter,
		},
		StalenessWindow:        cfg.StalenessWindow,
		SweepInterval:          cfg.SweepInterval,
		FullValidationInterval: cfg.FullValidationInterval,
	})

	// Start scheduled automation and warm the caches immediately
	if err := sched.StartScheduled(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduled automation")
	}

	warmDone := make(chan struct{})
	go func() {
		defer close(warmDone)
		results := sched.RunAll(ctx)
		total := 0
		for _, result := range results {
			total += len(result.Offers)
		}
		log.Info().Int("offers", total).Msg("Initial sweep finished")
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")
	cancel()

	// Graceful shutdown
	sched.StopScheduled()
	<-warmDone
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     store.OfferStore
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize the extractor block cache
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if cacheService == nil {
		return nil, fmt.Errorf("failed to create cache service")
	}
	services.Cache = cacheService

	logger.Default.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Default.Info().
		Str("addr", cfg.RedisAddr).
		Int("db", cfg.RedisDB).
		Str("stream", cfg.RedisStream).
		Msg("Connected to Redis")

	// Initialize the persisted offer store
	if cfg.DatabaseURL == "" {
		logger.Default.Warn().Msg("DATABASE_URL not set, offer persistence disabled")
		services.Store = store.NewNoopStore()
		return services, nil
	}

	pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	services.Store = pgStore

	logger.Default.Info().Msg("Connected to Postgres")

	return services, nil
}
