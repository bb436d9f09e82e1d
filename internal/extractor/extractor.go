// Package extractor obtains raw offer records from provider targets.
// An extractor performs exactly one outbound call per invocation and fails
// fast: retries and validation are the caller's responsibility.
package extractor

import (
	"context"
	"fmt"
	"time"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/provider"
	"prisradar/offerworker/services/cache"
)

// Extractor produces zero or more raw offers for a provider configuration.
type Extractor interface {
	// Extract fetches the provider target and extracts raw offers
	Extract(ctx context.Context, cfg provider.Config) ([]domain.RawOffer, error)

	// Name returns the extractor's name for logging and identification
	Name() string
}

// Deps holds the shared services extractors need.
type Deps struct {
	// Cache holds per-provider cooldown markers; nil disables blocking.
	Cache cache.CacheService
	// BlockTime is how long a rate-limited provider is left alone.
	BlockTime time.Duration
}

// ForStrategy returns the extractor implementing the given strategy id.
func ForStrategy(strategy string, deps Deps) (Extractor, error) {
	switch strategy {
	case provider.StrategyHTML:
		return NewHTMLExtractor(deps), nil
	case provider.StrategyAPI:
		return NewAPIExtractor(deps), nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
	}
}
