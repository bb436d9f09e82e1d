package store

import (
	"context"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/logger"
)

// OfferStore is the persisted keyed record store for finalized offers.
// Offers are keyed by (category, provider_name, plan_name).
type OfferStore interface {
	// UpsertOffers writes offers one by one, tolerating per-offer failures.
	// Returns the number of offers actually stored.
	UpsertOffers(ctx context.Context, offers []domain.FinalizedOffer) (int, error)

	// ReplaceCategory replaces the full offer set for a category
	// (delete-then-insert) in a single transaction.
	ReplaceCategory(ctx context.Context, category domain.Category, offers []domain.FinalizedOffer) error

	// Close releases the underlying connections.
	Close()
}

// NoopStore counts writes without persisting anything. Used when no
// DATABASE_URL is configured.
type NoopStore struct {
	log *logger.Logger
}

// NewNoopStore creates a store that only logs.
func NewNoopStore() *NoopStore {
	return &NoopStore{log: logger.ForStore()}
}

func (s *NoopStore) UpsertOffers(_ context.Context, offers []domain.FinalizedOffer) (int, error) {
	s.log.Debug().Int("count", len(offers)).Msg("Persistence disabled, dropping offers")
	return len(offers), nil
}

func (s *NoopStore) ReplaceCategory(_ context.Context, category domain.Category, offers []domain.FinalizedOffer) error {
	s.log.Debug().
		Str("category", category.String()).
		Int("count", len(offers)).
		Msg("Persistence disabled, dropping category replace")
	return nil
}

func (s *NoopStore) Close() {}
