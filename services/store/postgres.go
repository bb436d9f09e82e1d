package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/logger"
	pkgerrors "prisradar/offerworker/pkg/errors"
)

// PostgresStore implements OfferStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore connects to databaseURL, verifies connectivity, and
// ensures the offers table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	s := &PostgresStore{pool: pool, log: logger.ForStore()}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS offers (
			category TEXT NOT NULL,
			provider_name TEXT NOT NULL,
			plan_name TEXT NOT NULL,
			monthly_price DOUBLE PRECISION NOT NULL,
			offer_url TEXT NOT NULL,
			source_url TEXT,
			data_allowance TEXT,
			speed TEXT,
			contract_length TEXT,
			features JSONB DEFAULT '{}'::jsonb,
			logo_ref TEXT,
			confidence INTEGER NOT NULL DEFAULT 0,
			scraped_at TIMESTAMP WITH TIME ZONE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (category, provider_name, plan_name)
		)
	`)
	return err
}

const upsertSQL = `
	INSERT INTO offers (
		category, provider_name, plan_name, monthly_price,
		offer_url, source_url, data_allowance, speed, contract_length,
		features, logo_ref, confidence, scraped_at, is_active, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	ON CONFLICT (category, provider_name, plan_name) DO UPDATE SET
		monthly_price = EXCLUDED.monthly_price,
		offer_url = EXCLUDED.offer_url,
		source_url = EXCLUDED.source_url,
		data_allowance = EXCLUDED.data_allowance,
		speed = EXCLUDED.speed,
		contract_length = EXCLUDED.contract_length,
		features = EXCLUDED.features,
		logo_ref = EXCLUDED.logo_ref,
		confidence = EXCLUDED.confidence,
		scraped_at = EXCLUDED.scraped_at,
		is_active = EXCLUDED.is_active,
		updated_at = NOW()
`

// UpsertOffers writes offers one by one. A failing offer is logged and
// skipped; it never aborts the rest of the batch.
func (s *PostgresStore) UpsertOffers(ctx context.Context, offers []domain.FinalizedOffer) (int, error) {
	stored := 0
	for _, offer := range offers {
		if err := s.upsertOne(ctx, s.pool, offer); err != nil {
			perr := pkgerrors.NewPersistence(offer.Provider, "upsert failed for "+offer.Key(), err)
			s.log.Error().Err(perr).Str("key", offer.Key()).Msg("Failed to persist offer")
			continue
		}
		stored++
	}
	return stored, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) upsertOne(ctx context.Context, q execer, offer domain.FinalizedOffer) error {
	features, err := json.Marshal(offer.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	_, err = q.Exec(ctx, upsertSQL,
		offer.Category.String(), offer.Provider, offer.PlanName, offer.MonthlyPrice,
		offer.ResolvedURL, offer.SourceURL, offer.DataAllowance, offer.Speed,
		offer.ContractLength, string(features), offer.LogoRef,
		offer.Validation.Confidence, offer.ScrapedAt, offer.IsActive,
	)
	return err
}

// ReplaceCategory replaces the full offer set for a category inside a
// transaction so readers never observe a half-replaced category.
func (s *PostgresStore) ReplaceCategory(ctx context.Context, category domain.Category, offers []domain.FinalizedOffer) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM offers WHERE category = $1`, category.String()); err != nil {
		return fmt.Errorf("delete category %s: %w", category, err)
	}

	for _, offer := range offers {
		if err := s.upsertOne(ctx, tx, offer); err != nil {
			return fmt.Errorf("insert %s: %w", offer.Key(), err)
		}
	}

	return tx.Commit(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
