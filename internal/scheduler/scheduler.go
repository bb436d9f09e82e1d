// Package scheduler orchestrates the offer ingestion pipeline: per-provider
// extraction with retries, validation, URL resolution, caching, persistence
// and health accounting, on demand and on fixed intervals.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/extractor"
	"prisradar/offerworker/internal/offercache"
	"prisradar/offerworker/internal/provider"
	"prisradar/offerworker/internal/retry"
	"prisradar/offerworker/internal/urlresolver"
	"prisradar/offerworker/internal/validator"
	"prisradar/offerworker/logger"
	pkgerrors "prisradar/offerworker/pkg/errors"
	"prisradar/offerworker/services/publisher"
	"prisradar/offerworker/services/store"
)

const maxJobRecords = 200

// recentJobWindow is how many trailing job records feed the system health
// classification.
const recentJobWindow = 20

// Deps holds everything the scheduler needs. All components are injected;
// there are no package-level singletons.
type Deps struct {
	Registry   *provider.Registry
	Validator  *validator.Validator
	Resolver   *urlresolver.Resolver
	OfferCache *offercache.Cache
	Store      store.OfferStore
	Publisher  publisher.Publisher // nil disables refresh events
	Extractors map[string]extractor.Extractor

	RetryOptions           retry.Options
	StalenessWindow        time.Duration
	SweepInterval          time.Duration
	FullValidationInterval time.Duration
}

// CategoryResult is the outcome of one category run.
type CategoryResult struct {
	Category        domain.Category
	Offers          []domain.FinalizedOffer
	Report          validator.Report
	ProvidersTotal  int
	ProvidersFailed int
}

type inflightRun struct {
	done   chan struct{}
	result CategoryResult
	err    error
}

// Scheduler is the top-level pipeline orchestrator.
type Scheduler struct {
	deps Deps
	log  *logger.Logger
	now  func() time.Time

	health *healthTracker
	jobs   *jobLog

	cron    *cron.Cron
	cronMu  sync.Mutex
	running bool

	mu       sync.Mutex
	inflight map[domain.Category]*inflightRun
}

// New creates a Scheduler from its dependencies.
func New(deps Deps) *Scheduler {
	now := time.Now
	return &Scheduler{
		deps:     deps,
		log:      logger.ForScheduler(),
		now:      now,
		health:   newHealthTracker(now),
		jobs:     newJobLog(maxJobRecords, now),
		inflight: make(map[domain.Category]*inflightRun),
	}
}

// WithNow overrides the clock used for freshness flags, job timestamps and
// health updates. Tests pin it.
func (s *Scheduler) WithNow(now func() time.Time) *Scheduler {
	s.now = now
	s.health.now = now
	s.jobs.now = now
	return s
}

// RunCategory executes one immediate pipeline run for a category. A call
// made while a run for the same category is in flight joins that run and
// returns its result; the pipeline is never executed twice concurrently
// for one category.
func (s *Scheduler) RunCategory(ctx context.Context, category domain.Category) (CategoryResult, error) {
	s.mu.Lock()
	if run, ok := s.inflight[category]; ok {
		s.mu.Unlock()
		select {
		case <-run.done:
			return run.result, run.err
		case <-ctx.Done():
			return CategoryResult{}, ctx.Err()
		}
	}
	run := &inflightRun{done: make(chan struct{})}
	s.inflight[category] = run
	s.mu.Unlock()

	result, err := s.runCategory(ctx, category, false)

	run.result, run.err = result, err
	s.mu.Lock()
	delete(s.inflight, category)
	s.mu.Unlock()
	close(run.done)

	return result, err
}

// RunAll runs every category once, sequentially.
func (s *Scheduler) RunAll(ctx context.Context) map[domain.Category]CategoryResult {
	results := make(map[domain.Category]CategoryResult)
	for _, category := range domain.AllCategories() {
		result, err := s.RunCategory(ctx, category)
		if err != nil {
			s.log.Error().Err(err).Str("category", category.String()).Msg("Category run failed")
			continue
		}
		results[category] = result
	}
	return results
}

// isInflight reports whether a run for the category is currently executing.
func (s *Scheduler) isInflight(category domain.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[category]
	return ok
}

// runCategory is the pipeline body. fullReplace selects delete-then-insert
// persistence instead of per-offer upserts.
func (s *Scheduler) runCategory(ctx context.Context, category domain.Category, fullReplace bool) (CategoryResult, error) {
	configs := s.deps.Registry.EnabledConfigsForCategory(category)
	result := CategoryResult{Category: category, ProvidersTotal: len(configs)}

	if len(configs) == 0 {
		s.log.Debug().Str("category", category.String()).Msg("No enabled providers for category")
		return result, nil
	}

	start := s.now()
	var kept []domain.FinalizedOffer

	for _, cfg := range configs {
		offers, report, err := s.runProvider(ctx, cfg)
		if err != nil {
			// One bad provider never aborts the category run
			result.ProvidersFailed++
			continue
		}
		kept = append(kept, offers...)
		result.Report = mergeReports(result.Report, report)
	}

	result.Offers = kept

	s.writeOutputs(ctx, category, kept, fullReplace, result.ProvidersFailed)

	s.log.Info().
		Str("category", category.String()).
		Int("providers", result.ProvidersTotal).
		Int("failed", result.ProvidersFailed).
		Int("offers", len(kept)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Category run finished")

	return result, nil
}

// runProvider executes the extract-validate-resolve pipeline for a single
// provider and keeps its job record and health state strictly ordered.
func (s *Scheduler) runProvider(ctx context.Context, cfg provider.Config) ([]domain.FinalizedOffer, validator.Report, error) {
	record := s.jobs.start(cfg.Name, cfg.Category)
	log := s.log.WithField("provider", cfg.Name)

	ext, ok := s.deps.Extractors[cfg.Strategy]
	if !ok {
		err := fmt.Errorf("no extractor for strategy %q", cfg.Strategy)
		s.jobs.fail(record, err.Error())
		s.health.recordFailure(cfg.Name, err)
		log.Error().Err(err).Msg("Provider job failed")
		return nil, validator.Report{}, err
	}

	opts := s.deps.RetryOptions
	opts.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("Extraction attempt failed, backing off")
	}
	opts.Retryable = func(err error) bool {
		// Rate-limit blocks and other permanent classes fail immediately;
		// only transient extraction errors earn another attempt.
		if perr, ok := pkgerrors.AsPipelineError(err); ok {
			return perr.IsRetryable()
		}
		return true
	}

	raw, err := retry.Do(ctx, func(ctx context.Context) ([]domain.RawOffer, error) {
		return ext.Extract(ctx, cfg)
	}, opts)
	if err != nil {
		s.jobs.fail(record, err.Error())
		s.health.recordFailure(cfg.Name, err)
		log.Error().Err(err).Msg("Provider job failed after retries")
		return nil, validator.Report{}, err
	}

	finalized, report := s.finalize(cfg, raw)

	s.health.recordSuccess(cfg.Name)
	s.jobs.complete(record, len(finalized))
	log.Debug().Int("raw", len(raw)).Int("kept", len(finalized)).Msg("Provider job completed")

	return finalized, report, nil
}

// finalize validates raw offers, drops hidden ones, resolves outbound URLs
// and stamps freshness.
func (s *Scheduler) finalize(cfg provider.Config, raw []domain.RawOffer) ([]domain.FinalizedOffer, validator.Report) {
	results, report := s.deps.Validator.ValidateBatch(raw)

	now := s.now()
	finalized := make([]domain.FinalizedOffer, 0, len(raw))
	for i, offer := range raw {
		if results[i].ShouldHide {
			continue
		}
		finalized = append(finalized, domain.FinalizedOffer{
			RawOffer:    offer,
			Validation:  results[i],
			ResolvedURL: s.deps.Resolver.Resolve(offer),
			Fresh:       now.Sub(offer.ScrapedAt) <= s.deps.StalenessWindow,
			LogoRef:     cfg.LogoRef,
			IsActive:    true,
		})
	}
	return finalized, report
}

// mergeReports combines two batch reports; the average confidence is the
// count-weighted mean, keeping the aggregate order-independent.
func mergeReports(a, b validator.Report) validator.Report {
	merged := validator.Report{
		Total:        a.Total + b.Total,
		Valid:        a.Valid + b.Valid,
		ErrorCount:   a.ErrorCount + b.ErrorCount,
		WarningCount: a.WarningCount + b.WarningCount,
		HiddenCount:  a.HiddenCount + b.HiddenCount,
	}
	if merged.Valid > 0 {
		merged.AvgConfidence = (a.AvgConfidence*float64(a.Valid) + b.AvgConfidence*float64(b.Valid)) / float64(merged.Valid)
	}
	return merged
}

// writeOutputs persists the kept offers, refreshes the display cache and
// publishes the refresh event. Output failures are logged, never fatal.
// An empty run with provider failures is treated as an outage: previously
// stored and cached data survives it. An empty run where every provider
// succeeded means the category genuinely lists nothing.
func (s *Scheduler) writeOutputs(ctx context.Context, category domain.Category, kept []domain.FinalizedOffer, fullReplace bool, failedProviders int) {
	// Default listings only see display-grade offers; the 50-70 confidence
	// band stays in storage but out of the cache.
	display := make([]domain.FinalizedOffer, 0, len(kept))
	for _, offer := range kept {
		if offer.Validation.Confidence >= validator.DisplayThreshold {
			display = append(display, offer)
		}
	}

	if len(kept) > 0 {
		s.deps.OfferCache.Put(category, display)
	} else if failedProviders == 0 {
		s.deps.OfferCache.Invalidate(category)
	}

	if fullReplace {
		if len(kept) == 0 && failedProviders > 0 {
			s.log.Warn().
				Str("category", category.String()).
				Int("failed", failedProviders).
				Msg("Skipping category replace, run produced nothing after provider failures")
		} else if err := s.deps.Store.ReplaceCategory(ctx, category, kept); err != nil {
			s.log.Error().Err(err).Str("category", category.String()).Msg("Category replace failed")
		}
	} else if len(kept) > 0 {
		stored, err := s.deps.Store.UpsertOffers(ctx, kept)
		if err != nil {
			s.log.Error().Err(err).Str("category", category.String()).Msg("Offer persistence failed")
		} else if stored < len(kept) {
			s.log.Warn().
				Str("category", category.String()).
				Int("stored", stored).
				Int("total", len(kept)).
				Msg("Some offers were not persisted")
		}
	}

	if s.deps.Publisher != nil && len(kept) > 0 {
		event := struct {
			Category  domain.Category `json:"category"`
			Count     int             `json:"count"`
			UpdatedAt time.Time       `json:"updated_at"`
		}{category, len(display), s.now()}

		payload, err := json.Marshal(event)
		if err == nil {
			err = s.deps.Publisher.PublishRefresh(category, payload)
		}
		if err != nil {
			s.log.Error().Err(err).Str("category", category.String()).Msg("Refresh publish failed")
		}
	}
}

// StartScheduled starts the repeating sweeps: the primary category sweep at
// SweepInterval and the low-frequency full-validation sweep. A tick that
// finds a category already in flight skips it instead of preempting.
func (s *Scheduler) StartScheduled(ctx context.Context) error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.running {
		return fmt.Errorf("scheduled automation already running")
	}

	c := cron.New()

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.deps.SweepInterval), func() {
		s.runScheduledSweep(ctx, false)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc sweep: %w", err)
	}

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.deps.FullValidationInterval), func() {
		s.runScheduledSweep(ctx, true)
	}); err != nil {
		return fmt.Errorf("cron.AddFunc full validation: %w", err)
	}

	c.Start()
	s.cron = c
	s.running = true

	s.log.Info().
		Dur("sweep_interval", s.deps.SweepInterval).
		Dur("full_validation_interval", s.deps.FullValidationInterval).
		Msg("Scheduled automation started")
	return nil
}

// StopScheduled stops the repeating sweeps and waits for jobs started by
// the cron runner to return.
func (s *Scheduler) StopScheduled() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.running = false
	s.log.Info().Msg("Scheduled automation stopped")
}

func (s *Scheduler) runScheduledSweep(ctx context.Context, fullValidation bool) {
	for _, category := range domain.AllCategories() {
		if s.isInflight(category) {
			s.log.Debug().Str("category", category.String()).Msg("Run in flight, skipping tick")
			continue
		}
		if fullValidation {
			s.runFullValidation(ctx, category)
			continue
		}
		if _, err := s.RunCategory(ctx, category); err != nil {
			s.log.Error().Err(err).Str("category", category.String()).Msg("Scheduled run failed")
		}
	}

	// Streams grow with every published refresh; trim them once per sweep.
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.TrimStreams(); err != nil {
			s.log.Error().Err(err).Msg("Stream trim failed")
		}
	}
}

// runFullValidation re-runs a category with full-replace persistence,
// holding the same in-flight guard as immediate runs.
func (s *Scheduler) runFullValidation(ctx context.Context, category domain.Category) {
	s.mu.Lock()
	if _, ok := s.inflight[category]; ok {
		s.mu.Unlock()
		return
	}
	run := &inflightRun{done: make(chan struct{})}
	s.inflight[category] = run
	s.mu.Unlock()

	result, err := s.runCategory(ctx, category, true)

	run.result, run.err = result, err
	s.mu.Lock()
	delete(s.inflight, category)
	s.mu.Unlock()
	close(run.done)

	if err != nil {
		s.log.Error().Err(err).Str("category", category.String()).Msg("Full validation run failed")
	}
}

// ProviderHealth returns the current per-provider health snapshot.
func (s *Scheduler) ProviderHealth() []domain.HealthCheck {
	return s.health.snapshot()
}

// RecentJobs returns up to n job records, newest first.
func (s *Scheduler) RecentJobs(n int) []domain.ScrapingJobRecord {
	return s.jobs.recent(n)
}

// Status exports the monitoring snapshot: poor when recent failed jobs
// exceed 2, degraded when the active-source ratio drops below 80%,
// unknown before any provider has run.
func (s *Scheduler) Status() domain.SystemStatus {
	sources := s.health.snapshot()
	recent := s.jobs.recent(recentJobWindow)

	status := domain.SystemStatus{
		DataSources:  sources,
		RecentJobs:   recent,
		LastUpdate:   s.now(),
		SystemHealth: domain.HealthUnknown,
	}

	if len(sources) == 0 {
		return status
	}

	failedJobs := 0
	for _, job := range recent {
		if job.Status == domain.JobFailed {
			failedJobs++
		}
	}

	active := 0
	for _, source := range sources {
		if source.Healthy {
			active++
		}
	}
	activeRatio := float64(active) / float64(len(sources))

	switch {
	case failedJobs > 2:
		status.SystemHealth = domain.HealthPoor
	case activeRatio < 0.8:
		status.SystemHealth = domain.HealthDegraded
	default:
		status.SystemHealth = domain.HealthGood
	}
	return status
}
