// Package validator scores raw offers for completeness, price plausibility,
// freshness and provider trust. Validation is a data outcome, never an
// exception: a bad offer is excluded, not raised.
package validator

import (
	"net/url"
	"strings"
	"time"

	"prisradar/offerworker/internal/domain"
)

const (
	// HideThreshold is the confidence below which an offer is hidden.
	HideThreshold = 50
	// DisplayThreshold is the stricter bound for default listings. Offers
	// scoring in [HideThreshold, DisplayThreshold) stay in storage but are
	// excluded from the cached display set.
	DisplayThreshold = 70

	baseConfidence = 100

	missingFieldPenalty    = 15
	nonPositivePricePenalty = 10
	malformedURLPenalty    = 5
	staleTimestampPenalty  = 8
	unknownProviderPenalty = 7
)

// Validator applies the scoring rules to raw offers.
type Validator struct {
	stalenessWindow time.Duration
	known           map[string]bool
	now             func() time.Time
}

// New creates a Validator with the given staleness window and
// known-provider allowlist.
func New(stalenessWindow time.Duration, knownProviders []string) *Validator {
	known := make(map[string]bool, len(knownProviders))
	for _, name := range knownProviders {
		known[strings.ToLower(name)] = true
	}
	return &Validator{
		stalenessWindow: stalenessWindow,
		known:           known,
		now:             time.Now,
	}
}

// WithNow overrides the clock. Tests use this to pin freshness checks.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate scores a single offer. Rules apply independently and additively;
// confidence floors at zero.
func (v *Validator) Validate(offer domain.RawOffer) domain.ValidationResult {
	result := domain.ValidationResult{Confidence: baseConfidence}

	type required struct {
		name    string
		present bool
	}
	fields := []required{
		{"provider_name", offer.Provider != ""},
		{"category", offer.Category != ""},
		{"monthly_price", offer.MonthlyPrice != 0},
		{"plan_name", offer.PlanName != ""},
		{"offer_url", offer.OfferURL != ""},
		{"source_url", offer.SourceURL != ""},
	}
	for _, f := range fields {
		if !f.present {
			result.Errors = append(result.Errors, "missing required field: "+f.name)
			result.Confidence -= missingFieldPenalty
		}
	}

	if offer.MonthlyPrice <= 0 {
		result.Errors = append(result.Errors, "monthly price must be positive")
		result.Confidence -= nonPositivePricePenalty
	}

	if offer.OfferURL != "" && !wellFormedURL(offer.OfferURL) {
		result.Warnings = append(result.Warnings, "malformed offer_url")
		result.Confidence -= malformedURLPenalty
	}
	if offer.SourceURL != "" && !wellFormedURL(offer.SourceURL) {
		result.Warnings = append(result.Warnings, "malformed source_url")
		result.Confidence -= malformedURLPenalty
	}

	if !offer.ScrapedAt.IsZero() && v.now().Sub(offer.ScrapedAt) > v.stalenessWindow {
		result.Warnings = append(result.Warnings, "stale scrape timestamp")
		result.Confidence -= staleTimestampPenalty
	}

	if offer.Provider != "" && !v.known[strings.ToLower(offer.Provider)] {
		result.Warnings = append(result.Warnings, "unrecognized provider: "+offer.Provider)
		result.Confidence -= unknownProviderPenalty
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}

	result.Valid = len(result.Errors) == 0
	result.ShouldHide = ShouldHide(result.Errors, result.Confidence)

	return result
}

// ShouldHide reports whether an offer with the given hard errors and
// confidence must be hidden: any hard error, or confidence below the hide
// threshold. Confidence exactly at the threshold is not hidden.
func ShouldHide(errors []string, confidence int) bool {
	return len(errors) > 0 || confidence < HideThreshold
}

func wellFormedURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Report aggregates a batch validation for observability. Aggregation is
// order-independent: sums and an arithmetic mean over the set.
type Report struct {
	Total         int     `json:"total"`
	Valid         int     `json:"valid"`
	AvgConfidence float64 `json:"avg_confidence"`
	ErrorCount    int     `json:"error_count"`
	WarningCount  int     `json:"warning_count"`
	HiddenCount   int     `json:"hidden_count"`
}

// ValidateBatch validates every offer and returns the results alongside an
// aggregated report. AvgConfidence is the mean over valid offers only.
func (v *Validator) ValidateBatch(offers []domain.RawOffer) ([]domain.ValidationResult, Report) {
	results := make([]domain.ValidationResult, len(offers))
	report := Report{Total: len(offers)}

	confidenceSum := 0
	for i, offer := range offers {
		result := v.Validate(offer)
		results[i] = result

		if result.Valid {
			report.Valid++
			confidenceSum += result.Confidence
		}
		report.ErrorCount += len(result.Errors)
		report.WarningCount += len(result.Warnings)
		if result.ShouldHide {
			report.HiddenCount++
		}
	}

	if report.Valid > 0 {
		report.AvgConfidence = float64(confidenceSum) / float64(report.Valid)
	}

	return results, report
}
