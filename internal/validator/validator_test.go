package validator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"prisradar/offerworker/internal/domain"
)

var knownProviders = []string{"Ice", "Telia", "Tibber"}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestValidator() *Validator {
	return New(48*time.Hour, knownProviders).WithNow(fixedNow)
}

func completeOffer() domain.RawOffer {
	return domain.RawOffer{
		Provider:     "Ice",
		Category:     domain.CategoryMobile,
		PlanName:     "Ice Smart 20GB",
		MonthlyPrice: 299,
		OfferURL:     "https://www.ice.no/mobilabonnement/smart-20gb/",
		SourceURL:    "https://www.ice.no/mobilabonnement/",
		ScrapedAt:    fixedNow().Add(-time.Hour),
	}
}

func TestValidateCompleteOffer(t *testing.T) {
	v := newTestValidator()

	result := v.Validate(completeOffer())
	assert.True(t, result.Valid)
	assert.Equal(t, 100, result.Confidence)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.ShouldHide)
}

func TestValidateMissingFieldPenalties(t *testing.T) {
	v := newTestValidator()

	// Each missing required field costs exactly 15
	offer := completeOffer()
	offer.PlanName = ""
	result := v.Validate(offer)
	assert.False(t, result.Valid)
	assert.Equal(t, 85, result.Confidence)

	// Missing both plan_name and offer_url lands at 70 from the 100 baseline
	offer = completeOffer()
	offer.PlanName = ""
	offer.OfferURL = ""
	result = v.Validate(offer)
	assert.False(t, result.Valid)
	assert.Equal(t, 70, result.Confidence)
	assert.Len(t, result.Errors, 2)
	assert.True(t, result.ShouldHide)
}

func TestValidateNonPositivePrice(t *testing.T) {
	v := newTestValidator()

	offer := completeOffer()
	offer.MonthlyPrice = -10
	result := v.Validate(offer)
	assert.False(t, result.Valid)
	assert.Equal(t, 90, result.Confidence)

	// Zero price is both missing and non-positive; penalties stack
	offer.MonthlyPrice = 0
	result = v.Validate(offer)
	assert.False(t, result.Valid)
	assert.Equal(t, 75, result.Confidence)
}

func TestValidateSoftWarnings(t *testing.T) {
	v := newTestValidator()

	offer := completeOffer()
	offer.OfferURL = "not a url"
	result := v.Validate(offer)
	assert.True(t, result.Valid, "malformed URL is a soft failure")
	assert.Equal(t, 95, result.Confidence)
	assert.Len(t, result.Warnings, 1)

	offer = completeOffer()
	offer.ScrapedAt = fixedNow().Add(-72 * time.Hour)
	result = v.Validate(offer)
	assert.True(t, result.Valid)
	assert.Equal(t, 92, result.Confidence)

	offer = completeOffer()
	offer.Provider = "ShadyTelco"
	result = v.Validate(offer)
	assert.True(t, result.Valid)
	assert.Equal(t, 93, result.Confidence)
}

func TestValidateConfidenceFloorsAtZero(t *testing.T) {
	v := newTestValidator()

	result := v.Validate(domain.RawOffer{})
	assert.False(t, result.Valid)
	assert.GreaterOrEqual(t, result.Confidence, 0)
}

func TestShouldHideBoundary(t *testing.T) {
	// Exactly at the hide threshold: not hidden
	assert.False(t, ShouldHide(nil, 50))
	// One below: hidden
	assert.True(t, ShouldHide(nil, 49))
	// Any hard error hides regardless of confidence
	assert.True(t, ShouldHide([]string{"missing required field: plan_name"}, 100))
}

func TestValidateBatchReport(t *testing.T) {
	v := newTestValidator()

	good := completeOffer()

	soft := completeOffer()
	soft.Provider = "ShadyTelco" // 93, valid, warning

	bad := completeOffer()
	bad.MonthlyPrice = -1 // invalid, hidden

	results, report := v.ValidateBatch([]domain.RawOffer{good, soft, bad})
	assert.Len(t, results, 3)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 1, report.WarningCount)
	assert.Equal(t, 1, report.HiddenCount)
	assert.InDelta(t, (100.0+93.0)/2.0, report.AvgConfidence, 0.0001)
}

func TestValidateBatchOrderIndependence(t *testing.T) {
	v := newTestValidator()

	offers := make([]domain.RawOffer, 0, 12)
	for i := 0; i < 4; i++ {
		offers = append(offers, completeOffer())

		soft := completeOffer()
		soft.Provider = "ShadyTelco"
		offers = append(offers, soft)

		bad := completeOffer()
		bad.PlanName = ""
		offers = append(offers, bad)
	}

	_, baseline := v.ValidateBatch(offers)

	rnd := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]domain.RawOffer, len(offers))
		copy(shuffled, offers)
		rnd.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		_, report := v.ValidateBatch(shuffled)
		assert.Equal(t, baseline, report, "report must not depend on input order")
	}
}

func TestValidateBatchEmpty(t *testing.T) {
	v := newTestValidator()

	results, report := v.ValidateBatch(nil)
	assert.Empty(t, results)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.AvgConfidence)
}
