package extractor

import (
	"context"
	"encoding/json"
	"time"

	"prisradar/offerworker/helpers"
	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/provider"
	pkgerrors "prisradar/offerworker/pkg/errors"
)

// APIExtractor consumes a provider's JSON offer endpoint.
type APIExtractor struct {
	base
	fetch func(url string) ([]byte, error)
	now   func() time.Time
}

// NewAPIExtractor creates an API extractor.
func NewAPIExtractor(deps Deps) *APIExtractor {
	return &APIExtractor{
		base:  base{deps: deps},
		fetch: helpers.FetchJSON,
		now:   time.Now,
	}
}

// WithFetchFunc overrides the fetch function. Tests point it at fixtures.
func (e *APIExtractor) WithFetchFunc(fetch func(url string) ([]byte, error)) *APIExtractor {
	e.fetch = fetch
	return e
}

// Name returns the strategy identifier.
func (e *APIExtractor) Name() string {
	return provider.StrategyAPI
}

// apiOffer is the wire shape of one offer in a provider API payload.
type apiOffer struct {
	PlanName       string         `json:"plan_name"`
	MonthlyPrice   float64        `json:"monthly_price"`
	DataAllowance  string         `json:"data_allowance"`
	Speed          string         `json:"speed"`
	ContractLength string         `json:"contract_length"`
	OfferURL       string         `json:"offer_url"`
	ProductID      string         `json:"product_id"`
	Features       map[string]any `json:"features"`
}

type apiPayload struct {
	Offers []apiOffer `json:"offers"`
}

// Extract performs one fetch of the provider API and maps the payload
// to raw offers.
func (e *APIExtractor) Extract(ctx context.Context, cfg provider.Config) ([]domain.RawOffer, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	if err := e.checkBlocked(cfg); err != nil {
		return nil, err
	}

	body, err := e.fetch(cfg.Endpoint)
	if err != nil {
		e.noteRateLimit(cfg, err)
		return nil, pkgerrors.NewExtraction(cfg.Name, "fetch failed", err)
	}

	var payload apiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.NewExtraction(cfg.Name, "JSON decode failed", err)
	}

	scrapedAt := e.now()
	offers := make([]domain.RawOffer, 0, len(payload.Offers))
	for _, o := range payload.Offers {
		offer := domain.RawOffer{
			Provider:       cfg.Name,
			Category:       cfg.Category,
			PlanName:       o.PlanName,
			MonthlyPrice:   o.MonthlyPrice,
			DataAllowance:  o.DataAllowance,
			Speed:          o.Speed,
			ContractLength: o.ContractLength,
			OfferURL:       o.OfferURL,
			SourceURL:      cfg.Endpoint,
			ScrapedAt:      scrapedAt,
			Features:       featuresOf(o),
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

// featuresOf maps the loosely-typed API feature bag onto the closed
// string|number|bool contract, dropping anything else.
func featuresOf(o apiOffer) domain.Features {
	if o.ProductID == "" && len(o.Features) == 0 {
		return nil
	}

	features := make(domain.Features)
	if o.ProductID != "" {
		features["product_id"] = domain.StringFeature(o.ProductID)
	}
	for key, value := range o.Features {
		switch v := value.(type) {
		case string:
			features[key] = domain.StringFeature(v)
		case float64:
			features[key] = domain.NumberFeature(v)
		case bool:
			features[key] = domain.BoolFeature(v)
		}
	}
	return features
}
