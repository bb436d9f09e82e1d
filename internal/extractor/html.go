package extractor

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"prisradar/offerworker/helpers"
	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/provider"
	pkgerrors "prisradar/offerworker/pkg/errors"
)

// HTMLExtractor scrapes structured markup from a provider listing page
// using the selector set in the provider configuration.
type HTMLExtractor struct {
	base
	fetch func(url string) (io.Reader, error)
	now   func() time.Time
}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor(deps Deps) *HTMLExtractor {
	return &HTMLExtractor{
		base:  base{deps: deps},
		fetch: helpers.FetchWithRandomHeaders,
		now:   time.Now,
	}
}

// WithFetchFunc overrides the fetch function. Tests point it at fixtures.
func (e *HTMLExtractor) WithFetchFunc(fetch func(url string) (io.Reader, error)) *HTMLExtractor {
	e.fetch = fetch
	return e
}

// Name returns the strategy identifier.
func (e *HTMLExtractor) Name() string {
	return provider.StrategyHTML
}

// Extract performs one fetch of the provider endpoint and parses every
// offer element it finds. Records missing individual fields are still
// returned; scoring them is the validator's job.
func (e *HTMLExtractor) Extract(ctx context.Context, cfg provider.Config) ([]domain.RawOffer, error) {
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

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, pkgerrors.NewExtraction(cfg.Name, "HTML parse failed", err)
	}

	scrapedAt := e.now()
	var offers []domain.RawOffer

	doc.Find(cfg.Selectors.OfferList).Each(func(i int, s *goquery.Selection) {
		offer := domain.RawOffer{
			Provider:       cfg.Name,
			Category:       cfg.Category,
			PlanName:       text(s, cfg.Selectors.PlanName),
			MonthlyPrice:   helpers.ParsePrice(text(s, cfg.Selectors.Price)),
			DataAllowance:  text(s, cfg.Selectors.DataAllowance),
			Speed:          text(s, cfg.Selectors.Speed),
			ContractLength: text(s, cfg.Selectors.ContractLength),
			OfferURL:       e.offerLink(s, cfg),
			SourceURL:      cfg.Endpoint,
			ScrapedAt:      scrapedAt,
		}
		if offer.PlanName == "" && offer.MonthlyPrice == 0 {
			// Empty card, usually a promo tile matched by the list selector
			return
		}
		offers = append(offers, offer)
	})

	return offers, nil
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

// offerLink extracts the offer link and absolutizes relative hrefs against
// the template base.
func (e *HTMLExtractor) offerLink(s *goquery.Selection, cfg provider.Config) string {
	if cfg.Selectors.OfferLink == "" {
		return ""
	}
	href, exists := s.Find(cfg.Selectors.OfferLink).First().Attr("href")
	if !exists || href == "" {
		return ""
	}
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}
	return strings.TrimSuffix(cfg.Template.Base, "/") + "/" + strings.TrimPrefix(href, "/")
}
