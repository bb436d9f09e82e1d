// Package urlresolver turns raw offers into final outbound affiliate URLs.
// Resolution never fails: the priority chain always ends in a usable URL.
package urlresolver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/provider"
)

// Tracking parameter names attached to every resolved URL.
const (
	paramSource   = "utm_source"
	paramMedium   = "utm_medium"
	paramCampaign = "utm_campaign"
	paramContent  = "utm_content"
	paramClickID  = "click_id"
)

var trackingParams = []string{paramSource, paramMedium, paramCampaign, paramContent, paramClickID}

// Resolver derives outbound URLs using the provider URL templates.
type Resolver struct {
	registry *provider.Registry
	source   string
	medium   string
	newClickID func() string
}

// New creates a Resolver with the given tracking attribution values.
func New(registry *provider.Registry, source, medium string) *Resolver {
	return &Resolver{
		registry:   registry,
		source:     source,
		medium:     medium,
		newClickID: func() string { return uuid.NewString() },
	}
}

// WithClickIDFunc overrides the click id generator. Tests pin it.
func (r *Resolver) WithClickIDFunc(fn func() string) *Resolver {
	r.newClickID = fn
	return r
}

// Resolve picks the outbound base URL for an offer via the priority chain
// and appends tracking parameters. Each call yields a fresh click id.
func (r *Resolver) Resolve(offer domain.RawOffer) string {
	base := r.chooseBase(offer)
	return r.attachTracking(base, offer)
}

// chooseBase walks the priority chain, first match wins:
// manual override, direct link, the offer's own URL, template synthesis,
// source URL as last resort.
func (r *Resolver) chooseBase(offer domain.RawOffer) string {
	if wellFormed(offer.ManualURL) {
		return offer.ManualURL
	}
	if wellFormed(offer.DirectLink) {
		return offer.DirectLink
	}
	// An offer URL identical to the source URL signals that no specific
	// offer page was found; it is not authoritative.
	if wellFormed(offer.OfferURL) && offer.OfferURL != offer.SourceURL {
		return offer.OfferURL
	}

	cfg, ok := r.registry.ConfigByName(offer.Category, offer.Provider)
	if ok && cfg.Template.Base != "" {
		if synthesized, ok := r.synthesize(offer, cfg); ok {
			return synthesized
		}
		if cfg.Template.FallbackURL != "" {
			return cfg.Template.FallbackURL
		}
	}

	return offer.SourceURL
}

// synthesize fills the provider's path pattern. Reports false when a
// required substitution value is absent, which sends the caller to the
// template fallback.
func (r *Resolver) synthesize(offer domain.RawOffer, cfg provider.Config) (string, bool) {
	path := cfg.Template.PathPattern

	if strings.Contains(path, "{product_id}") {
		productID := productIDOf(offer)
		if productID == "" {
			if cfg.Template.RequiresProductID {
				return "", false
			}
			path = strings.ReplaceAll(path, "{product_id}", "")
		} else {
			path = strings.ReplaceAll(path, "{product_id}", productID)
		}
	}

	if strings.Contains(path, "{slug}") {
		slug := SlugFor(offer.Provider)(offer.PlanName)
		if slug == "" {
			if cfg.Template.RequiresSlug {
				return "", false
			}
			path = strings.ReplaceAll(path, "{slug}", "")
		} else {
			path = strings.ReplaceAll(path, "{slug}", slug)
		}
	}

	return cfg.Template.Base + path, true
}

// productIDOf pulls the product id out of the offer's feature map.
func productIDOf(offer domain.RawOffer) string {
	v, ok := offer.Features["product_id"]
	if !ok {
		return ""
	}
	switch v.Kind {
	case domain.FeatureString:
		return v.Str
	case domain.FeatureNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// attachTracking appends the tracking parameters to base. Any prior
// tracking parameters on the string are stripped first so a re-resolution
// never duplicates them; every other query parameter is preserved.
func (r *Resolver) attachTracking(base string, offer domain.RawOffer) string {
	u, err := url.Parse(base)
	if err != nil {
		// Unparseable last-resort URLs are returned untouched.
		return base
	}

	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	q.Set(paramSource, r.source)
	q.Set(paramMedium, r.medium)
	q.Set(paramCampaign, string(offer.Category))
	q.Set(paramContent, strings.ToLower(offer.Provider))
	q.Set(paramClickID, r.newClickID())

	u.RawQuery = q.Encode()
	return u.String()
}

func wellFormed(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
