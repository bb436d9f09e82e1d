package urlresolver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"prisradar/offerworker/internal/domain"
	"prisradar/offerworker/internal/provider"
)

func testRegistry() *provider.Registry {
	return provider.NewRegistryWith([]provider.Config{
		{
			Name:     "Ice",
			Category: domain.CategoryMobile,
			Template: provider.URLTemplate{
				Base:         "https://www.ice.no",
				PathPattern:  "/mobilabonnement/{slug}/",
				FallbackURL:  "https://www.ice.no/mobilabonnement/",
				RequiresSlug: true,
			},
			Enabled: true,
		},
		{
			Name:     "Telia",
			Category: domain.CategoryMobile,
			Template: provider.URLTemplate{
				Base:              "https://www.telia.no",
				PathPattern:       "/bestill/{product_id}",
				FallbackURL:       "https://www.telia.no/mobilabonnement/",
				RequiresProductID: true,
			},
			Enabled: true,
		},
	})
}

func newTestResolver() *Resolver {
	r := New(testRegistry(), "prisradar", "comparison")
	return r.WithClickIDFunc(func() string { return "fixed-click-id" })
}

func parseQuery(t *testing.T, rawURL string) (string, url.Values) {
	t.Helper()
	u, err := url.Parse(rawURL)
	assert.NoError(t, err)
	q := u.Query()
	u.RawQuery = ""
	return u.String(), q
}

func TestResolveManualOverrideWins(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:   "Ice",
		Category:   domain.CategoryMobile,
		PlanName:   "Ice Smart 20GB",
		ManualURL:  "https://partner.example.com/ice-smart",
		DirectLink: "https://www.ice.no/direct",
		OfferURL:   "https://www.ice.no/offer",
		SourceURL:  "https://www.ice.no/",
	}

	base, _ := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://partner.example.com/ice-smart", base)
}

func TestResolveDirectLinkBeforeOfferURL(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:   "Ice",
		Category:   domain.CategoryMobile,
		DirectLink: "https://www.ice.no/direct",
		OfferURL:   "https://www.ice.no/offer",
		SourceURL:  "https://www.ice.no/",
	}

	base, _ := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://www.ice.no/direct", base)
}

func TestResolveOfferURLSameAsSourceNotAuthoritative(t *testing.T) {
	r := newTestResolver()

	// offer_url == source_url means no specific offer page was found,
	// so resolution falls through to the template.
	offer := domain.RawOffer{
		Provider:  "Ice",
		Category:  domain.CategoryMobile,
		PlanName:  "Ice Smart 20GB",
		OfferURL:  "https://www.ice.no/mobilabonnement/",
		SourceURL: "https://www.ice.no/mobilabonnement/",
	}

	base, _ := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://www.ice.no/mobilabonnement/20-gb/", base)
}

func TestResolveTemplateSynthesis(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:  "Ice",
		Category:  domain.CategoryMobile,
		PlanName:  "Ice Smart 20GB",
		SourceURL: "https://www.ice.no/mobilabonnement/",
	}

	base, q := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://www.ice.no/mobilabonnement/20-gb/", base)
	assert.Equal(t, "prisradar", q.Get("utm_source"))
	assert.Equal(t, "comparison", q.Get("utm_medium"))
	assert.Equal(t, "mobile", q.Get("utm_campaign"))
	assert.Equal(t, "ice", q.Get("utm_content"))
	assert.Equal(t, "fixed-click-id", q.Get("click_id"))
}

func TestResolveTemplateProductID(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:  "Telia",
		Category:  domain.CategoryMobile,
		PlanName:  "Telia X",
		Features:  domain.Features{"product_id": domain.StringFeature("4711")},
		SourceURL: "https://www.telia.no/",
	}

	base, _ := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://www.telia.no/bestill/4711", base)
}

func TestResolveTemplateFallbackWhenRequiredFieldMissing(t *testing.T) {
	r := newTestResolver()

	// Telia requires a product id; without one the template fallback is used
	// rather than failing the resolution.
	offer := domain.RawOffer{
		Provider:  "Telia",
		Category:  domain.CategoryMobile,
		PlanName:  "Telia X",
		SourceURL: "https://www.telia.no/",
	}

	base, _ := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://www.telia.no/mobilabonnement/", base)
}

func TestResolveUnknownProviderFallsToSource(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:  "UnknownTelco",
		Category:  domain.CategoryMobile,
		PlanName:  "Mystery Plan",
		SourceURL: "https://unknown.example.com/plans",
	}

	base, q := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "https://unknown.example.com/plans", base)
	assert.Equal(t, "unknowntelco", q.Get("utm_content"))
}

func TestResolveNoDuplicateTrackingParams(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:  "Ice",
		Category:  domain.CategoryMobile,
		PlanName:  "Ice Smart 20GB",
		SourceURL: "https://www.ice.no/mobilabonnement/",
	}

	first := r.Resolve(offer)

	// Resolving an already-resolved URL must replace, never duplicate
	offer.ManualURL = first
	second := r.Resolve(offer)

	u, err := url.Parse(second)
	assert.NoError(t, err)
	for key, values := range u.Query() {
		assert.Len(t, values, 1, "parameter %s duplicated", key)
	}
	assert.Equal(t, "fixed-click-id", u.Query().Get("click_id"))
}

func TestResolvePreservesForeignQueryParams(t *testing.T) {
	r := newTestResolver()

	offer := domain.RawOffer{
		Provider:  "Ice",
		Category:  domain.CategoryMobile,
		ManualURL: "https://partner.example.com/offer?ref=abc",
		SourceURL: "https://www.ice.no/",
	}

	_, q := parseQuery(t, r.Resolve(offer))
	assert.Equal(t, "abc", q.Get("ref"))
}

func TestResolveFreshClickIDPerCall(t *testing.T) {
	ids := []string{"id-1", "id-2"}
	n := 0
	r := New(testRegistry(), "prisradar", "comparison").
		WithClickIDFunc(func() string { id := ids[n]; n++; return id })

	offer := domain.RawOffer{
		Provider:  "Ice",
		Category:  domain.CategoryMobile,
		PlanName:  "Ice Smart 20GB",
		SourceURL: "https://www.ice.no/",
	}

	first, _ := url.Parse(r.Resolve(offer))
	second, _ := url.Parse(r.Resolve(offer))
	assert.Equal(t, "id-1", first.Query().Get("click_id"))
	assert.Equal(t, "id-2", second.Query().Get("click_id"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Basic Plan", "basic-plan"},
		{"Strøm Spot Avtale", "strom-spot-avtale"},
		{"  Fri  Flyt  ", "fri-flyt"},
		{"Ung 15GB!", "ung-15gb"},
		{"Bolig & Innbo", "bolig-innbo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "input %q", tt.in)
	}
}

func TestSlugForIceQuantityRule(t *testing.T) {
	// Ice uses the quantity+unit rule, which takes precedence over the
	// generic slugifier for that provider only.
	assert.Equal(t, "20-gb", SlugFor("Ice")("Ice Smart 20GB"))
	assert.Equal(t, "5-gb", SlugFor("ice")("Ice Basic 5 GB"))

	// Without a quantity the Ice rule falls back to the generic slugifier
	assert.Equal(t, "ice-fri-data", SlugFor("Ice")("Ice Fri Data"))

	// Other providers use the generic slugifier
	assert.Equal(t, "basic-plan", SlugFor("Telia")("Basic Plan"))
}
