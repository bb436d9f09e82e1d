// Package provider holds the static catalog of provider configurations the
// pipeline runs against. The catalog is built once at startup and never
// mutated afterwards.
package provider

import (
	"strings"

	"prisradar/offerworker/internal/domain"
)

// Strategy identifiers for extractor selection.
const (
	StrategyHTML = "html"
	StrategyAPI  = "api"
)

// Selectors contains CSS selectors for the offer elements on a provider page.
// Only used by the html strategy.
type Selectors struct {
	OfferList      string
	PlanName       string
	Price          string
	DataAllowance  string
	Speed          string
	ContractLength string
	OfferLink      string
}

// URLTemplate describes how to synthesize an outbound offer URL for a
// provider when no explicit link is available.
type URLTemplate struct {
	Base              string
	PathPattern       string // may contain {product_id} and {slug}
	FallbackURL       string
	RequiresProductID bool
	RequiresSlug      bool
}

// Config is a single provider configuration. Immutable after startup.
type Config struct {
	Name      string
	Category  domain.Category
	Endpoint  string
	Strategy  string
	Selectors Selectors
	Template  URLTemplate
	Enabled   bool
	LogoRef   string
}

// Registry is the read-only provider catalog.
type Registry struct {
	byCategory map[domain.Category][]Config
	byName     map[string]Config
}

// NewRegistry builds the catalog from the built-in provider table.
func NewRegistry() *Registry {
	return newRegistryFrom(providerTable())
}

// NewRegistryWith builds a catalog from an explicit config list. Used by
// tests and by deployments that load a reduced provider set.
func NewRegistryWith(configs []Config) *Registry {
	return newRegistryFrom(configs)
}

func newRegistryFrom(configs []Config) *Registry {
	r := &Registry{
		byCategory: make(map[domain.Category][]Config),
		byName:     make(map[string]Config),
	}
	for _, cfg := range configs {
		r.byCategory[cfg.Category] = append(r.byCategory[cfg.Category], cfg)
		r.byName[nameKey(cfg.Category, cfg.Name)] = cfg
	}
	return r
}

// ConfigsForCategory returns the configs for a category. Unknown categories
// and categories with no onboarded providers both yield an empty slice.
func (r *Registry) ConfigsForCategory(cat domain.Category) []Config {
	configs := r.byCategory[cat]
	out := make([]Config, len(configs))
	copy(out, configs)
	return out
}

// EnabledConfigsForCategory returns only the enabled configs for a category.
func (r *Registry) EnabledConfigsForCategory(cat domain.Category) []Config {
	var out []Config
	for _, cfg := range r.byCategory[cat] {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}

// ConfigByName looks up a provider within a category.
func (r *Registry) ConfigByName(cat domain.Category, name string) (Config, bool) {
	cfg, ok := r.byName[nameKey(cat, name)]
	return cfg, ok
}

// KnownProviders returns the allowlist of provider names across all
// categories, used by the validator's trust check.
func (r *Registry) KnownProviders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, configs := range r.byCategory {
		for _, cfg := range configs {
			key := strings.ToLower(cfg.Name)
			if !seen[key] {
				seen[key] = true
				names = append(names, cfg.Name)
			}
		}
	}
	return names
}

func nameKey(cat domain.Category, name string) string {
	return string(cat) + "/" + strings.ToLower(strings.TrimSpace(name))
}

// providerTable defines every onboarded provider. Endpoints point at public
// listing pages (html strategy) or offer APIs (api strategy).
func providerTable() []Config {
	return []Config{
		{
			Name:     "Ice",
			Category: domain.CategoryMobile,
			Endpoint: "https://www.ice.no/mobilabonnement/",
			Strategy: StrategyHTML,
			Selectors: Selectors{
				OfferList:      "div.subscription-card",
				PlanName:       "h3.subscription-card__title",
				Price:          "span.subscription-card__price",
				DataAllowance:  "span.subscription-card__data",
				Speed:          "span.subscription-card__speed",
				ContractLength: "span.subscription-card__binding",
				OfferLink:      "a.subscription-card__cta",
			},
			Template: URLTemplate{
				Base:         "https://www.ice.no",
				PathPattern:  "/mobilabonnement/{slug}/",
				FallbackURL:  "https://www.ice.no/mobilabonnement/",
				RequiresSlug: true,
			},
			Enabled: true,
			LogoRef: "logos/ice.svg",
		},
		{
			Name:     "Telia",
			Category: domain.CategoryMobile,
			Endpoint: "https://www.telia.no/mobilabonnement/",
			Strategy: StrategyHTML,
			Selectors: Selectors{
				OfferList:     "li.plan-item",
				PlanName:      "h2.plan-item__name",
				Price:         "div.plan-item__price",
				DataAllowance: "div.plan-item__data",
				OfferLink:     "a.plan-item__link",
			},
			Template: URLTemplate{
				Base:              "https://www.telia.no",
				PathPattern:       "/mobilabonnement/bestill/{product_id}",
				FallbackURL:       "https://www.telia.no/mobilabonnement/",
				RequiresProductID: true,
			},
			Enabled: true,
			LogoRef: "logos/telia.svg",
		},
		{
			Name:     "Talkmore",
			Category: domain.CategoryMobile,
			Endpoint: "https://www.talkmore.no/api/v1/subscriptions",
			Strategy: StrategyAPI,
			Template: URLTemplate{
				Base:         "https://www.talkmore.no",
				PathPattern:  "/mobilabonnement/{slug}",
				FallbackURL:  "https://www.talkmore.no/mobilabonnement",
				RequiresSlug: true,
			},
			Enabled: true,
			LogoRef: "logos/talkmore.svg",
		},
		{
			Name:     "Tibber",
			Category: domain.CategoryElectricity,
			Endpoint: "https://tibber.com/no/api/offers",
			Strategy: StrategyAPI,
			Template: URLTemplate{
				Base:        "https://tibber.com",
				PathPattern: "/no/strompris/{slug}",
				FallbackURL: "https://tibber.com/no/strom",
			},
			Enabled: true,
			LogoRef: "logos/tibber.svg",
		},
		{
			Name:     "Fjordkraft",
			Category: domain.CategoryElectricity,
			Endpoint: "https://www.fjordkraft.no/strom/stromavtale/",
			Strategy: StrategyHTML,
			Selectors: Selectors{
				OfferList:      "article.product-card",
				PlanName:       "h3.product-card__heading",
				Price:          "span.product-card__price",
				ContractLength: "span.product-card__duration",
				OfferLink:      "a.product-card__action",
			},
			Template: URLTemplate{
				Base:         "https://www.fjordkraft.no",
				PathPattern:  "/strom/stromavtale/{slug}/",
				FallbackURL:  "https://www.fjordkraft.no/strom/",
				RequiresSlug: true,
			},
			Enabled: true,
			LogoRef: "logos/fjordkraft.svg",
		},
		{
			Name:     "Gjensidige",
			Category: domain.CategoryInsurance,
			Endpoint: "https://www.gjensidige.no/forsikring/",
			Strategy: StrategyHTML,
			Selectors: Selectors{
				OfferList: "div.insurance-product",
				PlanName:  "h2.insurance-product__title",
				Price:     "span.insurance-product__price",
				OfferLink: "a.insurance-product__link",
			},
			Template: URLTemplate{
				Base:        "https://www.gjensidige.no",
				PathPattern: "/forsikring/{slug}",
				FallbackURL: "https://www.gjensidige.no/forsikring/",
			},
			Enabled: true,
			LogoRef: "logos/gjensidige.svg",
		},
		{
			Name:     "Lendo",
			Category: domain.CategoryLoan,
			Endpoint: "https://www.lendo.no/api/loan-offers",
			Strategy: StrategyAPI,
			Template: URLTemplate{
				Base:              "https://www.lendo.no",
				PathPattern:       "/lan/{product_id}",
				FallbackURL:       "https://www.lendo.no/forbrukslan",
				RequiresProductID: true,
			},
			Enabled: true,
			LogoRef: "logos/lendo.svg",
		},
	}
}
