package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of comparison domains the pipeline handles.
type Category string

const (
	CategoryMobile      Category = "mobile"
	CategoryElectricity Category = "electricity"
	CategoryInsurance   Category = "insurance"
	CategoryLoan        Category = "loan"
)

// AllCategories returns every category in a stable order.
func AllCategories() []Category {
	return []Category{CategoryMobile, CategoryElectricity, CategoryInsurance, CategoryLoan}
}

// ParseCategory parses a category string, reporting whether it is known.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryMobile:
		return CategoryMobile, true
	case CategoryElectricity:
		return CategoryElectricity, true
	case CategoryInsurance:
		return CategoryInsurance, true
	case CategoryLoan:
		return CategoryLoan, true
	}
	return "", false
}

func (c Category) String() string {
	return string(c)
}

// FeatureKind tags the value type held by a FeatureValue.
type FeatureKind int

const (
	FeatureString FeatureKind = iota
	FeatureNumber
	FeatureBool
)

// FeatureValue is a tagged string|number|bool value. Extractors may only
// attach features of these three kinds; there is no open "any" bag.
type FeatureValue struct {
	Kind FeatureKind
	Str  string
	Num  float64
	Bool bool
}

// StringFeature wraps a string feature value.
func StringFeature(s string) FeatureValue {
	return FeatureValue{Kind: FeatureString, Str: s}
}

// NumberFeature wraps a numeric feature value.
func NumberFeature(n float64) FeatureValue {
	return FeatureValue{Kind: FeatureNumber, Num: n}
}

// BoolFeature wraps a boolean feature value.
func BoolFeature(b bool) FeatureValue {
	return FeatureValue{Kind: FeatureBool, Bool: b}
}

// MarshalJSON emits the underlying value, not the tag wrapper.
func (v FeatureValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FeatureNumber:
		return json.Marshal(v.Num)
	case FeatureBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON accepts a string, number or bool and tags it accordingly.
func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringFeature(t)
	case float64:
		*v = NumberFeature(t)
	case bool:
		*v = BoolFeature(t)
	default:
		return fmt.Errorf("feature value must be string, number or bool, got %T", raw)
	}
	return nil
}

// Features is the structured feature map attached to an offer.
type Features map[string]FeatureValue

// RawOffer is a single scraped plan/price record as produced by an
// extractor, before validation and URL resolution.
type RawOffer struct {
	Provider       string    `json:"provider"`
	Category       Category  `json:"category"`
	PlanName       string    `json:"plan_name"`
	MonthlyPrice   float64   `json:"monthly_price"`
	DataAllowance  string    `json:"data_allowance,omitempty"`
	Speed          string    `json:"speed,omitempty"`
	ContractLength string    `json:"contract_length,omitempty"`
	Features       Features  `json:"features,omitempty"`
	OfferURL       string    `json:"offer_url,omitempty"`
	SourceURL      string    `json:"source_url"`
	ManualURL      string    `json:"manual_url,omitempty"`
	DirectLink     string    `json:"direct_link,omitempty"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// ValidationResult is the outcome of scoring one raw offer.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Confidence int      `json:"confidence"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	ShouldHide bool     `json:"should_hide"`
}

// FinalizedOffer is a validated, URL-resolved offer ready for the cache
// and the persisted store.
type FinalizedOffer struct {
	RawOffer
	Validation  ValidationResult `json:"validation"`
	ResolvedURL string           `json:"resolved_url"`
	Fresh       bool             `json:"fresh"`
	LogoRef     string           `json:"logo_ref,omitempty"`
	IsActive    bool             `json:"is_active"`
}

// Key returns the stable identity used for upsert/dedup in the store.
func (o FinalizedOffer) Key() string {
	return fmt.Sprintf("%s/%s/%s",
		o.Category,
		strings.ToLower(strings.TrimSpace(o.Provider)),
		strings.ToLower(strings.TrimSpace(o.PlanName)))
}

// JobStatus is the lifecycle state of a scraping job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ScrapingJobRecord is one entry in the append-only job log. It is created
// when a provider job starts and updated exactly once on completion.
type ScrapingJobRecord struct {
	Provider    string    `json:"provider"`
	Category    Category  `json:"category"`
	Status      JobStatus `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	OffersFound int       `json:"offers_found"`
	Error       string    `json:"error,omitempty"`
}

// HealthCheck is the rolling per-provider health state.
type HealthCheck struct {
	Provider          string    `json:"provider"`
	LastUpdated       time.Time `json:"last_updated"`
	Healthy           bool      `json:"healthy"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	LastError         string    `json:"last_error,omitempty"`
}

// SystemHealth classifies the overall pipeline state.
type SystemHealth string

const (
	HealthGood     SystemHealth = "good"
	HealthDegraded SystemHealth = "degraded"
	HealthPoor     SystemHealth = "poor"
	HealthUnknown  SystemHealth = "unknown"
)

// SystemStatus is the snapshot exported to monitoring consumers.
type SystemStatus struct {
	DataSources  []HealthCheck       `json:"data_sources"`
	RecentJobs   []ScrapingJobRecord `json:"recent_jobs"`
	LastUpdate   time.Time           `json:"last_update"`
	SystemHealth SystemHealth        `json:"system_health"`
}
