package domain

import (
	"fmt"
	"time"
)

// ParseVariant selects the parser used for a source's upstream payload
type ParseVariant string

const (
	VariantCSV           ParseVariant = "csv"
	VariantCSVEntity     ParseVariant = "csv_entity"
	VariantWorldBank     ParseVariant = "world_bank"
	VariantYahooChart    ParseVariant = "yahoo_chart"
	VariantIMFDataMapper ParseVariant = "imf_datamapper"
	VariantUNHCR         ParseVariant = "unhcr"
	VariantExchangeRate  ParseVariant = "exchange_rate"
	VariantStatic        ParseVariant = "static"
)

// IsValid reports whether v is a known parse variant
func (v ParseVariant) IsValid() bool {
	switch v {
	case VariantCSV, VariantCSVEntity, VariantWorldBank, VariantYahooChart,
		VariantIMFDataMapper, VariantUNHCR, VariantExchangeRate, VariantStatic:
		return true
	}
	return false
}

// YoYMode selects how year-over-year change is expressed.
// Levels and prices use relative change; rates and percentages use absolute change.
type YoYMode string

const (
	YoYRelative YoYMode = "relative"
	YoYAbsolute YoYMode = "absolute"
	YoYNone     YoYMode = "none"
)

// IsValid reports whether m is a known YoY mode
func (m YoYMode) IsValid() bool {
	return m == YoYRelative || m == YoYAbsolute || m == YoYNone
}

// FailurePolicy decides what a source does when its pipeline fails
type FailurePolicy string

const (
	// FailureFallback serves an empty fallback envelope with 200
	FailureFallback FailurePolicy = "fallback"
	// FailurePropagate surfaces the failure as an HTTP error status
	FailurePropagate FailurePolicy = "propagate"
)

// IsValid reports whether p is a known failure policy
func (p FailurePolicy) IsValid() bool {
	return p == FailureFallback || p == FailurePropagate
}

// Source is the configuration record of a single upstream series
type Source struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Label     string            `yaml:"label"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Variant   ParseVariant      `yaml:"variant"`
	Frequency Frequency         `yaml:"frequency"`
	Unit      string            `yaml:"unit"`
	Window    int               `yaml:"window"`
	YoY       YoYMode           `yaml:"yoy"`
	OnFailure FailurePolicy     `yaml:"onFailure"`
	CacheTTL  time.Duration     `yaml:"cacheTTL"`
	Note      string            `yaml:"note"`

	// csv_entity
	Entity      string `yaml:"entity"`
	ValueColumn string `yaml:"valueColumn"`

	// imf_datamapper
	IMFSeries  string `yaml:"imfSeries"`
	IMFCountry string `yaml:"imfCountry"`

	// exchange_rate
	DefaultBase   string `yaml:"defaultBase"`
	DefaultSymbol string `yaml:"defaultSymbol"`

	// static history, also prepended to exchange_rate series
	Points []StaticPoint `yaml:"points"`
}

// StaticPoint is a curated observation declared in the registry
type StaticPoint struct {
	Date  string  `yaml:"date"`
	Value float64 `yaml:"value"`
}

// RequiresFetch reports whether the source needs an upstream request
func (s *Source) RequiresFetch() bool {
	return s.Variant != VariantStatic
}

// Validate checks a source record for internal consistency
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidRegistry)
	}
	if !s.Variant.IsValid() {
		return fmt.Errorf("%w: source %s has unknown variant %q", ErrInvalidRegistry, s.ID, s.Variant)
	}
	if !s.Frequency.IsValid() {
		return fmt.Errorf("%w: source %s has unknown frequency %q", ErrInvalidRegistry, s.ID, s.Frequency)
	}
	if !s.YoY.IsValid() {
		return fmt.Errorf("%w: source %s has unknown yoy mode %q", ErrInvalidRegistry, s.ID, s.YoY)
	}
	if !s.OnFailure.IsValid() {
		return fmt.Errorf("%w: source %s has unknown failure policy %q", ErrInvalidRegistry, s.ID, s.OnFailure)
	}
	if s.RequiresFetch() && s.URL == "" {
		return fmt.Errorf("%w: source %s requires a url", ErrInvalidRegistry, s.ID)
	}
	if s.Variant == VariantCSVEntity && (s.Entity == "" || s.ValueColumn == "") {
		return fmt.Errorf("%w: source %s requires entity and valueColumn", ErrInvalidRegistry, s.ID)
	}
	if s.Variant == VariantIMFDataMapper && (s.IMFSeries == "" || s.IMFCountry == "") {
		return fmt.Errorf("%w: source %s requires imfSeries and imfCountry", ErrInvalidRegistry, s.ID)
	}
	if s.Window < 0 {
		return fmt.Errorf("%w: source %s has negative window", ErrInvalidRegistry, s.ID)
	}
	return nil
}

// SourceSummary is the registry listing entry
type SourceSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Unit      string    `json:"unit"`
	Frequency Frequency `json:"frequency"`
}
