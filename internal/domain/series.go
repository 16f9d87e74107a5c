package domain

import (
	"context"
	"time"
)

// Frequency is the sampling frequency label of a series
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyAnnual  Frequency = "annual"
)

// IsValid reports whether f is a known frequency
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyMonthly, FrequencyYearly, FrequencyAnnual:
		return true
	}
	return false
}

// IsAnnual reports whether the series is keyed by year (YYYY)
func (f Frequency) IsAnnual() bool {
	return f == FrequencyYearly || f == FrequencyAnnual
}

// FallbackSource marks an envelope produced after an upstream failure
const FallbackSource = "fallback"

// Point is a single observation of a series.
// YoYChange is nil when no year-ago observation exists, which is distinct from a zero change.
type Point struct {
	Date      string   `json:"date"`
	Value     float64  `json:"value"`
	YoYChange *float64 `json:"yoyChange,omitempty"`
}

// RawPoint is a parsed observation before normalization
type RawPoint struct {
	Date  string
	Value float64
}

// Envelope is the uniform response of every series adapter
type Envelope struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source"`
	Unit      string    `json:"unit"`
	Frequency Frequency `json:"frequency"`
	Pair      string    `json:"pair,omitempty"`
	Note      string    `json:"note,omitempty"`
	Points    []Point   `json:"points"`
}

// IsFallback reports whether the envelope was produced by the fallback policy
func (e *Envelope) IsFallback() bool {
	return e.Source == FallbackSource
}

// FallbackEnvelope returns the empty envelope served when a fallback-policy source fails
func FallbackEnvelope(src *Source) *Envelope {
	return &Envelope{
		ID:        src.ID,
		Source:    FallbackSource,
		Unit:      src.Unit,
		Frequency: src.Frequency,
		Points:    []Point{},
	}
}

// SeriesParams carries optional per-request parameters (currency pair for FX)
type SeriesParams struct {
	Base   string
	Symbol string
}

// FetchRequest describes a single upstream HTTP request
type FetchRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Fetcher issues a single upstream request and returns the raw body
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]byte, error)
}

// SeriesCache stores finished envelopes keyed by source id and parameters
type SeriesCache interface {
	Get(ctx context.Context, key string) (*Envelope, error)
	Set(ctx context.Context, key string, envelope *Envelope, ttl time.Duration) error
}
