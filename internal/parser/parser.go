// Package parser turns upstream payloads into ordered raw observations.
// Malformed rows are dropped; a payload whose top-level shape is wrong fails with
// domain.ErrMalformedEnvelope.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
)

// Input is the payload and request context handed to a parser
type Input struct {
	Body   []byte
	Params domain.SeriesParams
	Now    time.Time
}

// Parse dispatches to the parser selected by the source's variant
func Parse(src *domain.Source, in Input) ([]domain.RawPoint, error) {
	switch src.Variant {
	case domain.VariantCSV:
		return ParseCSV(in.Body)
	case domain.VariantCSVEntity:
		return ParseEntityCSV(in.Body, src.Entity, src.ValueColumn)
	case domain.VariantWorldBank:
		return ParseWorldBank(in.Body)
	case domain.VariantYahooChart:
		return ParseYahooChart(in.Body)
	case domain.VariantIMFDataMapper:
		return ParseIMFDataMapper(in.Body, src.IMFSeries, src.IMFCountry)
	case domain.VariantUNHCR:
		return ParseUNHCR(in.Body)
	case domain.VariantExchangeRate:
		// curated history only describes the default pair
		var history []domain.RawPoint
		if in.Params.Base == src.DefaultBase && in.Params.Symbol == src.DefaultSymbol {
			history = StaticPoints(src.Points)
		}
		return ParseExchangeRate(in.Body, in.Params.Symbol, history, in.Now)
	case domain.VariantStatic:
		return StaticPoints(src.Points), nil
	}
	return nil, fmt.Errorf("%w: unsupported variant %q", domain.ErrInvalidInput, src.Variant)
}

// StaticPoints converts curated registry points, dropping non-finite values
func StaticPoints(points []domain.StaticPoint) []domain.RawPoint {
	out := make([]domain.RawPoint, 0, len(points))
	for _, p := range points {
		if p.Date == "" || !isFinite(p.Value) {
			continue
		}
		out = append(out, domain.RawPoint{Date: p.Date, Value: p.Value})
	}
	return out
}

// parseValue parses a numeric cell. FRED marks missing observations with ".".
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func malformed(provider, detail string) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrMalformedEnvelope, provider, detail)
}
