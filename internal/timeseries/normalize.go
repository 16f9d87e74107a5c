// Package timeseries holds the pure normalization steps shared by every series source.
package timeseries

import (
	"sort"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ValuePrecision is the number of decimals kept on normalized values and YoY deltas
const ValuePrecision = 2

// TruncateKey cuts a raw date string down to the key length of the frequency:
// YYYY-MM for monthly, YYYY for yearly/annual, unchanged for daily.
func TruncateKey(date string, freq domain.Frequency) string {
	switch {
	case freq == domain.FrequencyMonthly && len(date) > 7:
		return date[:7]
	case freq.IsAnnual() && len(date) > 4:
		return date[:4]
	}
	return date
}

// Normalize buckets raw points by their frequency key and averages each bucket.
// Every bucket value is rounded to ValuePrecision, including single-sample buckets.
// The result is sorted ascending by key.
func Normalize(raw []domain.RawPoint, freq domain.Frequency) []domain.Point {
	type bucket struct {
		sum   decimal.Decimal
		count int64
	}

	buckets := make(map[string]*bucket)
	for _, rp := range raw {
		key := TruncateKey(rp.Date, freq)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{sum: decimal.Zero}
			buckets[key] = b
		}
		b.sum = b.sum.Add(decimal.NewFromFloat(rp.Value))
		b.count++
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	points := make([]domain.Point, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		mean := b.sum.Div(decimal.NewFromInt(b.count)).Round(ValuePrecision)
		points = append(points, domain.Point{
			Date:  key,
			Value: mean.InexactFloat64(),
		})
	}
	return points
}

// TrailingWindow keeps the last n points. Shorter series and n <= 0 are returned unchanged.
func TrailingWindow(points []domain.Point, n int) []domain.Point {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

// Round rounds v to ValuePrecision decimals
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(ValuePrecision).InexactFloat64()
}
