package service

import (
	"sort"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/util"
	"github.com/shopspring/decimal"
)

// YearCorrection restamps rows carrying a known-bad year before bucketing.
// It patches an upstream clock bug and is meant to be removed once the ledger is fixed.
type YearCorrection struct {
	From int
	To   int
}

// Apply returns t moved to year To when its year is From
func (c YearCorrection) Apply(t time.Time) time.Time {
	if t.Year() != c.From {
		return t
	}
	return time.Date(c.To, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AggregationOptions controls which rows are accepted and how they are bucketed
type AggregationOptions struct {
	Status      string
	Since       *time.Time
	Location    *time.Location
	Corrections []YearCorrection
}

// AggregateDonations rolls ledger rows into daily and monthly buckets plus summary totals
// in a single pass. Rows with another status or dated before Since are skipped.
func AggregateDonations(rows []domain.DonationRow, opts AggregationOptions) *domain.DonationReport {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	daily := make(map[string]*domain.DonationBucket)
	monthly := make(map[string]*domain.DonationBucket)
	totalEGP := decimal.Zero
	totalUSD := decimal.Zero
	count := 0

	for _, row := range rows {
		if row.Status != opts.Status {
			continue
		}

		date := row.Date.In(loc)
		for _, c := range opts.Corrections {
			date = c.Apply(date)
		}
		if opts.Since != nil && date.Before(*opts.Since) {
			continue
		}

		addToBucket(daily, util.DayKey(date), row)
		addToBucket(monthly, util.MonthKey(date), row)

		totalEGP = totalEGP.Add(row.AmountEGP)
		totalUSD = totalUSD.Add(row.AmountUSD)
		count++
	}

	average := decimal.Zero
	if count > 0 {
		average = totalEGP.Div(decimal.NewFromInt(int64(count))).Round(0)
	}

	return &domain.DonationReport{
		DailyTotals:   sortedBuckets(daily),
		MonthlyTotals: sortedBuckets(monthly),
		Summary: domain.DonationSummary{
			TotalDonations:  count,
			TotalAmountEGP:  totalEGP.Round(0),
			TotalAmountUSD:  totalUSD.Round(2),
			AverageDonation: average,
		},
	}
}

func addToBucket(buckets map[string]*domain.DonationBucket, key string, row domain.DonationRow) {
	b, ok := buckets[key]
	if !ok {
		b = &domain.DonationBucket{Key: key, AmountEGP: decimal.Zero, AmountUSD: decimal.Zero}
		buckets[key] = b
	}
	b.AmountEGP = b.AmountEGP.Add(row.AmountEGP)
	b.AmountUSD = b.AmountUSD.Add(row.AmountUSD)
	b.Count++
}

func sortedBuckets(buckets map[string]*domain.DonationBucket) []domain.DonationBucket {
	out := make([]domain.DonationBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}
