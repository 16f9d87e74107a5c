package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DonationRow is a raw transaction row read from the donation ledger
type DonationRow struct {
	ID        string
	AmountEGP decimal.Decimal
	AmountUSD decimal.Decimal
	Currency  string
	Date      time.Time
	Status    string
}

// DonationBucket holds totals for one calendar day or month.
// Key is YYYY-MM-DD for daily buckets and YYYY-MM for monthly buckets.
type DonationBucket struct {
	Key       string
	AmountEGP decimal.Decimal
	AmountUSD decimal.Decimal
	Count     int
}

// DonationSummary holds the grand totals of an aggregation pass
type DonationSummary struct {
	TotalDonations  int
	TotalAmountEGP  decimal.Decimal // rounded to whole units
	TotalAmountUSD  decimal.Decimal // rounded to 2 decimals
	AverageDonation decimal.Decimal // rounded to whole units, zero when there are no donations
}

// DonationReport is the result of aggregating ledger rows
type DonationReport struct {
	DailyTotals   []DonationBucket
	MonthlyTotals []DonationBucket
	Summary       DonationSummary
}

// EmptyDonationReport returns a zeroed report with empty bucket slices
func EmptyDonationReport() *DonationReport {
	return &DonationReport{
		DailyTotals:   []DonationBucket{},
		MonthlyTotals: []DonationBucket{},
		Summary: DonationSummary{
			TotalAmountEGP:  decimal.Zero,
			TotalAmountUSD:  decimal.Zero,
			AverageDonation: decimal.Zero,
		},
	}
}

// DonationQuery narrows the rows requested from a ledger
type DonationQuery struct {
	Status string
	Since  *time.Time
	Limit  int
}

// DonationLedger reads raw donation rows from an external ledger.
// Implementations return ErrMalformedLedger when the response lacks the row array.
type DonationLedger interface {
	FetchRows(ctx context.Context, query DonationQuery) ([]DonationRow, error)
}
