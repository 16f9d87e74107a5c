package service

import (
	"testing"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func donationRow(id string, egp, usd float64, status, date string) domain.DonationRow {
	d, err := time.Parse(time.RFC3339, date)
	if err != nil {
		d, _ = time.Parse("2006-01-02", date)
	}
	return domain.DonationRow{
		ID:        id,
		AmountEGP: decimal.NewFromFloat(egp),
		AmountUSD: decimal.NewFromFloat(usd),
		Currency:  "EGP",
		Date:      d,
		Status:    status,
	}
}

func TestAggregateDonations_EndToEnd(t *testing.T) {
	rows := []domain.DonationRow{
		donationRow("1", 100, 0, "S", "2024-03-05"),
		donationRow("2", 200, 0, "S", "2024-03-05"),
		donationRow("3", 50, 0, "F", "2024-03-06"),
	}

	report := AggregateDonations(rows, AggregationOptions{Status: "S"})

	require.Len(t, report.DailyTotals, 1)
	day := report.DailyTotals[0]
	assert.Equal(t, "2024-03-05", day.Key)
	assert.True(t, day.AmountEGP.Equal(decimal.NewFromInt(300)))
	assert.True(t, day.AmountUSD.IsZero())
	assert.Equal(t, 2, day.Count)

	require.Len(t, report.MonthlyTotals, 1)
	assert.Equal(t, "2024-03", report.MonthlyTotals[0].Key)

	assert.Equal(t, 2, report.Summary.TotalDonations)
	assert.Equal(t, "300", report.Summary.TotalAmountEGP.String())
	assert.Equal(t, "150", report.Summary.AverageDonation.String())
}

func TestAggregateDonations_Average(t *testing.T) {
	rows := []domain.DonationRow{
		donationRow("1", 500, 10, "S", "2024-01-01"),
		donationRow("2", 1000, 20, "S", "2024-01-02"),
		donationRow("3", 1500, 30.555, "S", "2024-02-01"),
	}

	report := AggregateDonations(rows, AggregationOptions{Status: "S"})

	assert.Equal(t, 3, report.Summary.TotalDonations)
	assert.Equal(t, "3000", report.Summary.TotalAmountEGP.String())
	assert.Equal(t, "1000", report.Summary.AverageDonation.String())
	assert.Equal(t, "60.56", report.Summary.TotalAmountUSD.String())
}

func TestAggregateDonations_NoDonations(t *testing.T) {
	report := AggregateDonations(nil, AggregationOptions{Status: "S"})

	assert.Equal(t, 0, report.Summary.TotalDonations)
	assert.True(t, report.Summary.AverageDonation.IsZero())
	assert.NotNil(t, report.DailyTotals)
	assert.NotNil(t, report.MonthlyTotals)
	assert.Empty(t, report.DailyTotals)
}

func TestAggregateDonations_RoundsSummaryOnly(t *testing.T) {
	rows := []domain.DonationRow{
		donationRow("1", 100.4, 0, "S", "2024-01-01"),
		donationRow("2", 100.4, 0, "S", "2024-01-01"),
	}

	report := AggregateDonations(rows, AggregationOptions{Status: "S"})

	assert.Equal(t, "200.8", report.DailyTotals[0].AmountEGP.String())
	assert.Equal(t, "201", report.Summary.TotalAmountEGP.String())
	assert.Equal(t, "100", report.Summary.AverageDonation.String())
}

func TestAggregateDonations_Conservation(t *testing.T) {
	rows := []domain.DonationRow{
		donationRow("1", 120.25, 2.5, "S", "2023-11-30"),
		donationRow("2", 80, 1.6, "S", "2023-12-01"),
		donationRow("3", 999, 20, "P", "2023-12-01"),
		donationRow("4", 45.75, 0.9, "S", "2024-01-15"),
		donationRow("5", 300, 6, "S", "2024-01-15"),
		donationRow("6", 12, 0.24, "F", "2024-01-16"),
	}

	report := AggregateDonations(rows, AggregationOptions{Status: "S"})

	accepted := decimal.Zero
	for _, r := range rows {
		if r.Status == "S" {
			accepted = accepted.Add(r.AmountEGP)
		}
	}
	monthly := decimal.Zero
	for _, b := range report.MonthlyTotals {
		monthly = monthly.Add(b.AmountEGP)
	}
	daily := decimal.Zero
	for _, b := range report.DailyTotals {
		daily = daily.Add(b.AmountEGP)
	}

	assert.True(t, accepted.Equal(monthly), "monthly %s != accepted %s", monthly, accepted)
	assert.True(t, accepted.Equal(daily), "daily %s != accepted %s", daily, accepted)
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01"}, bucketKeys(report.MonthlyTotals))
	assert.Equal(t, []string{"2023-11-30", "2023-12-01", "2024-01-15"}, bucketKeys(report.DailyTotals))
}

func TestAggregateDonations_Since(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.DonationRow{
		donationRow("1", 100, 0, "S", "2023-12-31"),
		donationRow("2", 200, 0, "S", "2024-01-01"),
	}

	report := AggregateDonations(rows, AggregationOptions{Status: "S", Since: &since})

	assert.Equal(t, 1, report.Summary.TotalDonations)
	assert.Equal(t, []string{"2024-01-01"}, bucketKeys(report.DailyTotals))
}

func TestAggregateDonations_Location(t *testing.T) {
	cairo := time.FixedZone("EET", 2*60*60)
	rows := []domain.DonationRow{
		donationRow("1", 100, 0, "S", "2024-01-31T23:30:00Z"),
	}

	utc := AggregateDonations(rows, AggregationOptions{Status: "S"})
	local := AggregateDonations(rows, AggregationOptions{Status: "S", Location: cairo})

	assert.Equal(t, []string{"2024-01"}, bucketKeys(utc.MonthlyTotals))
	assert.Equal(t, []string{"2024-02"}, bucketKeys(local.MonthlyTotals))
	assert.Equal(t, []string{"2024-02-01"}, bucketKeys(local.DailyTotals))
}

func TestAggregateDonations_YearCorrection(t *testing.T) {
	rows := []domain.DonationRow{
		donationRow("1", 100, 0, "S", "2025-03-05"),
		donationRow("2", 50, 0, "S", "2024-03-05"),
	}

	uncorrected := AggregateDonations(rows, AggregationOptions{Status: "S"})
	assert.Equal(t, []string{"2024-03", "2025-03"}, bucketKeys(uncorrected.MonthlyTotals))

	corrected := AggregateDonations(rows, AggregationOptions{
		Status:      "S",
		Corrections: []YearCorrection{{From: 2025, To: 2024}},
	})
	require.Len(t, corrected.MonthlyTotals, 1)
	assert.Equal(t, "2024-03", corrected.MonthlyTotals[0].Key)
	assert.Equal(t, 2, corrected.MonthlyTotals[0].Count)
}

func TestYearCorrection_Apply(t *testing.T) {
	c := YearCorrection{From: 2025, To: 2024}

	moved := c.Apply(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), moved)

	kept := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, kept, c.Apply(kept))
}

func bucketKeys(buckets []domain.DonationBucket) []string {
	keys := make([]string, len(buckets))
	for i, b := range buckets {
		keys[i] = b.Key
	}
	return keys
}
