package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDonationService(config DonationServiceConfig, rows ...domain.DonationRow) (*DonationService, *testutil.MockDonationLedger) {
	ledger := testutil.NewMockDonationLedger(rows...)
	svc := NewDonationService(ledger, config)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	return svc, ledger
}

func TestDonationService_DefaultConfig(t *testing.T) {
	config := DefaultDonationServiceConfig()

	assert.Equal(t, "S", config.Status)
	assert.Equal(t, 12, config.RecencyMonths)
	assert.Equal(t, 5000, config.RowLimit)
	assert.Equal(t, time.UTC, config.Location)
	assert.Empty(t, config.Corrections)
}

func TestDonationService_GetReport(t *testing.T) {
	svc, ledger := setupDonationService(DefaultDonationServiceConfig(),
		donationRow("1", 100, 2, "S", "2024-03-05"),
		donationRow("2", 200, 4, "S", "2024-03-05"),
		donationRow("3", 400, 8, "S", "2023-01-10"), // older than the recency cutoff
	)

	report, err := svc.GetReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalDonations)
	assert.Equal(t, "300", report.Summary.TotalAmountEGP.String())
	assert.Equal(t, "6", report.Summary.TotalAmountUSD.String())

	assert.Equal(t, 1, ledger.Calls)
	assert.Equal(t, "S", ledger.LastQuery.Status)
	assert.Equal(t, 5000, ledger.LastQuery.Limit)
	require.NotNil(t, ledger.LastQuery.Since)
	assert.Equal(t, time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC), *ledger.LastQuery.Since)
}

func TestDonationService_RecencyDisabled(t *testing.T) {
	config := DefaultDonationServiceConfig()
	config.RecencyMonths = 0
	svc, ledger := setupDonationService(config, donationRow("1", 400, 8, "S", "2020-01-10"))

	report, err := svc.GetReport(context.Background())
	require.NoError(t, err)

	assert.Nil(t, ledger.LastQuery.Since)
	assert.Equal(t, 1, report.Summary.TotalDonations)
}

func TestDonationService_FixedSinceWins(t *testing.T) {
	since := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	config := DefaultDonationServiceConfig()
	config.Since = &since
	svc, ledger := setupDonationService(config,
		donationRow("1", 100, 0, "S", "2024-03-05"),
		donationRow("2", 200, 0, "S", "2024-03-07"),
	)

	report, err := svc.GetReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, since, *ledger.LastQuery.Since)
	assert.Equal(t, 1, report.Summary.TotalDonations)
}

func TestDonationService_CorrectionSkipsLedgerCutoff(t *testing.T) {
	config := DefaultDonationServiceConfig()
	config.Corrections = []YearCorrection{{From: 2023, To: 2024}}
	svc, ledger := setupDonationService(config,
		donationRow("1", 100, 2, "S", "2023-03-05"), // corrected to 2024-03-05
		donationRow("2", 200, 4, "S", "2022-03-05"), // still before the cutoff
	)

	report, err := svc.GetReport(context.Background())
	require.NoError(t, err)

	assert.Nil(t, ledger.LastQuery.Since)
	assert.Equal(t, 1, report.Summary.TotalDonations)
	assert.Equal(t, []string{"2024-03"}, bucketKeys(report.MonthlyTotals))
}

func TestDonationService_MalformedLedgerYieldsEmptyReport(t *testing.T) {
	svc, ledger := setupDonationService(DefaultDonationServiceConfig())
	ledger.Err = domain.ErrMalformedLedger

	report, err := svc.GetReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.TotalDonations)
	assert.True(t, report.Summary.AverageDonation.IsZero())
	assert.Empty(t, report.DailyTotals)
	assert.Empty(t, report.MonthlyTotals)
}

func TestDonationService_LedgerFailure(t *testing.T) {
	svc, ledger := setupDonationService(DefaultDonationServiceConfig())
	ledger.Err = &domain.FetchFailure{Status: 401, Message: "Unauthorized"}

	report, err := svc.GetReport(context.Background())
	assert.Nil(t, report)
	require.Error(t, err)

	var ff *domain.FetchFailure
	assert.True(t, errors.As(err, &ff))
}
