package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/util"
	"github.com/rs/zerolog/log"
)

// DonationServiceConfig holds the ledger filter and bucketing settings
type DonationServiceConfig struct {
	Status        string
	Since         *time.Time // fixed lower bound, takes precedence over RecencyMonths
	RecencyMonths int        // 0 disables the recency cutoff
	RowLimit      int
	Location      *time.Location
	Corrections   []YearCorrection
}

// DefaultDonationServiceConfig returns the settings used when nothing is configured
func DefaultDonationServiceConfig() DonationServiceConfig {
	return DonationServiceConfig{
		Status:        "S",
		RecencyMonths: 12,
		RowLimit:      5000,
		Location:      time.UTC,
	}
}

// DonationService reads the donation ledger and aggregates it into a report
type DonationService struct {
	ledger domain.DonationLedger
	config DonationServiceConfig
	now    func() time.Time
}

// NewDonationService creates a new DonationService
func NewDonationService(ledger domain.DonationLedger, config DonationServiceConfig) *DonationService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &DonationService{
		ledger: ledger,
		config: config,
		now:    time.Now,
	}
}

// Since returns the effective lower date bound, or nil when no cutoff applies
func (s *DonationService) Since() *time.Time {
	if s.config.Since != nil {
		since := *s.config.Since
		return &since
	}
	if s.config.RecencyMonths <= 0 {
		return nil
	}
	since := util.MonthsAgo(s.now().In(s.config.Location), s.config.RecencyMonths)
	return &since
}

// GetReport fetches ledger rows and aggregates them. A ledger response without its row
// array yields an empty report rather than an error.
func (s *DonationService) GetReport(ctx context.Context) (*domain.DonationReport, error) {
	since := s.Since()
	query := domain.DonationQuery{
		Status: s.config.Status,
		Limit:  s.config.RowLimit,
	}
	// corrections may move rows across the cutoff, so the ledger cannot filter by date
	if len(s.config.Corrections) == 0 {
		query.Since = since
	}
	rows, err := s.ledger.FetchRows(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedLedger) {
			log.Warn().Err(err).Msg("Donation ledger returned no rows array, serving empty report")
			return domain.EmptyDonationReport(), nil
		}
		return nil, fmt.Errorf("failed to fetch donation rows: %w", err)
	}

	report := AggregateDonations(rows, AggregationOptions{
		Status:      s.config.Status,
		Since:       since,
		Location:    s.config.Location,
		Corrections: s.config.Corrections,
	})

	log.Debug().
		Int("rows", len(rows)).
		Int("accepted", report.Summary.TotalDonations).
		Int("days", len(report.DailyTotals)).
		Msg("Aggregated donations")
	return report, nil
}
