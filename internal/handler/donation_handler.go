package handler

import (
	"net/http"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DonationHandler handles donation report HTTP requests
type DonationHandler struct {
	donationService *service.DonationService
}

// NewDonationHandler creates a new DonationHandler
func NewDonationHandler(donationService *service.DonationService) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
	}
}

// DailyTotalResponse represents one day bucket in API response
type DailyTotalResponse struct {
	Date      string  `json:"date"`
	AmountEGP float64 `json:"amountEGP"`
	AmountUSD float64 `json:"amountUSD"`
	Count     int     `json:"count"`
}

// MonthlyTotalResponse represents one month bucket in API response
type MonthlyTotalResponse struct {
	Month     string  `json:"month"`
	AmountEGP float64 `json:"amountEGP"`
	AmountUSD float64 `json:"amountUSD"`
	Count     int     `json:"count"`
}

// DonationSummaryResponse represents the summary totals in API response
type DonationSummaryResponse struct {
	TotalDonations  int     `json:"totalDonations"`
	TotalAmountEGP  float64 `json:"totalAmountEGP"`
	TotalAmountUSD  float64 `json:"totalAmountUSD"`
	AverageDonation float64 `json:"averageDonation"`
}

// DonationReportResponse represents the donation report API response
type DonationReportResponse struct {
	DailyTotals   []DailyTotalResponse    `json:"dailyTotals"`
	MonthlyTotals []MonthlyTotalResponse  `json:"monthlyTotals"`
	Summary       DonationSummaryResponse `json:"summary"`
}

// GetReport handles GET /api/v1/donations
func (h *DonationHandler) GetReport(c echo.Context) error {
	report, err := h.donationService.GetReport(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build donation report")
		return NewErrorResponseWithDetails(c, http.StatusInternalServerError, "Failed to fetch donations data", err.Error())
	}

	return c.JSON(http.StatusOK, toDonationReportResponse(report))
}

func toDonationReportResponse(report *domain.DonationReport) DonationReportResponse {
	daily := make([]DailyTotalResponse, 0, len(report.DailyTotals))
	for _, b := range report.DailyTotals {
		daily = append(daily, DailyTotalResponse{
			Date:      b.Key,
			AmountEGP: b.AmountEGP.InexactFloat64(),
			AmountUSD: b.AmountUSD.InexactFloat64(),
			Count:     b.Count,
		})
	}

	monthly := make([]MonthlyTotalResponse, 0, len(report.MonthlyTotals))
	for _, b := range report.MonthlyTotals {
		monthly = append(monthly, MonthlyTotalResponse{
			Month:     b.Key,
			AmountEGP: b.AmountEGP.InexactFloat64(),
			AmountUSD: b.AmountUSD.InexactFloat64(),
			Count:     b.Count,
		})
	}

	s := report.Summary
	return DonationReportResponse{
		DailyTotals:   daily,
		MonthlyTotals: monthly,
		Summary: DonationSummaryResponse{
			TotalDonations:  s.TotalDonations,
			TotalAmountEGP:  s.TotalAmountEGP.InexactFloat64(),
			TotalAmountUSD:  s.TotalAmountUSD.InexactFloat64(),
			AverageDonation: s.AverageDonation.InexactFloat64(),
		},
	}
}
