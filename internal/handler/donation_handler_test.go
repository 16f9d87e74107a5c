package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/service"
	"github.com/efb/signals/signals-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func setupDonationHandler(rows ...domain.DonationRow) (*DonationHandler, *testutil.MockDonationLedger) {
	ledger := testutil.NewMockDonationLedger(rows...)
	config := service.DefaultDonationServiceConfig()
	config.RecencyMonths = 0
	svc := service.NewDonationService(ledger, config)
	return NewDonationHandler(svc), ledger
}

func ledgerRow(egp, usd int64, status, date string) domain.DonationRow {
	d, _ := time.Parse("2006-01-02", date)
	return domain.DonationRow{
		AmountEGP: decimal.NewFromInt(egp),
		AmountUSD: decimal.NewFromInt(usd),
		Currency:  "EGP",
		Date:      d,
		Status:    status,
	}
}

func TestDonationHandler_GetReport(t *testing.T) {
	e := echo.New()
	h, _ := setupDonationHandler(
		ledgerRow(100, 0, "S", "2024-03-05"),
		ledgerRow(200, 0, "S", "2024-03-05"),
		ledgerRow(50, 0, "F", "2024-03-06"),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetReport(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response DonationReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response.DailyTotals) != 1 {
		t.Fatalf("Expected 1 daily bucket, got %d", len(response.DailyTotals))
	}
	day := response.DailyTotals[0]
	if day.Date != "2024-03-05" || day.AmountEGP != 300 || day.AmountUSD != 0 || day.Count != 2 {
		t.Errorf("Unexpected daily bucket: %+v", day)
	}
	if len(response.MonthlyTotals) != 1 || response.MonthlyTotals[0].Month != "2024-03" {
		t.Errorf("Unexpected monthly buckets: %+v", response.MonthlyTotals)
	}
	if response.Summary.TotalDonations != 2 {
		t.Errorf("Expected 2 donations, got %d", response.Summary.TotalDonations)
	}
	if response.Summary.TotalAmountEGP != 300 {
		t.Errorf("Expected totalAmountEGP 300, got %v", response.Summary.TotalAmountEGP)
	}
	if response.Summary.AverageDonation != 150 {
		t.Errorf("Expected averageDonation 150, got %v", response.Summary.AverageDonation)
	}
}

func TestDonationHandler_GetReport_MalformedLedger(t *testing.T) {
	e := echo.New()
	h, ledger := setupDonationHandler()
	ledger.Err = domain.ErrMalformedLedger

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetReport(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	daily, ok := response["dailyTotals"].([]interface{})
	if !ok || len(daily) != 0 {
		t.Errorf("Expected empty dailyTotals array, got %v", response["dailyTotals"])
	}
	summary := response["summary"].(map[string]interface{})
	if summary["averageDonation"] != float64(0) {
		t.Errorf("Expected averageDonation 0, got %v", summary["averageDonation"])
	}
}

func TestDonationHandler_GetReport_LedgerFailure(t *testing.T) {
	e := echo.New()
	h, ledger := setupDonationHandler()
	ledger.Err = &domain.FetchFailure{Status: 401, Message: "Unauthorized"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/donations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetReport(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Error != "Failed to fetch donations data" {
		t.Errorf("Unexpected error message: %s", response.Error)
	}
	if response.Details == "" {
		t.Error("Expected details to be set")
	}
}
