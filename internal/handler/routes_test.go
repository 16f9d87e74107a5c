package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	seriesHandler, fetcher := setupSeriesHandler(t)
	fetcher.SetResponse(testWheatURL, "DATE,VALUE\n2024-01-01,10\n")
	donationHandler, _ := setupDonationHandler(ledgerRow(100, 0, "S", "2024-03-05"))

	RegisterRoutes(e, seriesHandler, donationHandler, nil, []string{"wheat-price", "imf-cpi", "fx"})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/health", http.StatusOK},
		{"/api/v1/series", http.StatusOK},
		{"/api/v1/series/wheat-price", http.StatusOK},
		{"/api/v1/series/unknown", http.StatusNotFound},
		{"/api/v1/donations", http.StatusOK},
		{"/api/donations", http.StatusOK},
		{"/api/wheat-price", http.StatusOK},
		{"/api/not-registered", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d for %s, got %d", tt.wantStatus, tt.path, rec.Code)
			}
		})
	}
}
