package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. legacyIDs get an alias at /api/<id>.
func RegisterRoutes(e *echo.Echo, seriesHandler *SeriesHandler, donationHandler *DonationHandler, wsHandler *WebSocketHandler, legacyIDs []string, mw ...echo.MiddlewareFunc) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if wsHandler != nil {
		e.GET("/ws", wsHandler.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1", mw...)

	series := api.Group("/series")
	series.GET("", seriesHandler.List)
	series.GET("/:id", seriesHandler.Get)

	api.GET("/donations", donationHandler.GetReport)

	// Original dashboard paths
	legacy := e.Group("/api", mw...)
	legacy.GET("/donations", donationHandler.GetReport)
	for _, id := range legacyIDs {
		if id == "donations" || id == "v1" {
			continue
		}
		legacy.GET("/"+id, seriesHandler.Legacy(id))
	}
}
