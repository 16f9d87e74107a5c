package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/efb/signals/signals-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// maxBatchIDs bounds the ids accepted by one batch request
const maxBatchIDs = 50

// SeriesHandler handles series HTTP requests
type SeriesHandler struct {
	seriesService *service.SeriesService
}

// NewSeriesHandler creates a new SeriesHandler
func NewSeriesHandler(seriesService *service.SeriesService) *SeriesHandler {
	return &SeriesHandler{
		seriesService: seriesService,
	}
}

// SeriesBatchResponse is the body of a batch request. Each member is an envelope or an ErrorResponse.
type SeriesBatchResponse struct {
	Series map[string]interface{} `json:"series"`
}

// List handles GET /api/v1/series
// With ?ids=a,b it returns the envelopes of the listed series instead of the registry listing
func (h *SeriesHandler) List(c echo.Context) error {
	raw := c.QueryParam("ids")
	if raw == "" {
		return c.JSON(http.StatusOK, h.seriesService.List())
	}

	ids := splitIDs(raw)
	if len(ids) == 0 {
		return NewErrorResponse(c, http.StatusBadRequest, "ids must list at least one series")
	}
	if len(ids) > maxBatchIDs {
		return NewErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("at most %d ids per request", maxBatchIDs))
	}

	results := h.seriesService.GetMany(c.Request().Context(), ids)
	body := SeriesBatchResponse{Series: make(map[string]interface{}, len(results))}
	for id, result := range results {
		if result.Err != nil {
			log.Error().Err(result.Err).Str("series", id).Msg("Failed to build series in batch")
			body.Series[id] = ErrorResponse{Error: messageForError(result.Err)}
			continue
		}
		body.Series[id] = result.Envelope
	}
	return c.JSON(http.StatusOK, body)
}

// Get handles GET /api/v1/series/:id
// fx accepts optional base and sym query params
func (h *SeriesHandler) Get(c echo.Context) error {
	return h.serve(c, c.Param("id"))
}

// Legacy returns a handler serving one series at its original /api/<id> path
func (h *SeriesHandler) Legacy(id string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.serve(c, id)
	}
}

func (h *SeriesHandler) serve(c echo.Context, id string) error {
	params := domain.SeriesParams{
		Base:   c.QueryParam("base"),
		Symbol: c.QueryParam("sym"),
	}

	envelope, err := h.seriesService.Get(c.Request().Context(), id, params)
	if err != nil {
		status := StatusForError(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("series", id).Int("status", status).Msg("Failed to build series")
		}
		return NewErrorResponse(c, status, messageForError(err))
	}

	if envelope.IsFallback() {
		c.Response().Header().Set("Cache-Control", "no-store")
	} else if src, err := h.seriesService.Source(id); err == nil {
		maxAge := int(h.seriesService.CacheTTL(src).Seconds())
		c.Response().Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	}
	return c.JSON(http.StatusOK, envelope)
}

func splitIDs(raw string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
