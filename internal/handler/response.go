package handler

import (
	"errors"
	"net/http"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse writes an error body with the given status
func NewErrorResponse(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message})
}

// NewErrorResponseWithDetails writes an error body carrying a details field
func NewErrorResponseWithDetails(c echo.Context, status int, message, details string) error {
	return c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// StatusForError maps a pipeline error to an HTTP status.
// Upstream error statuses pass through; other transport failures are 502.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound),
		errors.Is(err, domain.ErrSymbolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMalformedEnvelope):
		return http.StatusInternalServerError
	}

	if ff, ok := domain.AsFetchFailure(err); ok {
		if ff.Status >= 400 && ff.Status <= 599 {
			return ff.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messageForError returns the client-facing message for err
func messageForError(err error) string {
	if StatusForError(err) == http.StatusInternalServerError && !errors.Is(err, domain.ErrMalformedEnvelope) {
		return "Internal server error"
	}
	return err.Error()
}
