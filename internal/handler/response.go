package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realty/internal/repository"
	"realty/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
// Caller mistakes are 4xx; an unreachable rate upstream is 502.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Environment errors
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusBadGateway

	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPaymentLocked),
		errors.Is(err, repository.ErrVersionConflict):
		return http.StatusConflict

	// Validation errors - Bad Request
	case service.IsValidationError(err),
		errors.Is(err, service.ErrUnsupportedCurrency),
		errors.Is(err, service.ErrConversion):
		return http.StatusBadRequest

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
