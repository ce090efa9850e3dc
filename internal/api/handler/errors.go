package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// StatusFor maps known domain errors to an HTTP status and a client-safe
// message. ok is false for errors the caller must treat as unexpected.
func StatusFor(err error) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials", true
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token", true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", true
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "Email already registered", true
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found", true
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound, "payment not found", true
	case errors.Is(err, domain.ErrPaymentFinalized):
		return http.StatusConflict, "payment already finalized", true
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature", true
	case errors.Is(err, domain.ErrAmountMismatch):
		return http.StatusBadRequest, "amount mismatch", true
	case errors.Is(err, domain.ErrInvalidPaymentData):
		return http.StatusBadRequest, "invalid payment data", true
	}
	return 0, "", false
}

// bindAndValidate decodes the request body into req and runs the registered
// validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// writeError renders validation and known domain errors directly. Anything
// else is returned so the central error handler can log it.
func writeError(c echo.Context, err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "Validation failed", Errors: ve.Fields})
	}
	if status, msg, ok := StatusFor(err); ok {
		return c.JSON(status, ErrorResponse{Message: msg})
	}
	return err
}
