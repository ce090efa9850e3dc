package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/api/handler"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := map[string]struct {
		err     error
		code    int
		message string
	}{
		"echo error":          {echo.NewHTTPError(http.StatusUnauthorized, "invalid token"), http.StatusUnauthorized, "invalid token"},
		"wrapped credentials": {fmt.Errorf("login: %w", domain.ErrInvalidCredentials), http.StatusUnauthorized, "Invalid credentials"},
		"payment not found":   {domain.ErrPaymentNotFound, http.StatusNotFound, "payment not found"},
		"forbidden":           {domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		"validation":          {&handler.ValidationError{Fields: []string{"email is required"}}, http.StatusUnprocessableEntity, "Validation failed"},
		"unexpected":          {errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal server error"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			e.HTTPErrorHandler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var resp handler.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}
