package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunestream/streaming-api/internal/api/middleware"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware. A missing
// or incomplete identity means the route was mounted without Auth; reject it.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok || identity.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return identity, nil
}
