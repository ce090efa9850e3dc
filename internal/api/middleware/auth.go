package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tunestream/streaming-api/internal/api/metrics"
	"github.com/tunestream/streaming-api/internal/core/domain"
	"github.com/tunestream/streaming-api/internal/core/ports"
)

// ContextKeyIdentity is the echo context key holding the verified *domain.Identity.
const ContextKeyIdentity = "identity"

// Auth validates the bearer token on every request and injects the identity
// it carries into the context. No server-side session is consulted.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("missing_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.TokenRejectionsTotal.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			identity, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity injected by Auth, if any.
func IdentityFrom(c echo.Context) (*domain.Identity, bool) {
	id, ok := c.Get(ContextKeyIdentity).(*domain.Identity)
	return id, ok && id != nil
}
