package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunestream/streaming-api/internal/api/metrics"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth. The
// response never says which role would have been needed.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}
			if _, ok := allowed[identity.Role]; !ok {
				metrics.TokenRejectionsTotal.WithLabelValues("forbidden_role").Inc()
				return c.JSON(http.StatusForbidden, map[string]string{"message": "forbidden"})
			}
			return next(c)
		}
	}
}
