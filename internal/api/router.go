package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/tunestream/streaming-api/docs"
	"github.com/tunestream/streaming-api/internal/api/handler"
	"github.com/tunestream/streaming-api/internal/api/middleware"
	"github.com/tunestream/streaming-api/internal/core/domain"
	"github.com/tunestream/streaming-api/internal/core/ports"
)

// Deps is everything the router needs to wire handlers.
type Deps struct {
	Log         zerolog.Logger
	Auth        ports.AuthService
	Verifier    ports.TokenVerifier
	Payments    ports.PaymentService
	Callbacks   handler.CallbackVerifier
	Queue       handler.NotificationQueue
	Health      map[string]handler.Checker
	CORSOrigins []string
	// Metrics receives the HTTP request metrics. Nil disables them and /metrics.
	Metrics prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if len(d.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: d.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	if d.Metrics != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "tunestream",
			Registerer: d.Metrics,
		}))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	authHandler := handler.NewAuthHandler(d.Auth)
	paymentHandler := handler.NewPaymentHandler(d.Payments, d.Callbacks, d.Queue, d.Log)
	authMiddleware := middleware.Auth(d.Verifier)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- Gateway callbacks (authenticated by signature, not bearer token) ---
	e.GET("/v1/payments/vnpay/ipn", paymentHandler.IPN)
	e.GET("/v1/payments/vnpay/return", paymentHandler.Return)

	// --- Authenticated API ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/payments", paymentHandler.Create, middleware.RBAC(domain.RoleUser, domain.RoleAdmin))
	v1.GET("/payments/:txn_ref", paymentHandler.Get, middleware.RBAC(domain.RoleUser, domain.RoleAdmin))

	admin := v1.Group("/admin", middleware.RBAC(domain.RoleAdmin))
	admin.GET("/users", authHandler.ListUsers)

	// --- Health probes (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewHealthDependenciesHandler(d.Health).Readiness)

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
