// @title                       tunestream API
// @version                     1.0
// @description                 Authentication, access control and payments for the tunestream streaming backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tunestream/streaming-api/internal/api"
	"github.com/tunestream/streaming-api/internal/api/handler"
	"github.com/tunestream/streaming-api/internal/core/service"
	"github.com/tunestream/streaming-api/internal/infrastructure/config"
	mongodb "github.com/tunestream/streaming-api/internal/infrastructure/db/mongo"
	redisdb "github.com/tunestream/streaming-api/internal/infrastructure/db/redis"
	"github.com/tunestream/streaming-api/internal/infrastructure/queue"
	"github.com/tunestream/streaming-api/internal/infrastructure/vnpay"
	"github.com/tunestream/streaming-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "tunestream-api",
		Caller:  true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	// --- Services ---
	authService := service.NewAuthService(mongodb.NewUserRepository(db), cfg.JWTSecret, cfg.TokenTTL, logger.Component("auth_service"))
	if cfg.AdminBootstrap() {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
	}

	gateway := vnpay.New(vnpay.Config{
		TmnCode:    cfg.VNPay.TmnCode,
		HashSecret: cfg.VNPay.HashSecret,
		PayURL:     cfg.VNPay.PayURL,
		ReturnURL:  cfg.VNPay.ReturnURL,
	})
	paymentService := service.NewPaymentService(
		mongodb.NewPaymentRepository(db),
		gateway,
		redisdb.NewNotificationDedup(rdb),
		logger.Component("payment_service"),
	)

	dispatcher := queue.NewDispatcher(cfg.Workers, paymentService, logger.Component("reconciler"))
	dispatcher.Start(ctx)

	e := api.NewRouter(api.Deps{
		Log:         log,
		Auth:        authService,
		Verifier:    authService,
		Payments:    paymentService,
		Callbacks:   gateway,
		Queue:       dispatcher,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     prometheus.DefaultRegisterer,
		Health: map[string]handler.Checker{
			"mongodb": handler.MongoChecker(db),
			"redis":   handler.RedisChecker(rdb),
		},
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
