package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/client/api"
	"github.com/tunestream/streaming-api/internal/client/credential"
	"github.com/tunestream/streaming-api/internal/client/flow"
	"github.com/tunestream/streaming-api/internal/client/policy"
	redisdb "github.com/tunestream/streaming-api/internal/infrastructure/db/redis"
	"github.com/tunestream/streaming-api/pkg/logger"
)

// app holds the client components shared by every subcommand.
type app struct {
	cfg    clientConfig
	log    zerolog.Logger
	store  *credential.Store
	client *api.Client
	nav    *policy.Navigator
	flow   *flow.Machine
	close  func() error
}

func newApp(ctx context.Context, cfg clientConfig) (*app, error) {
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: os.Stderr, Service: "tunectl"})
	log := logger.Component("tunectl")

	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := credential.NewStore(backend, log)
	client := api.New(cfg.APIURL, store, api.WithTimeout(cfg.Timeout))
	p := policy.Default()
	nav := policy.NewNavigator(p, store, policy.DefaultRoutes())

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		client: client,
		nav:    nav,
		flow:   flow.New(client, store, nav, p, log),
		close:  closeFn,
	}, nil
}

func openBackend(ctx context.Context, cfg clientConfig) (credential.Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case storeFile:
		return credential.NewFileBackend(cfg.CredentialsFile), noop, nil
	case storeMemory:
		return credential.NewMemoryBackend(), noop, nil
	case storeRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			return nil, nil, err
		}
		return credential.NewRedisBackend(rdb, cfg.RedisPrefix), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential store %q (want %s, %s or %s)", cfg.Store, storeFile, storeRedis, storeMemory)
	}
}
