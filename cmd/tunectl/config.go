package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	storeFile   = "file"
	storeRedis  = "redis"
	storeMemory = "memory"
)

type clientConfig struct {
	APIURL          string        `env:"TUNECTL_API_URL, default=http://localhost:8080"`
	Store           string        `env:"TUNECTL_STORE, default=file"`
	CredentialsFile string        `env:"TUNECTL_CREDENTIALS_FILE"`
	RedisAddr       string        `env:"TUNECTL_REDIS_ADDR, default=localhost:6379"`
	RedisPassword   string        `env:"TUNECTL_REDIS_PASSWORD"`
	RedisPrefix     string        `env:"TUNECTL_REDIS_PREFIX, default=tunestream:credential"`
	Timeout         time.Duration `env:"TUNECTL_TIMEOUT, default=15s"`
	LogLevel        string        `env:"TUNECTL_LOG_LEVEL, default=warn"`
}

func loadClientConfig(ctx context.Context, l envconfig.Lookuper) (clientConfig, error) {
	var cfg clientConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return clientConfig{}, err
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = defaultCredentialsFile()
	}
	return cfg, nil
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tunestream", "credentials.json")
}
