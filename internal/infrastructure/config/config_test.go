package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" || cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Development() {
		t.Fatalf("expected development mode by default")
	}
	if cfg.AdminBootstrap() {
		t.Fatalf("admin bootstrap should be off without credentials")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.Mongo.Database != "tunestream" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Redis)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"ENV":                  "production",
		"TOKEN_TTL":            "2h",
		"ADMIN_EMAIL":          "root@example.com",
		"ADMIN_PASSWORD":       "pw",
		"CORS_ALLOWED_ORIGINS": "https://a.test,https://b.test",
		"VNPAY_TMN_CODE":       "TUNE0001",
	}))
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}

	if cfg.Development() {
		t.Fatalf("expected production mode")
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.TokenTTL)
	}
	if !cfg.AdminBootstrap() {
		t.Fatalf("expected admin bootstrap")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.VNPay.TmnCode != "TUNE0001" {
		t.Fatalf("unexpected tmn code: %s", cfg.VNPay.TmnCode)
	}
}

func TestLoadWith_RequiresSecret(t *testing.T) {
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}
