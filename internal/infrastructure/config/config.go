package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// Origins allowed to call the API from a browser.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000"`
	// Number of reconciliation workers draining gateway return callbacks.
	Workers int `env:"RECONCILE_WORKERS, default=4"`

	Admin AdminConfig
	Mongo MongoConfig
	Redis RedisConfig
	VNPay VNPayConfig
}

// AdminConfig seeds the bootstrap admin account when both fields are set.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tunestream"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type VNPayConfig struct {
	TmnCode    string `env:"VNPAY_TMN_CODE"`
	HashSecret string `env:"VNPAY_HASH_SECRET"`
	PayURL     string `env:"VNPAY_PAY_URL,    default=https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `env:"VNPAY_RETURN_URL, default=http://localhost:3000/payment/callback"`
}

// Development reports whether the process runs in the development environment.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// AdminBootstrap reports whether a bootstrap admin account is configured.
func (c *Config) AdminBootstrap() bool {
	return c.Admin.Email != "" && c.Admin.Password != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
