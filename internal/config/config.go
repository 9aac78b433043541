package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	AdminToken         string
	PublicBaseURL      string
	CORSAllowedOrigins []string

	MidtransServerKey string
	MidtransBaseURL   string
	PaymentSandbox    bool
	XenditSecretKey   string
	XenditBaseURL     string
	PaymentProvider   string

	CheckoutSessionTTL  time.Duration
	WebhookReplayTTL    time.Duration
	IdempotencyTTL      time.Duration
	CheckoutRateMax     int64
	CheckoutRateWindow  time.Duration
	MaxBodyBytes        int64
	DefaultCommissionPct int

	MigrationsPath string
	MigrateOnStart bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		AdminToken:         k.String("ADMIN_TOKEN"),
		PublicBaseURL:      valueOrDefault(k.String("PUBLIC_BASE_URL"), "http://localhost:3000"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		MidtransServerKey: k.String("MIDTRANS_SERVER_KEY"),
		MidtransBaseURL:   k.String("MIDTRANS_BASE_URL"),
		PaymentSandbox:    parseBool(valueOrDefault(k.String("PAYMENT_SANDBOX"), "true")),
		XenditSecretKey:   k.String("XENDIT_SECRET_KEY"),
		XenditBaseURL:     k.String("XENDIT_BASE_URL"),
		PaymentProvider:   valueOrDefault(strings.ToLower(k.String("PAYMENT_PROVIDER")), "midtrans"),

		CheckoutSessionTTL:   parseDuration(k.String("CHECKOUT_SESSION_TTL"), "30m"),
		WebhookReplayTTL:     parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRateMax:      int64(k.Int("CHECKOUT_RATE_MAX")),
		CheckoutRateWindow:   parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		MaxBodyBytes:         int64(k.Int("MAX_BODY_BYTES")),
		DefaultCommissionPct: k.Int("DEFAULT_COMMISSION_PCT"),

		MigrationsPath: valueOrDefault(k.String("MIGRATIONS_PATH"), "db/migrations"),
		MigrateOnStart: parseBool(k.String("MIGRATE_ON_START")),
	}

	if cfg.CheckoutRateMax <= 0 {
		cfg.CheckoutRateMax = 20
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.DefaultCommissionPct <= 0 {
		cfg.DefaultCommissionPct = 15
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
