package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/service/auth"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// devJWTSecret используется только в memory-режиме, когда секрет не задан.
const devJWTSecret = "storefront-dev-only-secret"

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	GRPCAddr    string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string
	SeedDemoCatalog     bool

	KafkaBrokers  []string
	KafkaClientID string

	PaystackSecretKey string
	PaystackBaseURL   string
	// WebhookSecret по умолчанию совпадает с PaystackSecretKey: Paystack подписывает им уведомления.
	WebhookSecret  string
	PaymentTimeout time.Duration
	CallbackURL    string
	CancelURL      string
	Currency       string

	JWTSecret         string
	AccessTokenTTL    time.Duration
	GoogleUserInfoURL string
	CookieSecure      bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		GRPCAddr:    ":50051",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		SeedDemoCatalog:     true,

		KafkaClientID: "storefront",

		PaystackBaseURL: "https://api.paystack.co",
		PaymentTimeout:  15 * time.Second,
		CallbackURL:     "http://localhost:3000/cart",
		CancelURL:       "http://localhost:3000/failed",
		Currency:        "NGN",

		AccessTokenTTL:    24 * time.Hour,
		GoogleUserInfoURL: auth.DefaultGoogleUserInfoURL,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfigFromEnv накладывает переменные окружения на DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	duration := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	integer := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("STOREFRONT_HTTP_ADDR", &cfg.HTTPAddr)
	str("STOREFRONT_METRICS_ADDR", &cfg.MetricsAddr)
	str("STOREFRONT_GRPC_ADDR", &cfg.GRPCAddr)

	str("STOREFRONT_STORAGE_DRIVER", &cfg.StorageDriver)
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	str("STOREFRONT_POSTGRES_DSN", &cfg.PostgresDSN)
	boolean("STOREFRONT_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)
	str("STOREFRONT_REDIS_ADDR", &cfg.RedisAddr)
	boolean("STOREFRONT_SEED_DEMO_CATALOG", &cfg.SeedDemoCatalog)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	str("STOREFRONT_KAFKA_CLIENT_ID", &cfg.KafkaClientID)

	str("PAYSTACK_SECRET_KEY", &cfg.PaystackSecretKey)
	str("PAYSTACK_BASE_URL", &cfg.PaystackBaseURL)
	cfg.WebhookSecret = cfg.PaystackSecretKey
	str("PAYSTACK_WEBHOOK_SECRET", &cfg.WebhookSecret)
	duration("STOREFRONT_PAYMENT_TIMEOUT", &cfg.PaymentTimeout)
	str("STOREFRONT_CALLBACK_URL", &cfg.CallbackURL)
	str("STOREFRONT_CANCEL_URL", &cfg.CancelURL)
	str("STOREFRONT_CURRENCY", &cfg.Currency)
	cfg.Currency = strings.ToUpper(cfg.Currency)

	str("STOREFRONT_JWT_SECRET", &cfg.JWTSecret)
	duration("STOREFRONT_ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL)
	str("STOREFRONT_GOOGLE_USERINFO_URL", &cfg.GoogleUserInfoURL)
	boolean("STOREFRONT_COOKIE_SECURE", &cfg.CookieSecure)

	duration("STOREFRONT_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	integer("STOREFRONT_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	integer("STOREFRONT_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	duration("STOREFRONT_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)

	duration("STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL", &cfg.IdempotencyCleanupInterval)
	integer("STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH_SIZE", &cfg.IdempotencyCleanupBatchSize)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек до запуска.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres storage requires STOREFRONT_POSTGRES_DSN"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("STOREFRONT_JWT_SECRET is required outside memory mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if c.PaymentTimeout <= 0 {
		errs = append(errs, errors.New("payment timeout must be positive"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q is not an ISO 4217 code", c.Currency))
	}
	return errors.Join(errs...)
}

func (c Config) jwtSecret() string {
	if c.JWTSecret == "" && c.StorageDriver == StorageDriverMemory {
		return devJWTSecret
	}
	return c.JWTSecret
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
