package config // loads runtime configuration from environment variables

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration.  Each field corresponds to
// an environment variable; Load enforces the required ones and exits
// with a fatal log when any is missing.
type Config struct {
	Env       string // APP_ENV: dev, test or prod
	Port      string // APP_PORT: HTTP port to listen on
	JWTSecret string // JWT_SECRET: HS256 secret for verifying access tokens

	// Store selection.  "mysql" (default) uses the relational store;
	// "memory" runs everything in-process for local development.
	StoreDriver string // STORE_DRIVER

	DBUser string // DB_USER
	DBPass string // DB_PASS (empty allowed)
	DBHost string // DB_HOST
	DBPort string // DB_PORT
	DBName string // DB_NAME

	// HoldTTL is how long a hold reserves capacity before lapsing.
	HoldTTL time.Duration // HOLD_TTL (Go duration, default 72h)

	// CustodyURL points at the key-custody service that signs ticket
	// payloads with event keys.  Empty selects the in-process
	// custodian, which is only suitable for dev and tests.
	CustodyURL string // CUSTODY_URL

	// RegistrarURL points at the identity service used to register
	// unknown payer contacts.  Empty disables registration; unknown
	// contacts then always get fallback identities.
	RegistrarURL string // REGISTRAR_URL

	// RabbitURL is the AMQP broker for issuance notifications.  Empty
	// disables publishing.
	RabbitURL string // RABBITMQ_URL

	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads configuration from the environment.  Database variables
// are only required when the mysql store driver is selected.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		JWTSecret:    must("JWT_SECRET"),
		StoreDriver:  envStr("STORE_DRIVER", "mysql"),
		HoldTTL:      envDur("HOLD_TTL", 72*time.Hour),
		CustodyURL:   os.Getenv("CUSTODY_URL"),
		RegistrarURL: os.Getenv("REGISTRAR_URL"),
		RabbitURL:    os.Getenv("RABBITMQ_URL"),
		RateLimit:    LoadRateLimitConfig(),
		Cache:        LoadCacheConfig(),
	}
	if cfg.StoreDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
