// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the JSON API used by browsers; empty disables it.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// StoreDriver selects the session/submission/device store: memory or postgres.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RosterSQLitePath is a read-only SQLite roster used for identifier resolution. Takes precedence
	// over the store's identifiers table.
	RosterSQLitePath string `mapstructure:"ROSTER_SQLITE_PATH"`
	// RosterCSVPath is a CSV (identity,secondary_id) loaded into memory when no other roster is set.
	RosterCSVPath string `mapstructure:"ROSTER_CSV_PATH"`

	// SessionDuration is how long a session accepts submissions (e.g. "10m").
	SessionDuration string `mapstructure:"SESSION_DURATION"`
	// RetentionWindow is how long sessions and submissions are kept after creation (e.g. "48h").
	RetentionWindow string `mapstructure:"RETENTION_WINDOW"`
	// SweepInterval is the retention sweeper period (e.g. "10m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	// AccessCodeLength is the number of characters in generated session codes (4–16).
	AccessCodeLength int `mapstructure:"ACCESS_CODE_LENGTH"`
	// FingerprintHashKey keys the BLAKE2b hash applied to device fingerprints before storage.
	FingerprintHashKey string `mapstructure:"FINGERPRINT_HASH_KEY"`

	// JWTPublicKey is the PEM public key (or path) used to verify caller tokens. Empty enables
	// trusted-proxy header mode.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTPrivateKey is the PEM private key (or path); only the seed tool uses it to mint dev tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTIssuer is the expected iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the expected aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, domain events are also written to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for attendance events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ROSTER_SQLITE_PATH", "")
	v.SetDefault("ROSTER_CSV_PATH", "")
	v.SetDefault("SESSION_DURATION", "10m")
	v.SetDefault("RETENTION_WINDOW", "48h")
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("ACCESS_CODE_LENGTH", 6)
	v.SetDefault("FINGERPRINT_HASH_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_ISSUER", "attendance-auth")
	v.SetDefault("JWT_AUDIENCE", "attendance-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "attendance-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "attendance-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	default:
		return nil, errors.New("config: STORE_DRIVER must be memory or postgres")
	}

	if cfg.AccessCodeLength == 0 {
		cfg.AccessCodeLength = 6
	}
	if cfg.AccessCodeLength < 4 || cfg.AccessCodeLength > 16 {
		return nil, errors.New("config: ACCESS_CODE_LENGTH must be between 4 and 16")
	}

	if cfg.Env == "production" && cfg.FingerprintHashKey == "" {
		return nil, errors.New("config: FINGERPRINT_HASH_KEY must be set when APP_ENV=production")
	}
	if cfg.Env == "production" && cfg.JWTPublicKey == "" {
		return nil, errors.New("config: JWT_PUBLIC_KEY must be set when APP_ENV=production")
	}

	if cfg.Duration() >= cfg.Retention() {
		return nil, errors.New("config: SESSION_DURATION must be shorter than RETENTION_WINDOW")
	}

	return &cfg, nil
}

// Duration parses SessionDuration. Returns 10m if unset or invalid.
func (c *Config) Duration() time.Duration {
	return parseDuration(c.SessionDuration, 10*time.Minute)
}

// Retention parses RetentionWindow. Returns 48h if unset or invalid.
func (c *Config) Retention() time.Duration {
	return parseDuration(c.RetentionWindow, 48*time.Hour)
}

// Sweep parses SweepInterval. Returns 10m if unset or invalid.
func (c *Config) Sweep() time.Duration {
	return parseDuration(c.SweepInterval, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
