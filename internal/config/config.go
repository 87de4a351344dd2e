// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset. It is refused in production.
const DevJWTSecret = "dev-secret-key-change-me"

// Backend names accepted by SESSION_STORE and USER_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const (
	defaultExpirationHours = 24
	defaultBcryptCost      = 12
	defaultReapInterval    = 5 * time.Minute
	defaultExportInterval  = 10 * time.Second
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the REST API; empty disables it.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// Version is reported as the service.version telemetry resource attribute.
	Version string `mapstructure:"APP_VERSION"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTSecret is the HMAC signing secret. Ignored when a key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTAlgorithm is HS256, HS384 or HS512.
	JWTAlgorithm string `mapstructure:"JWT_ALGORITHM"`
	// JWTExpirationHours is the token lifetime in hours.
	JWTExpirationHours int `mapstructure:"JWT_EXPIRATION_HOURS"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SessionStore selects the session ledger backend: memory, postgres or redis.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// UserStore selects the user directory backend: memory or postgres.
	UserStore string `mapstructure:"USER_STORE"`
	// DatabaseURL is the Postgres DSN; required when either store is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is host:port of Redis; required when SESSION_STORE=redis.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// SessionReapInterval is how often expired sessions and revoked entries are swept (e.g. "5m"); "0" disables.
	SessionReapInterval string `mapstructure:"SESSION_REAP_INTERVAL"`

	// OTLPEndpoint is the OTLP gRPC collector; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to an https endpoint.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// OTLPExportInterval is how often metrics are pushed to the collector (e.g. "10s").
	OTLPExportInterval string `mapstructure:"OTEL_EXPORT_INTERVAL"`
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When set, auth events are also published to Kafka.
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for auth events (default authledger-events).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the event worker.
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
	v.AllowEmptyEnv(true) // HTTP_ADDR= disables the REST API

	// Every key needs a default so Unmarshal picks it up from the environment.
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("JWT_EXPIRATION_HOURS", defaultExpirationHours)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("BCRYPT_COST", defaultBcryptCost)
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("USER_STORE", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_REAP_INTERVAL", "5m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_EXPORT_INTERVAL", "10s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "authledger-events")
	v.SetDefault("KAFKA_GROUP_ID", "authledger-event-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = defaultBcryptCost
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if c.JWTExpirationHours == 0 {
		c.JWTExpirationHours = defaultExpirationHours
	}
	if c.JWTExpirationHours < 0 {
		return errors.New("config: JWT_EXPIRATION_HOURS must be positive")
	}

	if (c.JWTPrivateKey == "") != (c.JWTPublicKey == "") {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}
	if !c.UsesKeyPair() {
		switch c.JWTAlgorithm {
		case "HS256", "HS384", "HS512":
		default:
			return fmt.Errorf("config: JWT_ALGORITHM %q is not supported (HS256, HS384, HS512)", c.JWTAlgorithm)
		}
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET must be set")
		}
		if c.IsProduction() && c.JWTSecret == DevJWTSecret {
			return errors.New("config: JWT_SECRET must be changed from the development default when APP_ENV=production")
		}
	}

	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.UserStore = strings.ToLower(strings.TrimSpace(c.UserStore))
	switch c.SessionStore {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("config: SESSION_STORE %q is not supported (memory, postgres, redis)", c.SessionStore)
	}
	switch c.UserStore {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("config: USER_STORE %q is not supported (memory, postgres)", c.UserStore)
	}
	if c.NeedsDatabase() && c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set when a postgres store is selected")
	}
	if c.SessionStore == StoreRedis && c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set when SESSION_STORE=redis")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesKeyPair reports whether tokens are signed with a PEM key pair instead of the HMAC secret.
func (c *Config) UsesKeyPair() bool {
	return c.JWTPrivateKey != "" && c.JWTPublicKey != ""
}

// NeedsDatabase reports whether any store is backed by Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.SessionStore == StorePostgres || c.UserStore == StorePostgres
}

// TokenTTL returns the token lifetime. Returns 24h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	if c.JWTExpirationHours <= 0 {
		return defaultExpirationHours * time.Hour
	}
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

// ReapInterval parses SessionReapInterval. Returns 5m if unset or invalid and 0 when
// explicitly disabled with "0".
func (c *Config) ReapInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionReapInterval)
	if err != nil || d < 0 {
		return defaultReapInterval
	}
	return d
}

// ExportInterval parses OTLPExportInterval. Returns 10s if unset, invalid or not positive.
func (c *Config) ExportInterval() time.Duration {
	d, err := time.ParseDuration(c.OTLPExportInterval)
	if err != nil || d <= 0 {
		return defaultExportInterval
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if Kafka publishing is enabled (non-empty list) and to create the producer.
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
