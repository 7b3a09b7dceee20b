package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Store       StoreConfig
	Gateway     GatewayConfig
	Secrets     SecretsConfig
	Sweep       SweepConfig
	Events      EventsConfig
	Logger      LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	MetricsPort     int
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// StoreConfig selects and configures the ledger store
type StoreConfig struct {
	Driver     string // "postgres" or "sqlite"
	SQLitePath string

	DatabaseURL string // Takes precedence over the DB_* parts
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
}

// GatewayConfig holds payment network configuration
type GatewayConfig struct {
	BaseURL string
	// Inline API key. When empty the key is read from the secret source.
	APIKey     string
	APIKeyName string
	Timeout    time.Duration
	MaxRetries int
}

// SecretsConfig selects where credentials are read from
type SecretsConfig struct {
	Backend   string // env, local, aws, vault
	LocalPath string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress    string
	VaultToken      string
	VaultAuthMethod string
	VaultRoleID     string
	VaultSecretID   string
	VaultMountPath  string
}

// SweepConfig controls background reconciliation of pending payments
type SweepConfig struct {
	Interval    time.Duration // 0 disables the sweep
	MinAge      time.Duration
	BatchSize   int
	MaxAttempts int
}

// EventsConfig configures domain event publishing. No brokers disables it.
type EventsConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	QueueSize    int // events buffered while the broker is slow
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// ConnectionString returns the PostgreSQL connection string
func (c *StoreConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			// PORT is what most hosting platforms inject
			Port:            getEnvAsInt("HTTP_PORT", getEnvAsInt("PORT", 3000)),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 40),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: loadStore(),
		Gateway: GatewayConfig{
			BaseURL:    getEnv("PI_API_URL", "https://api.minepi.com/v2"),
			APIKey:     getEnv("PI_API_KEY", ""),
			APIKeyName: getEnv("PI_API_KEY_SECRET", ""),
			Timeout:    getEnvAsDuration("PI_API_TIMEOUT", 15*time.Second),
			MaxRetries: getEnvAsInt("PI_API_MAX_RETRIES", 2),
		},
		Secrets: SecretsConfig{
			Backend:         strings.ToLower(getEnv("SECRET_MANAGER", "env")),
			LocalPath:       getEnv("SECRETS_PATH", "./secrets"),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			AWSProfile:      getEnv("AWS_PROFILE", ""),
			AWSEndpoint:     getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:    getEnv("VAULT_ADDR", ""),
			VaultToken:      getEnv("VAULT_TOKEN", ""),
			VaultAuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
			VaultRoleID:     getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("VAULT_SECRET_ID", ""),
			VaultMountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		Sweep: SweepConfig{
			Interval:    getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
			MinAge:      getEnvAsDuration("SWEEP_MIN_AGE", 2*time.Minute),
			BatchSize:   getEnvAsInt("SWEEP_BATCH_SIZE", 50),
			MaxAttempts: getEnvAsInt("SWEEP_MAX_ATTEMPTS", 50),
		},
		Events: EventsConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "book-market.events"),
			WriteTimeout: getEnvAsDuration("KAFKA_WRITE_TIMEOUT", 5*time.Second),
			QueueSize:    getEnvAsInt("KAFKA_QUEUE_SIZE", 1024),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env != "production",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required and mutually dependent settings
func (c *Config) Validate() error {
	var errs []error

	if c.Gateway.APIKey == "" && c.Gateway.APIKeyName == "" {
		errs = append(errs, errors.New("PI_API_KEY or PI_API_KEY_SECRET is required"))
	}

	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Secrets.Backend {
	case "env", "local", "aws":
	case "vault":
		if c.Secrets.VaultAddress == "" {
			errs = append(errs, errors.New("VAULT_ADDR is required when SECRET_MANAGER=vault"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported SECRET_MANAGER %q", c.Secrets.Backend))
	}

	if c.Sweep.Interval < 0 || c.Sweep.MinAge < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL and SWEEP_MIN_AGE must not be negative"))
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	return errors.Join(errs...)
}

// LoadStoreFromEnv loads only the store settings, for tools that need no
// payment network access
func LoadStoreFromEnv() (*StoreConfig, error) {
	store := loadStore()
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return &store, nil
}

func loadStore() StoreConfig {
	return StoreConfig{
		Driver:      strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		SQLitePath:  getEnv("SQLITE_PATH", "book-market.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        getEnvAsInt("DB_PORT", 5432),
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Database:    getEnv("DB_NAME", "book_market"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		MaxConns:    int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:    int32(getEnvAsInt("DB_MIN_CONNS", 5)),
	}
}

// Validate checks the selected driver has what it needs
func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.DatabaseURL == "" && c.Password == "" {
			return errors.New("DATABASE_URL or DB_PASSWORD is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Driver)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
