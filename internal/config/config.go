// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis). Empty disables the ledger cache and rate limiting.
	RedisURL       string        `env:"REDIS_URL"`
	LedgerCacheTTL time.Duration `env:"LEDGER_CACHE_TTL" envDefault:"10m"`
	RedisPoolSize  int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisTimeout   time.Duration `env:"REDIS_TIMEOUT" envDefault:"500ms"`

	// Auth tokens
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Ledger events (RabbitMQ). Empty disables publishing.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"tally.ledger"`

	// Ledger events mirrored to a Redis stream. Requires REDIS_URL.
	EventStreamEnabled bool   `env:"EVENT_STREAM_ENABLED" envDefault:"false"`
	EventStreamKey     string `env:"EVENT_STREAM_KEY" envDefault:"stream:ledger_events"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitUserRPM   int  `env:"RATE_LIMIT_USER_RPM" envDefault:"120"`
	RateLimitUserBurst int  `env:"RATE_LIMIT_USER_BURST" envDefault:"20"`
	RateLimitAuthRPM   int  `env:"RATE_LIMIT_AUTH_RPM" envDefault:"10"`
	RateLimitAuthBurst int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "http://localhost:3000,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks combinations that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("memory backend is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q (want %s or %s)",
			c.StorageBackend, BackendPostgres, BackendMemory))
	}

	if c.EventStreamEnabled && c.RedisURL == "" {
		errs = append(errs, errors.New("EVENT_STREAM_ENABLED requires REDIS_URL"))
	}

	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	if c.AppPort < 1 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid APP_PORT %d", c.AppPort))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file, parses environment variables and validates the result.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
