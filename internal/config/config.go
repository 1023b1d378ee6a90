package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/darshil44/AI-Powered-Content-Explorer/pkg/config"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/database"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/tracing"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the content explorer API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"explorer"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"explorer_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"explorer_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTExpiry time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"168h"`

	// Cookie used as the fallback credential carrier for browser clients.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// External tool providers
	TavilyMCPURL   string        `env:"TAVILY_MCP_URL"`
	FluxMCPURL     string        `env:"FLUX_MCP_URL"`
	SmitheryAPIKey string        `env:"SMITHERY_API_KEY"`
	ToolTimeout    time.Duration `env:"TOOL_TIMEOUT" envDefault:"30s"`

	// Result cache
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"300s"`
	InFlightTTL  time.Duration `env:"CACHE_INFLIGHT_TTL" envDefault:"10s"`
	CachePollGap time.Duration `env:"CACHE_POLL_INTERVAL" envDefault:"100ms"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampling  float64 `env:"OTEL_TRACE_SAMPLE_RATE" envDefault:"1.0"`
	TracingEnabled bool    `env:"OTEL_TRACING_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.TavilyMCPURL == "" {
		return nil, fmt.Errorf("TAVILY_MCP_URL must be set")
	}
	if cfg.FluxMCPURL == "" {
		return nil, fmt.Errorf("FLUX_MCP_URL must be set")
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// Postgres returns the connection pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	cfg := database.DefaultPostgresConfig()
	cfg.Host = c.PostgresHost
	cfg.Port = c.PostgresPort
	cfg.User = c.PostgresUser
	cfg.Password = c.PostgresPass
	cfg.DBName = c.PostgresDB
	cfg.SSLMode = c.PostgresSSL
	return cfg
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	cfg := database.DefaultRedisConfig()
	cfg.Host = c.RedisHost
	cfg.Port = c.RedisPort
	cfg.Password = c.RedisPass
	cfg.DB = c.RedisDB
	return cfg
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing(serviceName string) tracing.Config {
	cfg := tracing.DefaultConfig(serviceName)
	cfg.Environment = c.Environment
	cfg.OTLPEndpoint = c.OTLPEndpoint
	cfg.SampleRate = c.TraceSampling
	cfg.Enabled = c.TracingEnabled
	return cfg
}
