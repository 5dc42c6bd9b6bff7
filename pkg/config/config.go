package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cipherhub/cipherhub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Aggregation pipeline configuration
	Pipeline PipelineConfig

	// Admin bootstrap configuration
	Admin AdminConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds Postgres and Redis configuration
type StorageConfig struct {
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// PipelineConfig holds the aggregation pipeline settings
type PipelineConfig struct {
	// Schedule is the cron expression for the daily run
	Schedule string
	// Timezone is the fixed reference zone for date windows
	Timezone string
	// EventName is the analytics event to aggregate
	EventName string
	// BatchSize caps increments per transaction
	BatchSize int
}

// AdminConfig holds the first-admin bootstrap secret
type AdminConfig struct {
	BootstrapSecret string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("CIPHERHUB_HOST", "0.0.0.0"),
			Port:            getEnv("CIPHERHUB_PORT", "8080"),
			ReadTimeout:     getEnvDuration("CIPHERHUB_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("CIPHERHUB_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("CIPHERHUB_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("CIPHERHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("CIPHERHUB_HEALTH_PORT", "9090"),
		},
		Storage: StorageConfig{
			PostgresURL:      getEnv("CIPHERHUB_POSTGRES_URL", "postgres://localhost/cipherhub?sslmode=disable"),
			PostgresMaxConns: getEnvInt("CIPHERHUB_POSTGRES_MAX_CONNS", 10),
			PostgresMinConns: getEnvInt("CIPHERHUB_POSTGRES_MIN_CONNS", 2),
			PostgresTimeout:  getEnvDuration("CIPHERHUB_POSTGRES_TIMEOUT", 5*time.Second),
			RedisURL:         getEnv("CIPHERHUB_REDIS_URL", ""),
			RedisPassword:    getEnv("CIPHERHUB_REDIS_PASSWORD", ""),
			RedisDB:          getEnvInt("CIPHERHUB_REDIS_DB", 0),
		},
		Pipeline: PipelineConfig{
			Schedule:  getEnv("CIPHERHUB_AGGREGATION_SCHEDULE", "0 3 * * *"),
			Timezone:  getEnv("CIPHERHUB_TIMEZONE", "America/Sao_Paulo"),
			EventName: getEnv("CIPHERHUB_DOWNLOAD_EVENT", "cipher_downloaded"),
			BatchSize: getEnvInt("CIPHERHUB_COUNTER_BATCH_SIZE", 500),
		},
		Admin: AdminConfig{
			BootstrapSecret: getEnv("CIPHERHUB_ADMIN_BOOTSTRAP_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(strings.ToLower(getEnv("CIPHERHUB_LOG_LEVEL", "info"))),
			MetricsEnabled: getEnvBool("CIPHERHUB_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Pipeline.Schedule == "" {
		return fmt.Errorf("aggregation schedule is required")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Pipeline.Timezone, err)
	}
	if c.Pipeline.EventName == "" {
		return fmt.Errorf("download event name is required")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("counter batch size must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
