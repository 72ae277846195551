package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/strata/pkg/observability"
)

// Config holds all service bootstrap configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Audit configuration
	Audit AuditConfig

	// Resolver configuration
	Resolver ResolverConfig

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

// DatabaseConfig holds persistent store configuration
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	// URL is the connection string (postgres URL or sqlite file path)
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration

	// SeedFile, when set, is a YAML file of environments and config
	// entries upserted at startup
	SeedFile string
}

// AuditConfig holds audit sink configuration
type AuditConfig struct {
	// DBEnabled persists events to the configuration database
	DBEnabled bool

	// RedisURL, when set, enables the Redis stream sink
	RedisURL      string
	RedisPassword string
	RedisStream   string
	RedisMaxLen   int64

	// RetentionDays is how long DB events are kept (retention janitor)
	RetentionDays int
}

// ResolverConfig holds resolution behavior configuration
type ResolverConfig struct {
	// CacheTTL for resolved values
	CacheTTL time.Duration

	// EnvironmentOverride pins the environment, bypassing detection
	EnvironmentOverride string

	// DevEnvironments are the codes where the env-var fallback is allowed
	DevEnvironments []string

	// OverridesFile is a KEY=VALUE overlay file for dev contexts
	OverridesFile string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Audit:         loadAuditConfig(),
		Resolver:      loadResolverConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("STRATA_HOST", "0.0.0.0"),
		Port:            getEnv("STRATA_PORT", "8080"),
		ReadTimeout:     getEnvDuration("STRATA_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("STRATA_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("STRATA_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("STRATA_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("STRATA_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads store configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:   getEnv("STRATA_DB_DRIVER", "postgres"),
		URL:      getEnv("STRATA_DB_URL", ""),
		MaxConns: getEnvInt("STRATA_DB_MAX_CONNS", 25),
		MinConns: getEnvInt("STRATA_DB_MIN_CONNS", 5),
		Timeout:  getEnvDuration("STRATA_DB_TIMEOUT", 10*time.Second),
		SeedFile: getEnv("STRATA_SEED_FILE", ""),
	}
}

// loadAuditConfig loads audit sink configuration from environment
func loadAuditConfig() AuditConfig {
	return AuditConfig{
		DBEnabled:     getEnvBool("STRATA_AUDIT_DB_ENABLED", true),
		RedisURL:      getEnv("STRATA_AUDIT_REDIS_URL", ""),
		RedisPassword: getEnv("STRATA_AUDIT_REDIS_PASSWORD", ""),
		RedisStream:   getEnv("STRATA_AUDIT_REDIS_STREAM", ""),
		RedisMaxLen:   int64(getEnvInt("STRATA_AUDIT_REDIS_MAXLEN", 100000)),
		RetentionDays: getEnvInt("STRATA_AUDIT_RETENTION_DAYS", 90),
	}
}

// loadResolverConfig loads resolution behavior from environment
func loadResolverConfig() ResolverConfig {
	cfg := ResolverConfig{
		CacheTTL:            getEnvDuration("STRATA_CACHE_TTL", 5*time.Minute),
		EnvironmentOverride: getEnv("STRATA_ENVIRONMENT_OVERRIDE", ""),
		OverridesFile:       getEnv("STRATA_OVERRIDES_FILE", ""),
	}
	if devs := getEnv("STRATA_DEV_ENVIRONMENTS", ""); devs != "" {
		for _, code := range strings.Split(devs, ",") {
			if code = strings.TrimSpace(code); code != "" {
				cfg.DevEnvironments = append(cfg.DevEnvironments, strings.ToUpper(code))
			}
		}
	}
	return cfg
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("STRATA_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("STRATA_METRICS_ENABLED", true),
	}
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

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Resolver.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
