// Package config provides service configuration management from environment variables.
//
// # Overview
//
// This package loads and validates bootstrap configuration from environment
// variables with sensible defaults for all settings. It configures the
// service process itself; the values the service serves live in the store.
//
// # Configuration Structure
//
// Server settings:
//
//	STRATA_HOST="0.0.0.0"
//	STRATA_PORT="8080"
//	STRATA_HEALTH_PORT="9090"
//	STRATA_READ_TIMEOUT="15s"
//	STRATA_WRITE_TIMEOUT="15s"
//	STRATA_IDLE_TIMEOUT="60s"
//	STRATA_SHUTDOWN_TIMEOUT="30s"
//
// Database settings:
//
//	STRATA_DB_DRIVER="postgres"  # postgres, sqlite3
//	STRATA_DB_URL="postgres://localhost/strata?sslmode=disable"
//	STRATA_DB_MAX_CONNS="25"
//	STRATA_DB_MIN_CONNS="5"
//	STRATA_DB_TIMEOUT="10s"
//	STRATA_SEED_FILE=""          # optional YAML seed applied at startup
//
// Audit settings:
//
//	STRATA_AUDIT_DB_ENABLED="true"
//	STRATA_AUDIT_REDIS_URL=""    # host:port; empty disables the stream sink
//	STRATA_AUDIT_REDIS_PASSWORD=""
//	STRATA_AUDIT_REDIS_STREAM=""  # empty uses audit.DefaultStream
//	STRATA_AUDIT_REDIS_MAXLEN="100000"
//	STRATA_AUDIT_RETENTION_DAYS="90"
//
// Resolver settings:
//
//	STRATA_CACHE_TTL="5m"
//	STRATA_ENVIRONMENT_OVERRIDE=""
//	STRATA_DEV_ENVIRONMENTS="DEV,LOCAL"
//	STRATA_OVERRIDES_FILE=""     # dev KEY=VALUE overlay, hot reloaded
//
// Observability settings:
//
//	STRATA_LOG_LEVEL="info"  # debug, info, warn, error
//	STRATA_METRICS_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		// validation failed
//	}
//	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
package config
