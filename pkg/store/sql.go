package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/strata/pkg/observability"
)

// SQLStore implements Store on top of database/sql. It is written against
// the SQL subset shared by PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3)
// so the same store serves production and local development.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *observability.Logger
}

// NewSQLStore wraps an open database handle. driver is the database/sql
// driver name the handle was opened with ("postgres" or "sqlite3").
func NewSQLStore(db *sql.DB, driver string, logger *observability.Logger) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &SQLStore{db: db, driver: driver, logger: logger}, nil
}

// EnsureSchema creates the configuration tables if they do not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	var ddl string
	if s.driver == "sqlite3" {
		ddl = `
		CREATE TABLE IF NOT EXISTS environments (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS config_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			environment_id INTEGER REFERENCES environments(id),
			is_active INTEGER NOT NULL DEFAULT 1,
			data_type TEXT NOT NULL DEFAULT 'string',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_config_entries_key ON config_entries(key);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_config_entries_env_key
			ON config_entries(key, COALESCE(environment_id, 0));`
	} else {
		ddl = `
		CREATE TABLE IF NOT EXISTS environments (
			id BIGINT PRIMARY KEY,
			code VARCHAR(16) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS config_entries (
			id BIGSERIAL PRIMARY KEY,
			key VARCHAR(255) NOT NULL,
			value TEXT NOT NULL,
			environment_id BIGINT REFERENCES environments(id),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			data_type VARCHAR(32) NOT NULL DEFAULT 'string',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_config_entries_key ON config_entries(key);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_config_entries_env_key
			ON config_entries(key, COALESCE(environment_id, 0));`
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to ensure config schema: %w", err)
	}
	return nil
}

const configColumns = `id, key, value, environment_id, is_active, data_type, description, created_at, updated_at`

// FindConfigByKeyAndEnv returns the active entry for (key, environmentID),
// or nil when absent. A duplicate-active-rows violation of the store's
// uniqueness invariant is tolerated: the lowest-id row wins and the
// violation is logged.
func (s *SQLStore) FindConfigByKeyAndEnv(ctx context.Context, key string, environmentID *int64) (*ConfigEntry, error) {
	var rows *sql.Rows
	var err error

	if environmentID == nil {
		query := `SELECT ` + configColumns + `
			FROM config_entries
			WHERE key = $1 AND environment_id IS NULL AND is_active = TRUE
			ORDER BY id`
		rows, err = s.db.QueryContext(ctx, query, key)
	} else {
		query := `SELECT ` + configColumns + `
			FROM config_entries
			WHERE key = $1 AND environment_id = $2 AND is_active = TRUE
			ORDER BY id`
		rows, err = s.db.QueryContext(ctx, query, key, *environmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config entry: %w", err)
	}
	defer rows.Close()

	var first *ConfigEntry
	extras := 0
	for rows.Next() {
		entry, err := scanConfigEntry(rows)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = entry
		} else {
			extras++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating config entries: %w", err)
	}

	if extras > 0 {
		s.logger.WithFields(map[string]interface{}{
			"key":        key,
			"duplicates": extras,
		}).Warn("multiple active config rows for one (key, environment); using lowest id")
	}

	return first, nil
}

// FindActiveConfigsByEnv returns all active entries for an environment,
// ordered by key for deterministic iteration.
func (s *SQLStore) FindActiveConfigsByEnv(ctx context.Context, environmentID int64) ([]ConfigEntry, error) {
	query := `SELECT ` + configColumns + `
		FROM config_entries
		WHERE environment_id = $1 AND is_active = TRUE
		ORDER BY key, id`

	rows, err := s.db.QueryContext(ctx, query, environmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query config entries: %w", err)
	}
	defer rows.Close()

	entries := make([]ConfigEntry, 0)
	for rows.Next() {
		entry, err := scanConfigEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating config entries: %w", err)
	}

	return entries, nil
}

// FindEnvironmentByCode returns the environment row matching code,
// case-insensitively, or nil when absent.
func (s *SQLStore) FindEnvironmentByCode(ctx context.Context, code string) (*Environment, error) {
	query := `SELECT id, code, description FROM environments WHERE UPPER(code) = $1`

	var env Environment
	err := s.db.QueryRowContext(ctx, query, strings.ToUpper(code)).Scan(&env.ID, &env.Code, &env.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query environment: %w", err)
	}
	return &env, nil
}

// ListEnvironments returns all environments ordered by id.
func (s *SQLStore) ListEnvironments(ctx context.Context) ([]Environment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, description FROM environments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	defer rows.Close()

	envs := make([]Environment, 0)
	for rows.Next() {
		var env Environment
		if err := rows.Scan(&env.ID, &env.Code, &env.Description); err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating environments: %w", err)
	}
	return envs, nil
}

// UpsertEnvironment inserts or updates an environment row by id.
func (s *SQLStore) UpsertEnvironment(ctx context.Context, env *Environment) error {
	if env == nil {
		return fmt.Errorf("environment is required")
	}
	code := strings.ToUpper(env.Code)
	if code == "" {
		return fmt.Errorf("environment code is required")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE environments SET code = $1, description = $2 WHERE id = $3`,
		code, env.Description, env.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update environment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check environment update: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO environments (id, code, description) VALUES ($1, $2, $3)`,
		env.ID, code, env.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to insert environment: %w", err)
	}
	return nil
}

// UpsertConfig inserts or updates the entry for (key, environment id).
// Update-then-insert keeps the statement portable between drivers.
func (s *SQLStore) UpsertConfig(ctx context.Context, entry *ConfigEntry) error {
	if entry == nil {
		return fmt.Errorf("config entry is required")
	}
	if entry.Key == "" {
		return fmt.Errorf("config key is required")
	}

	now := time.Now().UTC()

	var res sql.Result
	var err error
	if entry.EnvironmentID == nil {
		res, err = s.db.ExecContext(ctx,
			`UPDATE config_entries
			SET value = $1, is_active = $2, data_type = $3, description = $4, updated_at = $5
			WHERE key = $6 AND environment_id IS NULL`,
			entry.Value, entry.IsActive, entry.DataType, entry.Description, now, entry.Key,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE config_entries
			SET value = $1, is_active = $2, data_type = $3, description = $4, updated_at = $5
			WHERE key = $6 AND environment_id = $7`,
			entry.Value, entry.IsActive, entry.DataType, entry.Description, now, entry.Key, *entry.EnvironmentID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update config entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check config update: %w", err)
	}
	if affected > 0 {
		entry.UpdatedAt = now
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO config_entries (key, value, environment_id, is_active, data_type, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Key, entry.Value, entry.EnvironmentID, entry.IsActive, entry.DataType, entry.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert config entry: %w", err)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// scanConfigEntry scans one config_entries row.
func scanConfigEntry(rows *sql.Rows) (*ConfigEntry, error) {
	var entry ConfigEntry
	var envID sql.NullInt64
	err := rows.Scan(
		&entry.ID, &entry.Key, &entry.Value, &envID, &entry.IsActive,
		&entry.DataType, &entry.Description, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan config entry: %w", err)
	}
	if envID.Valid {
		entry.EnvironmentID = &envID.Int64
	}
	return &entry, nil
}
