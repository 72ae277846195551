package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBEmitter persists audit events to a SQL table.
type DBEmitter struct {
	db *sql.DB
}

// NewDBEmitter creates a database-backed emitter and ensures its table.
func NewDBEmitter(db *sql.DB) (*DBEmitter, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	e := &DBEmitter{db: db}
	if err := e.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure config_audit_events table: %w", err)
	}
	return e, nil
}

// ensureTable creates the config_audit_events table if it doesn't exist
func (e *DBEmitter) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS config_audit_events (
		id VARCHAR(36) PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		actor VARCHAR(255) NOT NULL,
		key VARCHAR(255) NOT NULL,
		tier VARCHAR(16) NOT NULL,
		sanitized_value TEXT NOT NULL,
		source VARCHAR(16) NOT NULL,
		success BOOLEAN NOT NULL,
		environment VARCHAR(16),
		request_id VARCHAR(100),
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_config_audit_events_timestamp ON config_audit_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_config_audit_events_key ON config_audit_events(key);
	CREATE INDEX IF NOT EXISTS idx_config_audit_events_actor ON config_audit_events(actor);
	`

	_, err := e.db.Exec(query)
	return err
}

// Emit inserts one event.
func (e *DBEmitter) Emit(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO config_audit_events (
			id, timestamp, actor, key, tier,
			sanitized_value, source, success, environment, request_id, message
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11
		)
	`

	_, err := e.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.Actor, event.Key, string(event.Tier),
		event.SanitizedValue, string(event.Source), event.Success,
		event.Environment, event.RequestID, event.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// DeleteOlderThan removes events with a timestamp before cutoff and returns
// the number of rows removed. Used by the retention janitor.
func (e *DBEmitter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := e.db.ExecContext(ctx, `DELETE FROM config_audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired audit events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted audit events: %w", err)
	}
	return affected, nil
}

// Close is a no-op; the database handle is shared and owned by the caller.
func (e *DBEmitter) Close() error {
	return nil
}
