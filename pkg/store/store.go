package store

import "context"

// Store is the read/write contract the resolver requires from a persistence
// engine. Reads return nil (not an error) for the expected-absence case.
type Store interface {
	// FindConfigByKeyAndEnv returns the active entry for (key, environmentID),
	// or nil if none exists. A nil environmentID matches the global row.
	FindConfigByKeyAndEnv(ctx context.Context, key string, environmentID *int64) (*ConfigEntry, error)

	// FindActiveConfigsByEnv returns all active entries for an environment.
	FindActiveConfigsByEnv(ctx context.Context, environmentID int64) ([]ConfigEntry, error)

	// FindEnvironmentByCode returns the environment matching code
	// (case-insensitive), or nil if none exists.
	FindEnvironmentByCode(ctx context.Context, code string) (*Environment, error)

	// ListEnvironments returns all known environments.
	ListEnvironments(ctx context.Context) ([]Environment, error)

	// UpsertEnvironment inserts or updates an environment row by id.
	UpsertEnvironment(ctx context.Context, env *Environment) error

	// UpsertConfig inserts or updates a configuration entry. The entry's
	// EnvironmentID must be a resolved numeric id (or nil for global); the
	// field type makes passing a raw code string impossible.
	UpsertConfig(ctx context.Context, entry *ConfigEntry) error

	// Close releases the underlying connection pool.
	Close() error
}
