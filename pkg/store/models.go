package store

import "time"

// ConfigEntry is a single persisted configuration row.
//
// EnvironmentID is nil for global rows. All values are stored as text;
// typed interpretation happens in the resolver.
type ConfigEntry struct {
	ID            int64      `json:"id"`
	Key           string     `json:"key"`
	Value         string     `json:"value"`
	EnvironmentID *int64     `json:"environment_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	DataType      string     `json:"data_type,omitempty"`
	Description   string     `json:"description,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Environment maps a human-readable code to the stable numeric id used for
// all cross-entity references. Code is the only human-facing identifier;
// every foreign key uses ID.
type Environment struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}
