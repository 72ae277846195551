package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/strata/pkg/observability"
	"github.com/platinummonkey/strata/pkg/store"
)

// EnvironmentUnresolvedError is raised when a foreign-key-bearing operation
// needs an environment id and none can be resolved for the detected code.
// This is the one place resolution fails loudly: writing with no id would
// corrupt referential integrity.
type EnvironmentUnresolvedError struct {
	Code string
}

func (e *EnvironmentUnresolvedError) Error() string {
	return fmt.Sprintf("environment %q cannot be resolved to an id", e.Code)
}

// EnvironmentResolver converts human-readable environment codes into the
// stable numeric ids required for foreign-key-safe store lookups. Resolved
// ids are cached without expiry.
//
// Codes exist only as resolution input here; ids are the only identity that
// crosses the store boundary.
type EnvironmentResolver struct {
	store    store.Store
	detector *Detector
	cache    *EnvironmentIDCache
	logger   *observability.Logger
}

// NewEnvironmentResolver creates a resolver over the given store and detector.
func NewEnvironmentResolver(s store.Store, detector *Detector, logger *observability.Logger) *EnvironmentResolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &EnvironmentResolver{
		store:    s,
		detector: detector,
		cache:    NewEnvironmentIDCache(),
		logger:   logger,
	}
}

// ResolveEnvironmentID resolves an environment code to its numeric id.
// Absence (empty input, an unknown code, or a store failure) is an
// expected outcome reported through the boolean, never an error.
func (r *EnvironmentResolver) ResolveEnvironmentID(ctx context.Context, code string) (int64, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return 0, false
	}

	if id, ok := r.cache.Get(normalized); ok {
		return id, true
	}

	env, err := r.store.FindEnvironmentByCode(ctx, normalized)
	if err != nil {
		r.logger.WithError(err).WithField("code", normalized).Warn("environment id lookup failed")
		return 0, false
	}
	if env == nil {
		// A known code with no backing row indicates topology misconfiguration.
		r.logger.WithField("code", normalized).Error("no environment row for code")
		return 0, false
	}

	r.cache.Set(normalized, env.ID)
	return env.ID, true
}

// CurrentEnvironmentID detects the current environment and resolves its id.
// Returns *EnvironmentUnresolvedError if no id exists for the detected code.
func (r *EnvironmentResolver) CurrentEnvironmentID(ctx context.Context) (int64, error) {
	code := r.detector.CurrentEnvironment(ctx)
	id, ok := r.ResolveEnvironmentID(ctx, code)
	if !ok {
		return 0, &EnvironmentUnresolvedError{Code: code}
	}
	return id, nil
}

// EnvironmentExists reports whether a code resolves to an id. Never errors;
// used as a pre-flight check before foreign-key-bearing writes.
func (r *EnvironmentResolver) EnvironmentExists(ctx context.Context, code string) bool {
	_, ok := r.ResolveEnvironmentID(ctx, code)
	return ok
}

// FlushCache empties the code-to-id cache.
func (r *EnvironmentResolver) FlushCache() {
	r.cache.Purge()
}
