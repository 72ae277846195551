package resolver

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/platinummonkey/strata/pkg/observability"
	"github.com/platinummonkey/strata/pkg/store"
)

const (
	// EnvironmentVariable is the process environment variable naming the
	// current environment.
	EnvironmentVariable = "STRATA_ENVIRONMENT"

	// EnvironmentConfigKey is the global store key consulted when neither
	// an override nor the environment variable is set.
	EnvironmentConfigKey = "app.environment"

	// FailsafeEnvironment is returned when every detection source is
	// silent. PROD is the most restrictive choice: a detection failure must
	// never grant development-level relaxations in an unknown context.
	FailsafeEnvironment = "PROD"
)

// EnvLookup reads process environment variables. The envfile overlay and
// tests substitute their own implementations.
type EnvLookup interface {
	Lookup(name string) (string, bool)
}

// OSEnv reads the real process environment.
type OSEnv struct{}

func (OSEnv) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Detector determines the current environment code for this process using
// an ordered, short-circuiting source hierarchy: explicit override, process
// environment variable, persisted global default, fail-safe constant.
//
// Detection is cheap and never cached; overrides and environment variables
// can change between calls in tests.
type Detector struct {
	store  store.Store
	env    EnvLookup
	logger *observability.Logger

	mu       sync.RWMutex
	override string
}

// NewDetector creates a detector backed by the given store. env may be nil,
// in which case the real process environment is used.
func NewDetector(s store.Store, env EnvLookup, logger *observability.Logger) *Detector {
	if env == nil {
		env = OSEnv{}
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Detector{store: s, env: env, logger: logger}
}

// SetOverride installs an explicit, highest-priority environment override
// (the command-line flag path). An empty string clears it.
func (d *Detector) SetOverride(code string) {
	d.mu.Lock()
	d.override = strings.TrimSpace(code)
	d.mu.Unlock()
}

// CurrentEnvironment returns the current environment code, uppercased.
func (d *Detector) CurrentEnvironment(ctx context.Context) string {
	d.mu.RLock()
	override := d.override
	d.mu.RUnlock()
	if override != "" {
		return strings.ToUpper(override)
	}

	if v, ok := d.env.Lookup(EnvironmentVariable); ok && strings.TrimSpace(v) != "" {
		return strings.ToUpper(strings.TrimSpace(v))
	}

	// A cold or unavailable store must never block detection; any failure
	// here is logged and the fail-safe takes over.
	entry, err := d.store.FindConfigByKeyAndEnv(ctx, EnvironmentConfigKey, nil)
	if err != nil {
		d.logger.WithError(err).Warn("environment detection store lookup failed; using fail-safe")
	} else if entry != nil && strings.TrimSpace(entry.Value) != "" {
		return strings.ToUpper(strings.TrimSpace(entry.Value))
	}

	return FailsafeEnvironment
}
