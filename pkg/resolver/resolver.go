package resolver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/classify"
	"github.com/platinummonkey/strata/pkg/observability"
	"github.com/platinummonkey/strata/pkg/store"
)

// lookupStatus distinguishes "absent" from "failed" for store reads, so the
// fallback chain can treat them alike without losing the distinction in
// logs and audit events.
type lookupStatus int

const (
	lookupFound lookupStatus = iota
	lookupNotFound
	lookupError
)

// Options configures a Resolver. The zero value is usable: default TTL,
// real process environment, log-only audit sink.
type Options struct {
	// TTL for the value cache; DefaultTTL when non-positive.
	TTL time.Duration

	// Emitter receives one audit event per non-cache-hit resolution.
	Emitter audit.Emitter

	// Env supplies process environment variables (overlay-able for dev).
	Env EnvLookup

	// DevEnvironments are the codes in which the environment-variable
	// fallback tier is allowed. Defaults to DEV and LOCAL.
	DevEnvironments []string

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Resolver resolves typed configuration values through the tiered fallback
// chain: value cache, environment-specific row, global row, process
// environment variable (dev contexts only), caller default.
//
// Callers never receive a propagated store error; resolution degrades to
// the next tier and ultimately the supplied default.
type Resolver struct {
	store    store.Store
	detector *Detector
	envs     *EnvironmentResolver
	values   *ValueCache
	emitter  audit.Emitter
	env      EnvLookup
	logger   *observability.Logger
	metrics  *observability.Metrics
	devEnvs  map[string]bool
}

// New creates a Resolver over the given store.
func New(s store.Store, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	env := opts.Env
	if env == nil {
		env = OSEnv{}
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = audit.NewLogEmitter(logger)
	}
	devEnvs := opts.DevEnvironments
	if len(devEnvs) == 0 {
		devEnvs = []string{"DEV", "LOCAL"}
	}
	devSet := make(map[string]bool, len(devEnvs))
	for _, code := range devEnvs {
		devSet[strings.ToUpper(code)] = true
	}

	detector := NewDetector(s, env, logger)
	return &Resolver{
		store:    s,
		detector: detector,
		envs:     NewEnvironmentResolver(s, detector, logger),
		values:   NewValueCache(opts.TTL),
		emitter:  emitter,
		env:      env,
		logger:   logger,
		metrics:  opts.Metrics,
		devEnvs:  devSet,
	}
}

// Detector exposes the environment detector (for override wiring).
func (r *Resolver) Detector() *Detector {
	return r.detector
}

// Environments exposes the environment identity resolver.
func (r *Resolver) Environments() *EnvironmentResolver {
	return r.envs
}

// GetString resolves key through the fallback chain, returning def when no
// tier produces a value.
func (r *Resolver) GetString(ctx context.Context, key, def string) string {
	value, _ := r.resolve(ctx, key, def)
	return value
}

// GetInteger resolves key and parses it as an integer. A non-parseable
// value logs a warning and yields def; parse failures never propagate.
func (r *Resolver) GetInteger(ctx context.Context, key string, def int) int {
	raw, resolved := r.resolve(ctx, key, "")
	if !resolved {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"key":   key,
			"value": classify.Sanitize(raw, classify.Classify(key)),
		}).Warn("config value is not an integer; using default")
		return def
	}
	return n
}

// GetBoolean resolves key and parses it as a boolean. Recognized true
// tokens: true, yes, 1, on, enabled. False tokens: false, no, 0, off,
// disabled. Anything else logs a warning and yields def.
func (r *Resolver) GetBoolean(ctx context.Context, key string, def bool) bool {
	raw, resolved := r.resolve(ctx, key, "")
	if !resolved {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1", "on", "enabled":
		return true
	case "false", "no", "0", "off", "disabled":
		return false
	default:
		r.logger.WithFields(map[string]interface{}{
			"key":   key,
			"value": classify.Sanitize(raw, classify.Classify(key)),
		}).Warn("config value is not a boolean; using default")
		return def
	}
}

// GetSection returns every active entry for the current environment whose
// key starts with prefix, with the prefix stripped. Bulk reads bypass the
// per-key cache. Any failure yields an empty map.
func (r *Resolver) GetSection(ctx context.Context, prefix string) map[string]string {
	section := make(map[string]string)

	envID, err := r.envs.CurrentEnvironmentID(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("section read: environment unresolved")
		return section
	}

	start := time.Now()
	entries, err := r.store.FindActiveConfigsByEnv(ctx, envID)
	if r.metrics != nil {
		r.metrics.RecordStoreQuery("find_active_configs_by_env", time.Since(start), err)
	}
	if err != nil {
		r.logger.WithError(err).WithField("prefix", prefix).Warn("section read failed")
		return section
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Key, prefix) {
			section[strings.TrimPrefix(entry.Key, prefix)] = entry.Value
		}
	}
	return section
}

// ClearCache atomically empties the value cache and the environment-id
// cache. Safe concurrently with in-flight resolutions; a resolution racing
// the clear may repopulate one entry, which the next TTL-respecting read
// refreshes.
func (r *Resolver) ClearCache() {
	r.values.Purge()
	r.envs.FlushCache()
	if r.metrics != nil {
		r.metrics.CacheFlushTotal.Inc()
	}
}

// resolve walks the fallback chain. The second return reports whether any
// tier (cache through env-var) produced a value; false means def was used.
func (r *Resolver) resolve(ctx context.Context, key, def string) (string, bool) {
	start := time.Now()
	envCode := r.detector.CurrentEnvironment(ctx)

	// Tier 1: value cache. Hits stay off the store and are not audited.
	if value, ok := r.values.Get(key, envCode); ok {
		if r.metrics != nil {
			r.metrics.CacheHitsTotal.WithLabelValues("values").Inc()
			r.metrics.RecordResolution(string(audit.SourceCache), true, time.Since(start))
		}
		return value, true
	}
	if r.metrics != nil {
		r.metrics.CacheMissesTotal.WithLabelValues("values").Inc()
	}

	storeFailed := false

	// Tier 2: environment-specific row.
	if envID, ok := r.envs.ResolveEnvironmentID(ctx, envCode); ok {
		value, status := r.lookup(ctx, key, &envID)
		switch status {
		case lookupFound:
			r.values.Set(key, envCode, value)
			return r.finish(ctx, key, envCode, value, audit.SourceEnvironment, true, start), true
		case lookupError:
			storeFailed = true
		}
	}

	// Tier 3: global row, cached under the requesting environment's key.
	value, status := r.lookup(ctx, key, nil)
	switch status {
	case lookupFound:
		r.values.Set(key, envCode, value)
		return r.finish(ctx, key, envCode, value, audit.SourceGlobal, true, start), true
	case lookupError:
		storeFailed = true
	}

	// Tier 4: process environment variable, dev contexts only. Production
	// must never silently pick up developer-machine variables.
	if r.devEnvs[envCode] {
		if value, ok := r.env.Lookup(envVarName(key)); ok && value != "" {
			return r.finish(ctx, key, envCode, value, audit.SourceEnvVar, true, start), true
		}
	}

	// Tier 5: caller default.
	source := audit.SourceDefault
	if storeFailed {
		source = audit.SourceError
	}
	r.finish(ctx, key, envCode, def, source, false, start)
	return def, false
}

// lookup performs one store read, folding the error into a lookupStatus so
// the chain can degrade instead of propagating.
func (r *Resolver) lookup(ctx context.Context, key string, envID *int64) (string, lookupStatus) {
	operation := "find_config_env"
	if envID == nil {
		operation = "find_config_global"
	}

	start := time.Now()
	entry, err := r.store.FindConfigByKeyAndEnv(ctx, key, envID)
	if r.metrics != nil {
		r.metrics.RecordStoreQuery(operation, time.Since(start), err)
	}
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("config store lookup failed; falling through")
		return "", lookupError
	}
	if entry == nil {
		return "", lookupNotFound
	}
	return entry.Value, lookupFound
}

// finish records metrics and emits the audit event for a non-cache-hit
// resolution, returning value unchanged for call-site convenience.
func (r *Resolver) finish(ctx context.Context, key, envCode, value string, source audit.Source, success bool, start time.Time) string {
	if r.metrics != nil {
		r.metrics.RecordResolution(string(source), success, time.Since(start))
		if source != audit.SourceEnvironment {
			r.metrics.ResolutionFallbacks.WithLabelValues(string(source)).Inc()
		}
	}

	tier := classify.Classify(key)
	actor := observability.GetActor(ctx)
	if actor == "" {
		actor = audit.SystemActor
	}

	event := &audit.Event{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Actor:          actor,
		Key:            key,
		Tier:           tier,
		SanitizedValue: classify.Sanitize(value, tier),
		Source:         source,
		Success:        success,
		Environment:    envCode,
		RequestID:      observability.GetRequestID(ctx),
	}

	if err := r.emitter.Emit(ctx, event); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("audit emission failed")
		if r.metrics != nil {
			r.metrics.AuditEmitFailsTotal.Inc()
		}
	} else if r.metrics != nil {
		r.metrics.AuditEventsTotal.WithLabelValues(string(tier)).Inc()
	}

	return value
}

// envVarName maps a dot-segmented config key to its environment variable
// form: a.b.c becomes A_B_C.
func envVarName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
