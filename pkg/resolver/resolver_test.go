package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/classify"
	"github.com/platinummonkey/strata/pkg/observability"
)

func int64p(v int64) *int64 { return &v }

// newDevStore returns a store with DEV (id 1) and PROD (id 3) environments.
func newDevStore() *stubStore {
	s := &stubStore{}
	s.addEnvironment(1, "DEV")
	s.addEnvironment(3, "PROD")
	return s
}

func newTestResolver(s *stubStore, env EnvLookup, ttl time.Duration) (*Resolver, *captureEmitter) {
	emitter := &captureEmitter{}
	r := New(s, Options{
		TTL:     ttl,
		Emitter: emitter,
		Env:     env,
	})
	return r, emitter
}

func TestGetString_FallbackOrdering(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.dev.local", int64p(1))
	s.addEntry("email.smtp.host", "smtp.example.com", nil)

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)

	// Environment-specific beats global beats caller default.
	assert.Equal(t, "smtp.dev.local", r.GetString(context.Background(), "email.smtp.host", "fallback"))
}

func TestGetString_GlobalFallback(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.example.com", nil)

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)

	assert.Equal(t, "smtp.example.com", r.GetString(context.Background(), "email.smtp.host", "fallback"))
}

func TestGetString_CallerDefault(t *testing.T) {
	s := newDevStore()
	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)

	assert.Equal(t, "fallback", r.GetString(context.Background(), "missing.key", "fallback"))
}

func TestGetString_CacheTransparency(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.dev.local", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := context.Background()

	first := r.GetString(ctx, "email.smtp.host", "")
	callsAfterFirst := s.configCallCount()
	second := r.GetString(ctx, "email.smtp.host", "")

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, s.configCallCount(), "cache hit must not query the store")
}

func TestGetString_CacheExpiry(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.dev.local", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 50*time.Millisecond)
	ctx := context.Background()

	r.GetString(ctx, "email.smtp.host", "")
	callsAfterFirst := s.configCallCount()

	time.Sleep(80 * time.Millisecond)

	r.GetString(ctx, "email.smtp.host", "")
	assert.Equal(t, callsAfterFirst+1, s.configCallCount(), "expired entry must trigger exactly one fresh query")
}

func TestGetString_EnvVarTierOnlyInDev(t *testing.T) {
	t.Run("dev context reads process environment", func(t *testing.T) {
		s := newDevStore()
		env := mapEnv{
			EnvironmentVariable: "DEV",
			"FEATURE_X_LIMIT":   "25",
		}
		r, _ := newTestResolver(s, env, 0)

		assert.Equal(t, "25", r.GetString(context.Background(), "feature.x.limit", "5"))
	})

	t.Run("production never reads process environment", func(t *testing.T) {
		s := newDevStore()
		env := mapEnv{
			EnvironmentVariable: "PROD",
			"FEATURE_X_LIMIT":   "25",
		}
		r, _ := newTestResolver(s, env, 0)

		assert.Equal(t, "5", r.GetString(context.Background(), "feature.x.limit", "5"))
	})
}

func TestGetString_GracefulDegradation(t *testing.T) {
	s := &stubStore{failAll: true}
	r, emitter := newTestResolver(s, mapEnv{EnvironmentVariable: "UAT"}, 0)

	assert.NotPanics(t, func() {
		assert.Equal(t, "fallback", r.GetString(context.Background(), "any.key", "fallback"))
	})

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, audit.SourceError, events[0].Source)
	assert.False(t, events[0].Success)
}

func TestGetInteger(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.port", "2525", int64p(1))
	s.addEntry("email.retry.max", "not-a-number", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := context.Background()

	t.Run("parses stored value", func(t *testing.T) {
		assert.Equal(t, 2525, r.GetInteger(ctx, "email.smtp.port", 25))
	})

	t.Run("parse failure returns default without raising", func(t *testing.T) {
		assert.Equal(t, 3, r.GetInteger(ctx, "email.retry.max", 3))
	})

	t.Run("missing key returns default", func(t *testing.T) {
		assert.Equal(t, 7, r.GetInteger(ctx, "absent.number", 7))
	})
}

func TestGetBoolean(t *testing.T) {
	s := newDevStore()
	truthy := []string{"true", "YES", "1", "on", "Enabled"}
	falsy := []string{"false", "No", "0", "OFF", "disabled"}
	for i, v := range truthy {
		s.addEntry("truthy."+string(rune('a'+i)), v, int64p(1))
	}
	for i, v := range falsy {
		s.addEntry("falsy."+string(rune('a'+i)), v, int64p(1))
	}
	s.addEntry("vague.flag", "maybe", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := context.Background()

	for i := range truthy {
		assert.True(t, r.GetBoolean(ctx, "truthy."+string(rune('a'+i)), false), truthy[i])
	}
	for i := range falsy {
		assert.False(t, r.GetBoolean(ctx, "falsy."+string(rune('a'+i)), true), falsy[i])
	}

	t.Run("unrecognized token returns default", func(t *testing.T) {
		assert.True(t, r.GetBoolean(ctx, "vague.flag", true))
		assert.False(t, r.GetBoolean(ctx, "vague.flag", false))
	})
}

func TestGetBoolean_EnvironmentSpecificWinsOverGlobal(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.auth.enabled", "false", int64p(1))
	s.addEntry("email.smtp.auth.enabled", "true", nil)

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)

	assert.False(t, r.GetBoolean(context.Background(), "email.smtp.auth.enabled", true))
}

func TestGetBoolean_AbsentEverywhere(t *testing.T) {
	s := newDevStore()
	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "PROD"}, 0)

	assert.NotPanics(t, func() {
		assert.False(t, r.GetBoolean(context.Background(), "feature.x.enabled", false))
	})
}

func TestGetSection(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "localhost", int64p(1))
	s.addEntry("email.smtp.port", "1025", int64p(1))
	s.addEntry("billing.plan", "free", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)

	section := r.GetSection(context.Background(), "email.smtp.")
	assert.Equal(t, map[string]string{
		"host": "localhost",
		"port": "1025",
	}, section)
}

func TestGetSection_EmptyOnFailure(t *testing.T) {
	t.Run("store failure", func(t *testing.T) {
		r, _ := newTestResolver(&stubStore{failAll: true}, mapEnv{EnvironmentVariable: "DEV"}, 0)
		assert.Empty(t, r.GetSection(context.Background(), "email."))
	})

	t.Run("unresolvable environment", func(t *testing.T) {
		r, _ := newTestResolver(&stubStore{}, mapEnv{EnvironmentVariable: "GHOST"}, 0)
		assert.Empty(t, r.GetSection(context.Background(), "email."))
	})
}

func TestClearCache(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.dev.local", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := context.Background()

	r.GetString(ctx, "email.smtp.host", "")
	configCalls := s.configCallCount()
	envCalls := s.envCallCount()

	r.ClearCache()

	r.GetString(ctx, "email.smtp.host", "")
	assert.Equal(t, configCalls+1, s.configCallCount(), "value cache cleared")
	assert.Equal(t, envCalls+1, s.envCallCount(), "environment-id cache cleared")
}

func TestResolve_AuditEmission(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.password", "hunter2", int64p(1))

	r, emitter := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := observability.WithActor(context.Background(), "mailer")

	r.GetString(ctx, "email.smtp.password", "")

	events := emitter.all()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "mailer", event.Actor)
	assert.Equal(t, "email.smtp.password", event.Key)
	assert.Equal(t, classify.TierConfidential, event.Tier)
	assert.Equal(t, classify.RedactionMarker, event.SanitizedValue)
	assert.Equal(t, audit.SourceEnvironment, event.Source)
	assert.True(t, event.Success)
	assert.Equal(t, "DEV", event.Environment)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	// A cache hit must not produce a second event.
	r.GetString(ctx, "email.smtp.password", "")
	assert.Len(t, emitter.all(), 1)
}

func TestResolve_AuditActorFallsBackToSystem(t *testing.T) {
	s := newDevStore()
	s.addEntry("app.name", "strata", nil)

	r, emitter := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	r.GetString(context.Background(), "app.name", "")

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, audit.SystemActor, events[0].Actor)
	assert.Equal(t, audit.SourceGlobal, events[0].Source)
}

func TestResolve_DefaultTierAudited(t *testing.T) {
	s := newDevStore()
	r, emitter := newTestResolver(s, mapEnv{EnvironmentVariable: "PROD"}, 0)

	r.GetString(context.Background(), "missing.key", "fallback")

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, audit.SourceDefault, events[0].Source)
	assert.False(t, events[0].Success)
}

func TestResolve_ConcurrentAccess(t *testing.T) {
	s := newDevStore()
	s.addEntry("email.smtp.host", "smtp.dev.local", int64p(1))

	r, _ := newTestResolver(s, mapEnv{EnvironmentVariable: "DEV"}, 0)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				r.GetString(ctx, "email.smtp.host", "")
				if j%10 == 0 {
					r.ClearCache()
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, "smtp.dev.local", r.GetString(ctx, "email.smtp.host", ""))
}
