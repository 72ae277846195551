package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/resolver"
	"github.com/platinummonkey/strata/pkg/store"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu           sync.Mutex
	environments map[string]store.Environment
	entries      []store.ConfigEntry
	failAll      bool
}

func newMemStore() *memStore {
	return &memStore{
		environments: map[string]store.Environment{
			"DEV":  {ID: 1, Code: "DEV"},
			"PROD": {ID: 2, Code: "PROD"},
		},
		entries: []store.ConfigEntry{
			{ID: 1, Key: "service.name", Value: "strata", EnvironmentID: int64Ptr(1), IsActive: true},
			{ID: 2, Key: "service.workers", Value: "8", EnvironmentID: int64Ptr(1), IsActive: true},
			{ID: 3, Key: "database.password", Value: "supersecret", EnvironmentID: int64Ptr(1), IsActive: true},
			{ID: 4, Key: "database.host", Value: "db.internal.example.com", EnvironmentID: int64Ptr(1), IsActive: true},
			{ID: 5, Key: "feature.dark-mode", Value: "enabled", EnvironmentID: nil, IsActive: true},
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func (m *memStore) FindConfigByKeyAndEnv(_ context.Context, key string, environmentID *int64) (*store.ConfigEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("store unavailable")
	}
	for _, e := range m.entries {
		if e.Key != key || !e.IsActive {
			continue
		}
		if environmentID == nil && e.EnvironmentID == nil {
			entry := e
			return &entry, nil
		}
		if environmentID != nil && e.EnvironmentID != nil && *environmentID == *e.EnvironmentID {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindActiveConfigsByEnv(_ context.Context, environmentID int64) ([]store.ConfigEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("store unavailable")
	}
	var out []store.ConfigEntry
	for _, e := range m.entries {
		if e.IsActive && e.EnvironmentID != nil && *e.EnvironmentID == environmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) FindEnvironmentByCode(_ context.Context, code string) (*store.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("store unavailable")
	}
	if env, ok := m.environments[strings.ToUpper(code)]; ok {
		return &env, nil
	}
	return nil, nil
}

func (m *memStore) ListEnvironments(_ context.Context) ([]store.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errors.New("store unavailable")
	}
	out := make([]store.Environment, 0, len(m.environments))
	for _, env := range m.environments {
		out = append(out, env)
	}
	return out, nil
}

func (m *memStore) UpsertEnvironment(context.Context, *store.Environment) error { return nil }
func (m *memStore) UpsertConfig(context.Context, *store.ConfigEntry) error      { return nil }
func (m *memStore) Close() error                                                { return nil }

// mapEnv is an in-memory EnvLookup.
type mapEnv map[string]string

func (m mapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// captureEmitter records emitted audit events.
type captureEmitter struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, event *audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) Close() error { return nil }

func (c *captureEmitter) all() []*audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*audit.Event(nil), c.events...)
}

func newTestServer(t *testing.T) (*Server, *memStore, *captureEmitter) {
	t.Helper()
	ms := newMemStore()
	emitter := &captureEmitter{}
	res := resolver.New(ms, resolver.Options{
		Emitter: emitter,
		Env:     mapEnv{"STRATA_ENVIRONMENT": "DEV"},
	})
	return NewServer(Options{Resolver: res, Store: ms}), ms, emitter
}

func doRequest(s *Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestGetConfig(t *testing.T) {
	t.Run("public key returns raw value", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/service.name", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "service.name", resp.Key)
		assert.Equal(t, "strata", resp.Value)
		assert.Equal(t, "string", resp.Type)
		assert.Equal(t, "PUBLIC", string(resp.Tier))
		assert.Equal(t, "DEV", resp.Environment)
	})

	t.Run("confidential value is redacted for external callers", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/database.password", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "***REDACTED***", resp.Value)
		assert.Equal(t, "CONFIDENTIAL", string(resp.Tier))
	})

	t.Run("internal caller receives raw confidential value", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/database.password", map[string]string{
			InternalCallerHeader: "true",
		})

		require.Equal(t, http.StatusOK, w.Code)
		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "supersecret", resp.Value)
	})

	t.Run("integer type", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/service.workers?type=integer&default=4", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(8), resp.Value)
	})

	t.Run("boolean type falls back to default for missing key", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/feature.missing?type=boolean&default=true", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ConfigResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp.Value)
	})

	t.Run("invalid type is rejected", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/service.name?type=float", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid integer default is rejected", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/service.workers?type=integer&default=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("actor header flows into audit events", func(t *testing.T) {
		s, _, emitter := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config/service.name", map[string]string{
			ActorHeader: "deploy-bot",
		})

		require.Equal(t, http.StatusOK, w.Code)
		events := emitter.all()
		require.Len(t, events, 1)
		assert.Equal(t, "deploy-bot", events[0].Actor)
	})
}

func TestGetSection(t *testing.T) {
	t.Run("missing prefix is rejected", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("section values are sanitized per tier", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config?prefix=database.", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp SectionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "database.", resp.Prefix)
		assert.Equal(t, "***REDACTED***", resp.Values["password"])
		// INTERNAL values are partially masked, never fully revealed
		assert.NotEqual(t, "db.internal.example.com", resp.Values["host"])
		assert.NotEmpty(t, resp.Values["host"])
	})

	t.Run("internal caller receives raw section values", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/config?prefix=database.", map[string]string{
			InternalCallerHeader: "true",
		})

		require.Equal(t, http.StatusOK, w.Code)
		var resp SectionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "supersecret", resp.Values["password"])
		assert.Equal(t, "db.internal.example.com", resp.Values["host"])
	})

	t.Run("store failure yields empty section", func(t *testing.T) {
		s, ms, _ := newTestServer(t)
		ms.failAll = true
		w := doRequest(s, "GET", "/api/v1/config?prefix=database.", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp SectionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Values)
	})
}

func TestGetEnvironment(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := doRequest(s, "GET", "/api/v1/environment", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp EnvironmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DEV", resp.Environment)
	require.NotNil(t, resp.EnvironmentID)
	assert.Equal(t, int64(1), *resp.EnvironmentID)
	assert.True(t, resp.Registered)
}

func TestListEnvironments(t *testing.T) {
	t.Run("returns registered environments", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/environments", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Environments []store.Environment `json:"environments"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Environments, 2)
	})

	t.Run("store failure yields 503", func(t *testing.T) {
		s, ms, _ := newTestServer(t)
		ms.failAll = true
		w := doRequest(s, "GET", "/api/v1/environments", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestFlushCache(t *testing.T) {
	s, _, _ := newTestServer(t)

	// Warm the cache, then flush; the next read must hit the store again.
	require.Equal(t, http.StatusOK, doRequest(s, "GET", "/api/v1/config/service.name", nil).Code)

	w := doRequest(s, "POST", "/api/v1/cache/flush", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caches flushed")
}

func TestRequestIDHeader(t *testing.T) {
	t.Run("generated when absent", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/environment", nil)
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("echoed when present", func(t *testing.T) {
		s, _, _ := newTestServer(t)
		w := doRequest(s, "GET", "/api/v1/environment", map[string]string{
			RequestIDHeader: "req-123",
		})
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})
}
