package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/store"
)

// stubStore is an in-memory store.Store with per-operation call counters.
type stubStore struct {
	mu           sync.Mutex
	environments []store.Environment
	entries      []store.ConfigEntry

	failAll bool

	configCalls  int
	sectionCalls int
	envCalls     int
}

var errStoreDown = errors.New("store unavailable")

func (s *stubStore) addEnvironment(id int64, code string) {
	s.environments = append(s.environments, store.Environment{ID: id, Code: strings.ToUpper(code)})
}

func (s *stubStore) addEntry(key, value string, envID *int64) {
	s.entries = append(s.entries, store.ConfigEntry{
		Key: key, Value: value, EnvironmentID: envID, IsActive: true, DataType: "string",
	})
}

func (s *stubStore) FindConfigByKeyAndEnv(_ context.Context, key string, environmentID *int64) (*store.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configCalls++
	if s.failAll {
		return nil, errStoreDown
	}
	for i := range s.entries {
		e := s.entries[i]
		if e.Key != key || !e.IsActive {
			continue
		}
		if environmentID == nil && e.EnvironmentID == nil {
			return &e, nil
		}
		if environmentID != nil && e.EnvironmentID != nil && *environmentID == *e.EnvironmentID {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *stubStore) FindActiveConfigsByEnv(_ context.Context, environmentID int64) ([]store.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectionCalls++
	if s.failAll {
		return nil, errStoreDown
	}
	out := make([]store.ConfigEntry, 0)
	for _, e := range s.entries {
		if e.IsActive && e.EnvironmentID != nil && *e.EnvironmentID == environmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) FindEnvironmentByCode(_ context.Context, code string) (*store.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envCalls++
	if s.failAll {
		return nil, errStoreDown
	}
	upper := strings.ToUpper(code)
	for i := range s.environments {
		if s.environments[i].Code == upper {
			env := s.environments[i]
			return &env, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListEnvironments(context.Context) ([]store.Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStoreDown
	}
	return append([]store.Environment(nil), s.environments...), nil
}

func (s *stubStore) UpsertEnvironment(_ context.Context, env *store.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.environments = append(s.environments, *env)
	return nil
}

func (s *stubStore) UpsertConfig(_ context.Context, entry *store.ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) configCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configCalls
}

func (s *stubStore) envCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envCalls
}

// mapEnv is a deterministic EnvLookup for tests.
type mapEnv map[string]string

func (m mapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// captureEmitter records audit events emitted during a test.
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
