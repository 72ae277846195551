package resolver

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is how long a resolved value stays fresh in the value cache.
const DefaultTTL = 5 * time.Minute

// valueCacheKey is the composite key for the value cache. Entries are
// per-requesting-environment even when the value was sourced from a global
// row.
type valueCacheKey struct {
	Key         string
	Environment string
}

// ValueCache is a concurrency-safe TTL cache of resolved string values.
// Expiry is lazy: an expired entry is dropped on the next read. Touch-on-hit
// is disabled so an entry's lifetime is measured from when it was cached,
// not from its last read.
type ValueCache struct {
	cache *ttlcache.Cache[valueCacheKey, string]
}

// NewValueCache creates a value cache with the given TTL. A non-positive
// ttl falls back to DefaultTTL.
func NewValueCache(ttl time.Duration) *ValueCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ValueCache{
		cache: ttlcache.New(
			ttlcache.WithTTL[valueCacheKey, string](ttl),
			ttlcache.WithDisableTouchOnHit[valueCacheKey, string](),
		),
	}
}

// Get returns the live cached value for (key, environment), if any.
func (c *ValueCache) Get(key, environment string) (string, bool) {
	item := c.cache.Get(valueCacheKey{Key: key, Environment: environment})
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

// Set caches a value under (key, environment).
func (c *ValueCache) Set(key, environment, value string) {
	c.cache.Set(valueCacheKey{Key: key, Environment: environment}, value, ttlcache.DefaultTTL)
}

// Delete drops the entry for (key, environment), if present.
func (c *ValueCache) Delete(key, environment string) {
	c.cache.Delete(valueCacheKey{Key: key, Environment: environment})
}

// Purge drops every entry.
func (c *ValueCache) Purge() {
	c.cache.DeleteAll()
}

// Len returns the number of entries, including not-yet-collected expired ones.
func (c *ValueCache) Len() int {
	return c.cache.Len()
}

// EnvironmentIDCache maps environment codes to their numeric ids. Entries
// never expire (environment topology is static at runtime); the cache is
// only emptied by an explicit flush.
type EnvironmentIDCache struct {
	cache *ttlcache.Cache[string, int64]
}

// NewEnvironmentIDCache creates an empty code-to-id cache.
func NewEnvironmentIDCache() *EnvironmentIDCache {
	return &EnvironmentIDCache{
		cache: ttlcache.New[string, int64](),
	}
}

// Get returns the cached id for a normalized code.
func (c *EnvironmentIDCache) Get(code string) (int64, bool) {
	item := c.cache.Get(code)
	if item == nil {
		return 0, false
	}
	return item.Value(), true
}

// Set caches code -> id.
func (c *EnvironmentIDCache) Set(code string, id int64) {
	c.cache.Set(code, id, ttlcache.NoTTL)
}

// Purge drops every entry.
func (c *EnvironmentIDCache) Purge() {
	c.cache.DeleteAll()
}
