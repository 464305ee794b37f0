package policy

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// cachedPolicyEntry wraps a policy with version metadata for cache invalidation
type cachedPolicyEntry struct {
	Version  string
	Policy   domain.ConflictPolicy
	CachedAt time.Time
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Cache is a read-through, TTL-bounded view of the policy repository.
// A policy may be stale for up to the TTL after an update made elsewhere.
type Cache struct {
	repo   Repository
	lru    *expirable.LRU[string, *cachedPolicyEntry]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a policy cache holding at most size entries for ttl each
func NewCache(repo Repository, size int, ttl time.Duration) *Cache {
	return &Cache{
		repo: repo,
		lru:  expirable.NewLRU[string, *cachedPolicyEntry](size, nil, ttl),
	}
}

func cacheKey(tenantID, domainName string) string {
	return tenantID + ":" + domainName
}

// GetPolicy never fails. Missing rows resolve to the system default, which
// is cached; store errors also resolve to the default but are not cached.
func (c *Cache) GetPolicy(ctx context.Context, tenantID, domainName string) domain.ConflictPolicy {
	key := cacheKey(tenantID, domainName)
	if entry, ok := c.lru.Get(key); ok && entry.Version == CacheSchemaVersion {
		c.hits.Add(1)
		metrics.PolicyCacheLookups.WithLabelValues(metrics.ResultHit).Inc()
		return entry.Policy
	}
	c.misses.Add(1)
	metrics.PolicyCacheLookups.WithLabelValues(metrics.ResultMiss).Inc()

	log := logger.FromContext(ctx)
	p, err := c.repo.GetPolicy(ctx, tenantID, domainName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Debug(LogMsgPolicyDefaulted, "tenant_id", tenantID, "domain", domainName)
		def := domain.DefaultPolicy(tenantID, domainName)
		c.set(key, def)
		return def
	case err != nil:
		log.Warn(LogMsgPolicyLoadFailed, "tenant_id", tenantID, "domain", domainName, "error", err)
		return domain.DefaultPolicy(tenantID, domainName)
	}

	c.set(key, *p)
	return *p
}

func (c *Cache) set(key string, p domain.ConflictPolicy) {
	c.lru.Add(key, &cachedPolicyEntry{
		Version:  CacheSchemaVersion,
		Policy:   p,
		CachedAt: time.Now(),
	})
}

// Invalidate drops one cached policy
func (c *Cache) Invalidate(tenantID, domainName string) {
	c.lru.Remove(cacheKey(tenantID, domainName))
}

// InvalidateTenant drops every cached policy of a tenant
func (c *Cache) InvalidateTenant(tenantID string) int {
	prefix := tenantID + ":"
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Stats returns hit and miss counters
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}
