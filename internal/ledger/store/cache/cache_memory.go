package cache

import (
	"context"
	"sync"
	"time"

	"nameledger/internal/ledger/models"
	"nameledger/pkg/platform/sentinel"
)

type memoryEntry struct {
	record    *models.Record
	expiresAt time.Time
}

// InMemoryCache is a process-local InfoCache for single-instance deployments
// and tests.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[models.NameHash]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &InMemoryCache{
		entries: make(map[models.NameHash]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemoryCache) Find(_ context.Context, hash models.NameHash) (*models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[hash]
	if !ok || !c.now().Before(e.expiresAt) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, sentinel.ErrCacheMiss
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return e.record.Clone(), nil
}

func (c *InMemoryCache) Save(_ context.Context, record *models.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[record.Hash] = memoryEntry{record: record.Clone(), expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *InMemoryCache) Invalidate(_ context.Context, hash models.NameHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hash)
	return nil
}
