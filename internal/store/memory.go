package store

import (
	"context"
	"sync"
	"time"

	"hfl-auth/internal/model"
)

const defaultMaxEntries = 10000

// MemoryCache is the fast, process-local side of the record store. Entries
// carry the record's own TTL; a re-put resets the countdown. It is purely an
// optimization: multi-instance deployments must treat the durable store as
// authoritative.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	maxEntries int
}

type cacheEntry struct {
	record    model.OTPRecord
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]cacheEntry),
		maxEntries: defaultMaxEntries,
	}
}

func (c *MemoryCache) Put(_ context.Context, record *model.OTPRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	c.entries[record.Phone] = cacheEntry{
		record:    *record,
		expiresAt: record.ExpiresAt,
	}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, phone string) (*model.OTPRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[phone]
	if !ok {
		return nil, nil
	}
	if !time.Now().Before(e.expiresAt) {
		delete(c.entries, phone)
		return nil, nil
	}

	rec := e.record
	return &rec, nil
}

func (c *MemoryCache) Delete(_ context.Context, phone string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, phone)
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries; if the cache is still full it clears
// everything, the durable store remains authoritative either way.
func (c *MemoryCache) evictLocked() {
	now := time.Now()
	for phone, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, phone)
		}
	}
	if len(c.entries) >= c.maxEntries {
		c.entries = make(map[string]cacheEntry)
	}
}
