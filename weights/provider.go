package weights

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dnamatcher/logging"
	"dnamatcher/types"
)

// TableSource supplies the current weight tables, typically backed by
// configuration that can change at runtime.
type TableSource func(category string) types.WeightVector

// cachedTable is a table snapshot with its fetch time; entries never expire
// out of the cache so stale reads keep working during a refresh.
type cachedTable struct {
	vector    types.WeightVector
	fetchedAt time.Time
}

// Provider serves weight tables through a TTL cache. Reads never block on a
// refresh: an expired entry is served stale while one background goroutine
// refreshes it. Invalidate drops everything explicitly.
type Provider struct {
	source TableSource
	ttl    time.Duration
	cache  *gocache.Cache

	mu         sync.Mutex
	refreshing map[string]bool
}

// NewProvider builds a provider around a table source with the given TTL.
// A nil source serves the built-in tables.
func NewProvider(source TableSource, ttl time.Duration) *Provider {
	if source == nil {
		source = BaseTable
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Provider{
		source:     source,
		ttl:        ttl,
		cache:      gocache.New(gocache.NoExpiration, 0),
		refreshing: make(map[string]bool),
	}
}

// Table returns the cached weight table for a category, computing it on
// first use and refreshing asynchronously once the TTL lapses.
func (p *Provider) Table(category string) types.WeightVector {
	if entry, found := p.cache.Get(category); found {
		cached := entry.(cachedTable)
		if time.Since(cached.fetchedAt) > p.ttl {
			p.refreshAsync(category)
		}
		return cached.vector
	}

	vector := p.source(category).Normalized()
	p.cache.Set(category, cachedTable{vector: vector, fetchedAt: time.Now()}, gocache.NoExpiration)
	return vector
}

// Invalidate drops all cached tables; the next read recomputes.
func (p *Provider) Invalidate() {
	p.cache.Flush()
}

// refreshAsync kicks off at most one background refresh per category.
func (p *Provider) refreshAsync(category string) {
	p.mu.Lock()
	if p.refreshing[category] {
		p.mu.Unlock()
		return
	}
	p.refreshing[category] = true
	p.mu.Unlock()

	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.refreshing, category)
			p.mu.Unlock()
		}()

		vector := p.source(category).Normalized()
		p.cache.Set(category, cachedTable{vector: vector, fetchedAt: time.Now()}, gocache.NoExpiration)
		logging.Debug("weight table refreshed", "category", category)
	}()
}
