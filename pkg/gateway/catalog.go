package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pilotgw/pilotgw/pkg/upstream"
)

// catalogTTL bounds how long a fetched model list is served from cache.
const catalogTTL = 10 * time.Minute

// staticModels is served when the upstream catalog cannot be fetched, so
// /v1/models keeps working before a credential exists.
var staticModels = []upstream.ModelInfo{
	{ID: "gpt-4o"},
	{ID: "gpt-4o-mini"},
	{ID: "gpt-4.1"},
	{ID: "o3-mini"},
	{ID: "claude-sonnet-4"},
	{ID: "gemini-2.0-flash-001"},
	{ID: "gpt-5-codex"},
}

// modelLister is the slice of the upstream client the catalog needs.
type modelLister interface {
	ListModels(ctx context.Context) ([]upstream.ModelInfo, error)
}

// Catalog caches the upstream model list with a fixed TTL and falls back to
// a static list when the fetch fails. A stale cache triggers at most one
// in-flight fetch; the lock is never held across the network call.
type Catalog struct {
	lister modelLister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    []upstream.ModelInfo
	fetchedAt time.Time
	group     singleflight.Group
}

// NewCatalog creates a catalog over the given lister.
func NewCatalog(lister modelLister) *Catalog {
	return &Catalog{
		lister: lister,
		ttl:    catalogTTL,
		now:    time.Now,
	}
}

// Models returns the cached list when fresh, otherwise refetches. It never
// fails: a fetch error logs and serves the last known list or the static
// fallback.
func (c *Catalog) Models(ctx context.Context) []upstream.ModelInfo {
	if cached, ok := c.fresh(); ok {
		return cached
	}

	v, _, _ := c.group.Do("models", func() (any, error) {
		// Another caller may have refreshed the cache while this one was
		// waiting on the group.
		if cached, ok := c.fresh(); ok {
			return cached, nil
		}

		models, err := c.lister.ListModels(ctx)
		if err != nil {
			slog.Warn("model catalog fetch failed", "error", err.Error())
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.cached != nil {
				return c.cached, nil
			}
			return staticModels, nil
		}

		c.mu.Lock()
		c.cached = models
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return models, nil
	})
	return v.([]upstream.ModelInfo)
}

// fresh returns the cached list when it is still within the TTL.
func (c *Catalog) fresh() ([]upstream.ModelInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached, true
	}
	return nil, false
}
