package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"textinput-service/internal/domain"
)

// visibilityCache memoises ShowViewer per question. A local re-parse
// invalidates entries at once; with a ttl, entries also expire so a re-parse
// served by another instance is picked up. A zero ttl never expires.
type visibilityCache struct {
	stats StatsRepository
	ttl   time.Duration
	now   func() time.Time
	sf    singleflight.Group

	mu         sync.RWMutex
	known      map[string]visibilityEntry
	generation map[string]uint64
}

type visibilityEntry struct {
	value     domain.ShowViewer
	expiresAt time.Time
}

func newVisibilityCache(stats StatsRepository, ttl time.Duration, now func() time.Time) *visibilityCache {
	return &visibilityCache{
		stats:      stats,
		ttl:        ttl,
		now:        now,
		known:      make(map[string]visibilityEntry),
		generation: make(map[string]uint64),
	}
}

func (c *visibilityCache) fresh(e visibilityEntry) bool {
	return c.ttl <= 0 || c.now().Before(e.expiresAt)
}

func (c *visibilityCache) get(ctx context.Context, questionUID string) (domain.ShowViewer, error) {
	c.mu.RLock()
	e, ok := c.known[questionUID]
	gen := c.generation[questionUID]
	c.mu.RUnlock()
	if ok && c.fresh(e) {
		return e.value, nil
	}

	result, err, _ := c.sf.Do(questionUID, func() (interface{}, error) {
		v, err := c.stats.ViewerVisibility(ctx, questionUID)
		if err != nil {
			return domain.ShowViewer(""), err
		}
		c.mu.Lock()
		// skip the store if a parse invalidated the entry meanwhile
		if c.generation[questionUID] == gen {
			e := visibilityEntry{value: v}
			if c.ttl > 0 {
				e.expiresAt = c.now().Add(c.ttl)
			}
			c.known[questionUID] = e
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return "", err
	}
	return result.(domain.ShowViewer), nil
}

func (c *visibilityCache) invalidate(questionUIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, uid := range questionUIDs {
		delete(c.known, uid)
		c.generation[uid]++
	}
}
