package streak

import (
	"context"
	"sync"
	"time"

	"streakwatch/pkg/logx"
)

// Provider supplies contribution counts for an inclusive [from, to] range.
type Provider interface {
	ContributionCount(ctx context.Context, login string, from, to time.Time) (int, error)
}

// Checker computes today's window and asks the provider for the count.
//
// Results may be cached per (login, zone, local date) for CacheTTL to keep
// provider load down when several schedules fire close together. The cache is
// purely an optimization: with TTL 0 every call reaches the provider and all
// observable behavior is identical.
type Checker struct {
	provider Provider
	log      logx.Logger

	// now is swapped in tests.
	now func() time.Time

	cacheTTL time.Duration
	cmu      sync.Mutex
	cache    map[string]cacheEntry
}

type cacheEntry struct {
	count   int
	expires time.Time
}

func NewChecker(provider Provider, cacheTTL time.Duration, log logx.Logger) *Checker {
	return &Checker{
		provider: provider,
		log:      log,
		now:      time.Now,
		cacheTTL: cacheTTL,
		cache:    map[string]cacheEntry{},
	}
}

// HasContributionToday reports whether login has at least one contribution
// in the current calendar day of loc. Provider failures propagate.
func (c *Checker) HasContributionToday(ctx context.Context, login string, loc *time.Location) (bool, error) {
	n, err := c.ContributionCount(ctx, login, loc)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ContributionCount is the raw count behind HasContributionToday.
func (c *Checker) ContributionCount(ctx context.Context, login string, loc *time.Location) (int, error) {
	now := c.now()
	w := DayWindow(now, loc)
	key := login + "|" + loc.String() + "|" + w.Date()

	if n, ok := c.cached(key, now); ok {
		c.log.Debug("contribution count from cache", logx.String("login", login), logx.Int("count", n))
		return n, nil
	}

	// The provider treats both bounds as inclusive; back off the half-open
	// end by one second.
	n, err := c.provider.ContributionCount(ctx, login, w.Start, w.End.Add(-time.Second))
	if err != nil {
		return 0, err
	}

	c.store(key, n, now)
	return n, nil
}

func (c *Checker) cached(key string, now time.Time) (int, bool) {
	if c.cacheTTL <= 0 {
		return 0, false
	}
	c.cmu.Lock()
	defer c.cmu.Unlock()
	e, ok := c.cache[key]
	if !ok || now.After(e.expires) {
		delete(c.cache, key)
		return 0, false
	}
	return e.count, true
}

func (c *Checker) store(key string, count int, now time.Time) {
	if c.cacheTTL <= 0 {
		return
	}
	c.cmu.Lock()
	defer c.cmu.Unlock()
	// Lazy sweep; the map only ever holds a handful of (login, zone, date)
	// keys, so a full pass is cheap.
	for k, e := range c.cache {
		if now.After(e.expires) {
			delete(c.cache, k)
		}
	}
	c.cache[key] = cacheEntry{count: count, expires: now.Add(c.cacheTTL)}
}
