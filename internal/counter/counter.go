// Package counter serves the public submission counter: a short-TTL cached
// total with a layered fallback chain and its own per-session rate limiting.
//
// The read path is cache → database → stale cache → file, in that order. The
// counter is displayed on every page load, so it must keep answering (even
// with a slightly stale number) while the database is down; only a cold cache
// combined with an unreadable fallback file produces an error.
package counter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Storage labels for degraded reads. The healthy labels come from the store
// adapters; these two mark which fallback layer produced the value.
const (
	StorageCacheFallback = "cache-fallback"
	StorageJSONFallback  = "json-fallback"
)

const (
	cacheTTL       = 5 * time.Second
	refreshTimeout = 5 * time.Second

	counterWindow  = time.Minute
	counterLimit   = 10 // counter reads per session per window
	analyticsLimit = 5  // analytics reads per session per window
)

// Source supplies submission totals. Implemented by the survey store adapter.
type Source interface {
	Count(ctx context.Context) (n int, storage string, err error)
	FileCount(ctx context.Context) (int, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
}

// RateLimitError reports that a session exhausted its fixed window. It
// carries the whole-second wait the client should honor before retrying.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("counter: rate limited, retry after %ds", e.RetryAfter)
}

// Result is one counter read.
type Result struct {
	Count    int
	Storage  string
	Cached   bool
	CacheAge time.Duration // age of the served value when Cached
	Updating bool          // a refresh was in flight; value may lag
	Warning  string        // set on degraded (fallback) reads
}

// Analytics is the growth snapshot behind the counter. The cache fields
// describe the counter cache as it stood when the snapshot was taken.
type Analytics struct {
	Total       int
	Last24h     int
	GrowthRate  float64 // last 24h as a percentage of the total
	Storage     string
	LastUpdated time.Time
	CacheAge    time.Duration
	CacheValid  bool
}

// window is one session's fixed rate-limit window.
type window struct {
	count int
	start time.Time
}

// Cache is the counter service. All methods are safe for concurrent use.
type Cache struct {
	src Source
	now func() time.Time

	mu          sync.Mutex
	value       int
	lastUpdated time.Time
	updating    bool
	sessions    map[string]*window
	analytics   map[string]*window
}

// New builds a cold counter cache over src.
func New(src Source) *Cache {
	return &Cache{
		src:       src,
		now:       time.Now,
		sessions:  map[string]*window{},
		analytics: map[string]*window{},
	}
}

// allow consumes one slot from the session's fixed window, returning the
// retry delay in whole seconds when the window is exhausted.
func allow(wins map[string]*window, session string, limit int, now time.Time) (ok bool, retryAfter int) {
	w := wins[session]
	if w == nil || now.Sub(w.start) >= counterWindow {
		wins[session] = &window{count: 1, start: now}
		return true, 0
	}
	if w.count >= limit {
		remaining := w.start.Add(counterWindow).Sub(now)
		secs := int((remaining + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return false, secs
	}
	w.count++
	return true, 0
}

// Get returns the current submission total for the given session, applying
// the per-session rate limit and the cache/fallback chain.
func (c *Cache) Get(ctx context.Context, session string) (Result, error) {
	now := c.now()

	c.mu.Lock()
	if ok, retry := allow(c.sessions, session, counterLimit, now); !ok {
		c.mu.Unlock()
		return Result{}, &RateLimitError{RetryAfter: retry}
	}

	// Fresh cache serves directly; a zero value is never trusted from cache
	// because it is indistinguishable from the cold state.
	if age := now.Sub(c.lastUpdated); c.value > 0 && age < cacheTTL {
		res := Result{Count: c.value, Storage: "cache", Cached: true, CacheAge: age}
		c.mu.Unlock()
		return res, nil
	}

	// Another request is already refreshing; serve the stale value (zero on
	// a cold cache) rather than piling a second query onto a possibly
	// struggling database.
	if c.updating {
		res := Result{Count: c.value, Storage: "cache", Cached: true, CacheAge: now.Sub(c.lastUpdated), Updating: true}
		c.mu.Unlock()
		return res, nil
	}
	c.updating = true
	stale := c.value
	c.mu.Unlock()

	res, err := c.refresh(ctx, stale)

	c.mu.Lock()
	c.updating = false
	if err == nil && res.Storage != StorageCacheFallback {
		c.value = res.Count
		c.lastUpdated = c.now()
	}
	c.mu.Unlock()
	return res, err
}

// refresh fetches a fresh total, walking the fallback chain on failure.
func (c *Cache) refresh(ctx context.Context, stale int) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	n, storage, err := c.src.Count(ctx)
	if err == nil {
		return Result{Count: n, Storage: storage}, nil
	}
	log.Warn().Err(err).Msg("counter refresh failed, walking fallback chain")

	if stale > 0 {
		return Result{
			Count:   stale,
			Storage: StorageCacheFallback,
			Warning: "serving cached value, storage temporarily unavailable",
		}, nil
	}
	if n, ferr := c.src.FileCount(ctx); ferr == nil {
		return Result{
			Count:   n,
			Storage: StorageJSONFallback,
			Warning: "serving file-backed value, database unavailable",
		}, nil
	}
	return Result{}, err
}

// GetAnalytics returns the growth snapshot, under its own tighter limit.
func (c *Cache) GetAnalytics(ctx context.Context, session string) (Analytics, error) {
	now := c.now()

	c.mu.Lock()
	ok, retry := allow(c.analytics, session, analyticsLimit, now)
	lastUpdated := c.lastUpdated
	c.mu.Unlock()
	if !ok {
		return Analytics{}, &RateLimitError{RetryAfter: retry}
	}

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	total, storage, err := c.src.Count(ctx)
	if err != nil {
		if total, err = c.src.FileCount(ctx); err != nil {
			return Analytics{}, err
		}
		storage = StorageJSONFallback
	}
	last24h, err := c.src.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return Analytics{}, err
	}

	a := Analytics{
		Total:       total,
		Last24h:     last24h,
		Storage:     storage,
		LastUpdated: lastUpdated,
		CacheAge:    now.Sub(lastUpdated),
		CacheValid:  now.Sub(lastUpdated) < cacheTTL,
	}
	if total > 0 {
		a.GrowthRate = float64(last24h) / float64(total) * 100
	}

	c.mu.Lock()
	c.value = total
	c.lastUpdated = c.now()
	c.mu.Unlock()
	return a, nil
}

// Value returns the last cached total without consuming a rate-limit slot.
// Served alongside throttle responses so clients keep a number to display.
func (c *Cache) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// SetKnown seeds the cache with an authoritative total, typically the count
// returned alongside a successful submission write.
func (c *Cache) SetKnown(n int) {
	c.mu.Lock()
	c.value = n
	c.lastUpdated = c.now()
	c.mu.Unlock()
}

// Reset drops the cached value, forcing the next read to hit storage. Called
// after destructive admin operations.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.value = 0
	c.lastUpdated = time.Time{}
	c.mu.Unlock()
}
