// Package cache holds rendered GET responses in memory for a tier-specific
// TTL and drops them when the underlying entities change.
//
// Entries are keyed by request URI. Mutations invalidate every key under an
// entity prefix such as "/api/v1/products". A cron janitor purges expired
// entries so memory does not wait for the next lookup.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/catalog/internal/metrics"
)

// DefaultMaxEntries bounds the cache when the caller passes zero.
const DefaultMaxEntries = 1000

// Tier is a named TTL class.
type Tier struct {
	Name string
	TTL  time.Duration
}

// Entry is one stored response.
type Entry struct {
	Status    int
	Header    http.Header
	Body      []byte
	expiresAt time.Time
}

// Cache is a size-bounded TTL map. Insertion order doubles as eviction
// order, so the oldest entry goes first when the cache is full.
type Cache struct {
	mu         sync.Mutex
	entries    *orderedmap.OrderedMap[string, *Entry]
	maxEntries int
	now        func() time.Time
	metrics    *metrics.Collector
	logger     *slog.Logger

	cron    *cron.Cron
	running bool
}

// New returns an empty cache. m may be nil.
func New(maxEntries int, m *metrics.Collector) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    orderedmap.NewOrderedMap[string, *Entry](),
		maxEntries: maxEntries,
		now:        time.Now,
		metrics:    m,
		logger:     slog.Default().With("component", "cache"),
	}
}

// Get returns the live entry for key.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Delete(key)
		c.metrics.SetCacheEntries(c.entries.Len())
		return nil, false
	}
	return e, true
}

// Set stores e under key for ttl, evicting the oldest entries when full.
func (c *Cache) Set(key string, e *Entry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.expiresAt = c.now().Add(ttl)
	c.entries.Delete(key)
	for c.entries.Len() >= c.maxEntries {
		oldest := c.entries.Front()
		if oldest == nil {
			break
		}
		c.entries.Delete(oldest.Key)
	}
	c.entries.Set(key, e)
	c.metrics.SetCacheEntries(c.entries.Len())
}

// InvalidatePrefix removes every key starting with one of prefixes and
// returns how many were removed.
func (c *Cache) InvalidatePrefix(prefixes ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var doomed []string
	for key := range c.entries.AllFromFront() {
		for _, p := range prefixes {
			if strings.HasPrefix(key, p) {
				doomed = append(doomed, key)
				break
			}
		}
	}
	for _, key := range doomed {
		c.entries.Delete(key)
	}
	c.metrics.SetCacheEntries(c.entries.Len())
	return len(doomed)
}

// Purge removes expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var doomed []string
	for key, e := range c.entries.AllFromFront() {
		if !now.Before(e.expiresAt) {
			doomed = append(doomed, key)
		}
	}
	for _, key := range doomed {
		c.entries.Delete(key)
	}
	c.metrics.SetCacheEntries(c.entries.Len())
	return len(doomed)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// StartJanitor runs Purge on schedule (standard cron syntax or a descriptor
// such as "@every 1m") until ctx ends or Stop is called.
func (c *Cache) StartJanitor(ctx context.Context, schedule string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(schedule, c.runPurge); err != nil {
		return fmt.Errorf("schedule cache purge: %w", err)
	}
	c.cron.Start()
	c.running = true
	c.logger.Info("cache janitor started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

func (c *Cache) runPurge() {
	if n := c.Purge(); n > 0 {
		c.logger.Debug("purged expired cache entries", "count", n)
	}
}

// Stop halts the janitor and waits for a running purge to finish.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cr := c.cron
	c.mu.Unlock()

	<-cr.Stop().Done()
	c.logger.Info("cache janitor stopped")
}
