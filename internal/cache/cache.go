package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is a pending question held for one conversation.
type Entry struct {
	Question   string
	InsertedAt time.Time
}

// MetricsRecorder receives gauge and eviction updates from the cache.
// A nil recorder disables reporting.
type MetricsRecorder interface {
	SetCacheEntries(count int)
	RecordCacheEvictions(count int)
}

// Cache is an in-memory TTL-bound map of conversation ID to pending
// question. At most one entry exists per conversation; Put overwrites.
// Reads never expire entries themselves: an entry older than the TTL
// stays visible until the janitor sweeps it.
type Cache struct {
	entries map[string]Entry
	mu      sync.RWMutex

	ttl           time.Duration
	sweepInterval time.Duration

	logger  *slog.Logger
	metrics MetricsRecorder

	// now is the clock used for stamping and expiry checks
	now func() time.Time

	// Janitor management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// New creates a cache and starts its janitor goroutine. Stop must be
// called to release it.
func New(logger *slog.Logger, ttl, sweepInterval time.Duration, metrics MetricsRecorder) *Cache {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Cache{
		entries:       make(map[string]Entry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		cleanup:       make(chan struct{}),
	}

	go c.runJanitor()

	return c
}

// Put stores question for conversationID, overwriting any previous
// entry and resetting its insertion time.
func (c *Cache) Put(conversationID, question string) {
	c.mu.Lock()
	c.entries[conversationID] = Entry{Question: question, InsertedAt: c.now()}
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetCacheEntries(size)
	}

	c.logger.Debug("Cached pending question",
		slog.String("chatid", conversationID),
		slog.Int("entries", size),
	)
}

// Get returns the entry for conversationID. Expired entries the janitor
// has not swept yet are still returned.
func (c *Cache) Get(conversationID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[conversationID]
	return entry, exists
}

// Remove drops the entry for conversationID. Removing an absent entry
// is a no-op.
func (c *Cache) Remove(conversationID string) {
	c.mu.Lock()
	_, existed := c.entries[conversationID]
	delete(c.entries, conversationID)
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetCacheEntries(size)
	}

	if existed {
		c.logger.Debug("Removed pending question",
			slog.String("chatid", conversationID),
		)
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the janitor and waits for it to exit.
func (c *Cache) Stop() {
	c.cancel()
	<-c.cleanup

	c.logger.Info("Query cache stopped",
		slog.Int("remaining_entries", c.Len()),
	)
}

// runJanitor sweeps expired entries on a fixed interval.
func (c *Cache) runJanitor() {
	defer close(c.cleanup)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	c.logger.Info("Cache janitor started",
		slog.Duration("ttl", c.ttl),
		slog.Duration("sweep_interval", c.sweepInterval),
	)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Cache janitor stopping")
			return

		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

// sweepExpired evicts every entry strictly older than the TTL. Eviction
// is silent toward clients; it only shows up in logs and metrics.
func (c *Cache) sweepExpired() {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	expired := make([]string, 0)
	for conversationID, entry := range c.entries {
		if entry.InsertedAt.Before(cutoff) {
			expired = append(expired, conversationID)
		}
	}
	for _, conversationID := range expired {
		delete(c.entries, conversationID)
	}
	size := len(c.entries)
	c.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	if c.metrics != nil {
		c.metrics.SetCacheEntries(size)
		c.metrics.RecordCacheEvictions(len(expired))
	}

	c.logger.Debug("Evicted expired questions",
		slog.Int("evicted_count", len(expired)),
		slog.Int("remaining_entries", size),
	)
}
