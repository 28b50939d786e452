package cache

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// minPurgeInterval bounds how often Run sweeps expired entries.
const minPurgeInterval = time.Second

// Store is a thread-safe in-memory TTL cache keyed by string.
type Store struct {
	c        *gocache.Cache
	interval time.Duration
}

// NewStore creates an empty Store whose Run loop purges expired entries every
// purgeInterval (minimum 1 second).
func NewStore(purgeInterval time.Duration) *Store {
	if purgeInterval < minPurgeInterval {
		purgeInterval = minPurgeInterval
	}
	// Expiry is always per-entry; the janitor is driven by Run instead of
	// go-cache's own goroutine so shutdown follows the service context.
	return &Store{
		c:        gocache.New(gocache.NoExpiration, 0),
		interval: purgeInterval,
	}
}

// Get returns the value for key if present and not expired.
func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Set stores value under key for ttl, replacing any existing entry.
// A non-positive ttl keeps the entry until it is deleted or flushed.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(key, value, ttl)
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) {
	s.c.Delete(key)
}

// Count returns the number of entries held, including expired entries that
// have not been purged yet.
func (s *Store) Count() int {
	return s.c.ItemCount()
}

// Flush removes every entry.
func (s *Store) Flush() {
	s.c.Flush()
}

// Purge removes expired entries.
func (s *Store) Purge() {
	s.c.DeleteExpired()
}

// Run purges expired entries every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Purge()
			slog.Debug("cache: purged expired entries", "remaining", s.Count())
		}
	}
}
