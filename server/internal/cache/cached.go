package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Policy decides what Get does when the upstream fetch fails.
type Policy int

const (
	// PolicyEmpty logs the failure and serves an empty list.
	PolicyEmpty Policy = iota
	// PolicyFail returns the failure to the caller.
	PolicyFail
)

// ParsePolicy maps a config value ("empty" or "error") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "empty", "":
		return PolicyEmpty, nil
	case "error":
		return PolicyFail, nil
	default:
		return 0, fmt.Errorf("cache: unknown error policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyFail {
		return "error"
	}
	return "empty"
}

// Fetcher loads a user's items from an upstream source.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, username string) ([]T, error)
}

// Observer receives cache outcomes, keyed by the Cached prefix.
type Observer interface {
	Hit(source string)
	Miss(source string)
	FetchError(source string)
}

type nopObserver struct{}

func (nopObserver) Hit(string)        {}
func (nopObserver) Miss(string)       {}
func (nopObserver) FetchError(string) {}

// Cached fronts a Fetcher with a Store.
type Cached[T any] struct {
	prefix  string
	ttl     time.Duration
	policy  Policy
	fetcher Fetcher[T]
	store   *Store
	obs     Observer
	group   singleflight.Group
}

// NewCached returns a Cached that stores results under "{prefix}_{username}"
// for ttl. obs may be nil.
func NewCached[T any](prefix string, ttl time.Duration, policy Policy, f Fetcher[T], st *Store, obs Observer) *Cached[T] {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Cached[T]{
		prefix:  prefix,
		ttl:     ttl,
		policy:  policy,
		fetcher: f,
		store:   st,
		obs:     obs,
	}
}

// Key returns the cache key for username.
func (c *Cached[T]) Key(username string) string {
	return c.prefix + "_" + username
}

// TTL returns how long fetched results are kept.
func (c *Cached[T]) TTL() time.Duration { return c.ttl }

// Get returns the cached items for username, fetching and caching them on a
// miss. The returned slice is shared with the cache and must not be modified.
func (c *Cached[T]) Get(ctx context.Context, username string) ([]T, error) {
	key := c.Key(username)
	if v, ok := c.store.Get(key); ok {
		if items, ok := v.([]T); ok {
			c.obs.Hit(c.prefix)
			return items, nil
		}
	}
	c.obs.Miss(c.prefix)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// One caller giving up must not fail the others waiting on this call.
		items, err := c.fetcher.Fetch(context.WithoutCancel(ctx), username)
		if err != nil {
			c.obs.FetchError(c.prefix)
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		c.store.Set(key, items, c.ttl)
		return items, nil
	})
	if err != nil {
		if c.policy == PolicyEmpty {
			slog.Warn("cache: fetch failed, serving empty list",
				"source", c.prefix, "user", username, "err", err)
			return []T{}, nil
		}
		return nil, fmt.Errorf("%s: fetch %q: %w", c.prefix, username, err)
	}
	return v.([]T), nil
}

// Invalidate drops the cached entry for username.
func (c *Cached[T]) Invalidate(username string) {
	c.store.Delete(c.Key(username))
}
