// Package cache provides the time-boxed cache in front of the upstream feed
// fetchers.
//
// Store is a thread-safe keyed TTL cache backed by patrickmn/go-cache. Expired
// entries are never returned; Run purges them on a ticker until its context
// is cancelled.
//
// Cached[T] binds a key prefix, a TTL, a Fetcher and an error Policy. Get
// looks up "{prefix}_{username}", and on a miss fetches, stores and returns
// the fresh result. Concurrent misses for one key share a single upstream
// call. Failed fetches are never cached.
package cache
