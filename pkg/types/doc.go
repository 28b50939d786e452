// Package types defines the feed item types shared by the fetchers, the
// cache and the HTTP API. Text fields hold already-annotated HTML.
package types
