package api

import "github.com/codeinthehole/sitefeeds/pkg/types"

// TweetsResponse is the payload for GET /api/v1/tweets[/{user}].
type TweetsResponse struct {
	Username string        `json:"username"`
	Tweets   []types.Tweet `json:"tweets"`
}

// ActivityResponse is the payload for GET /api/v1/github[/{user}].
type ActivityResponse struct {
	Username string           `json:"username"`
	Activity []types.Activity `json:"activity"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string         `json:"status"`
	CachedEntries int            `json:"cached_entries"`
	Sources       []SourceStatus `json:"sources"`
	GeneratedAt   string         `json:"generated_at"` // RFC3339
}

// SourceStatus describes one configured upstream in the health payload.
type SourceStatus struct {
	Name        string `json:"name"`
	DefaultUser string `json:"default_user"`
	TTLSeconds  int    `json:"ttl_seconds"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
