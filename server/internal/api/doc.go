// Package api implements the HTTP JSON API.
//
// New(deps) returns an http.Handler that serves:
//
//	GET /api/v1/tweets            : cached tweets for the default Twitter user
//	GET /api/v1/tweets/{user}     : cached tweets for user
//	GET /api/v1/github            : cached activity for the default GitHub user
//	GET /api/v1/github/{user}     : cached activity for user
//	GET /api/v1/health            : status, cached entry count, default users
//
// All endpoints respond with Content-Type: application/json and return 405
// for non-GET methods. Usernames must match [A-Za-z0-9_.-]{1,64}; anything
// else is a 400. A fetch error surfaced by the cache becomes a 502.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
