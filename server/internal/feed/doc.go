// Package feed fetches a user's items from the upstream sources and returns
// them already annotated for display.
//
// Twitter (twitter.go) reads a JSON user timeline, drops replies, parses the
// created_at timestamp and runs each text through annotate.HTMLify. GitHub
// (github.go) parses the public Atom feed at {endpoint}/{user}.atom with
// gofeed and makes relative links in each summary absolute.
//
// Authentication (API key, bearer token, basic) is handled by the shared
// authRoundTripper in client.go; each fetcher is built with its own
// *http.Client from its config.Source.
package feed
