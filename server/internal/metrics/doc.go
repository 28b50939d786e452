// Package metrics records cache and upstream outcomes in a private Prometheus
// registry and serves them in the text exposition format.
//
// Metrics implements cache.Observer. Handler gathers the registry into
// client_model families and writes them with expfmt, negotiating the format
// from the request's Accept header.
package metrics
