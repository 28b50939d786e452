// Package config loads and watches the service configuration file (config.yaml).
//
// Top-level sections:
//   - server: http_port (default 8080), log_level, cleanup_interval
//   - twitter: username, endpoint, ttl (default 5m), on_error (default empty), auth, tls
//   - github: username, endpoint, ttl (default 1h), on_error (default empty), auth, tls
//   - annotate: profile_base and github_base link targets
//
// Load(path) applies defaults before unmarshalling, then validates enums and
// required fields. Secrets are never stored in the file: AuthConfig names the
// environment variables that hold them and Key/Token/Password resolve them.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after every
// event so atomic-save editors (rename then create) keep being tracked.
package config
