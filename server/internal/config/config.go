package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort        = 8080
	DefaultLogLevel        = "info"
	DefaultCleanupInterval = 10 * time.Minute

	DefaultUsername       = "codeinthehole"
	DefaultTwitterURL     = "https://twitter.com/statuses/user_timeline.json"
	DefaultTwitterTTL     = 300 * time.Second
	DefaultGitHubURL      = "https://github.com"
	DefaultGitHubTTL      = 3600 * time.Second
	DefaultProfileBase    = "http://twitter.com"
	DefaultGitHubLinkBase = "https://github.com"
)

// Error policies for a feed source.
const (
	// OnErrorEmpty serves an empty list when the upstream fetch fails.
	OnErrorEmpty = "empty"
	// OnErrorFail returns the fetch error to the caller.
	OnErrorFail = "error"
)

// Config is the full configuration tree parsed from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Twitter  Source         `yaml:"twitter"`
	GitHub   Source         `yaml:"github"`
	Annotate AnnotateConfig `yaml:"annotate"`
}

// ServerConfig holds the HTTP listener and process-wide settings.
type ServerConfig struct {
	// HTTPPort is the port the JSON API and /metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// CleanupInterval controls how often expired cache entries are purged.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Level converts LogLevel to a slog.Level. Unknown values map to info;
// validate rejects them before this is reached.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Source describes one upstream feed.
type Source struct {
	// Username is the account fetched when the API request names none.
	Username string `yaml:"username"`

	// Endpoint is the upstream base URL. For Twitter it is the timeline URL
	// (screen_name is appended as a query parameter); for GitHub it is the
	// site root ({endpoint}/{user}.atom).
	Endpoint string `yaml:"endpoint"`

	// TTL is how long a fetched result stays cached.
	TTL time.Duration `yaml:"ttl"`

	// OnError is the fetch failure policy: empty | error.
	OnError string `yaml:"on_error"`

	// Auth configures how requests to the upstream authenticate.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for an upstream source.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header name the API key is sent in (apikey mode).
	Header string `yaml:"header"`
	// KeyEnv names the environment variable holding the API key.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv names the environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// CAFile is an optional PEM bundle trusted in place of the system roots.
	CAFile string `yaml:"ca_file"`
}

// AnnotateConfig sets the link targets used when annotating text.
type AnnotateConfig struct {
	// ProfileBase prefixes @mention and #hashtag links.
	ProfileBase string `yaml:"profile_base"`

	// GitHubBase replaces the leading "/" of relative links in GitHub summaries.
	GitHubBase string `yaml:"github_base"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. It is also
// what the service runs with when no config file is given.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			LogLevel:        DefaultLogLevel,
			CleanupInterval: DefaultCleanupInterval,
		},
		Twitter: Source{
			Username: DefaultUsername,
			Endpoint: DefaultTwitterURL,
			TTL:      DefaultTwitterTTL,
			OnError:  OnErrorEmpty,
		},
		GitHub: Source{
			Username: DefaultUsername,
			Endpoint: DefaultGitHubURL,
			TTL:      DefaultGitHubTTL,
			OnError:  OnErrorEmpty,
		},
		Annotate: AnnotateConfig{
			ProfileBase: DefaultProfileBase,
			GitHubBase:  DefaultGitHubLinkBase,
		},
	}
}

// validate checks required fields and enum values.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	if cfg.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval must be positive")
	}
	if err := validateSource("twitter", cfg.Twitter); err != nil {
		return err
	}
	return validateSource("github", cfg.GitHub)
}

func validateSource(name string, src Source) error {
	if src.Endpoint == "" {
		return fmt.Errorf("%s.endpoint is required", name)
	}
	if src.Username == "" {
		return fmt.Errorf("%s.username is required", name)
	}
	if src.TTL <= 0 {
		return fmt.Errorf("%s.ttl must be positive", name)
	}
	switch src.OnError {
	case OnErrorEmpty, OnErrorFail:
	default:
		return fmt.Errorf("%s.on_error %q unknown: want empty|error", name, src.OnError)
	}
	switch src.Auth.Mode {
	case "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("%s.auth.mode %q unknown", name, src.Auth.Mode)
	}
	if src.Auth.Mode == "apikey" && src.Auth.Header == "" {
		return fmt.Errorf("%s.auth.header is required for apikey mode", name)
	}
	return nil
}
