// Package config provides unified configuration for the gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PILOTGW_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Token         TokenConfig         `yaml:"token"`
	Models        ModelsConfig        `yaml:"models"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streams)
}

// UpstreamConfig holds the upstream endpoint set and retry policy.
type UpstreamConfig struct {
	ChatCompletionsURL string `yaml:"chat_completions_url"`
	ResponsesURL       string `yaml:"responses_url"`
	ModelsURL          string `yaml:"models_url"`
	TokenURL           string `yaml:"token_url"`
	UsageURL           string `yaml:"usage_url"`

	EditorVersion       string `yaml:"editor_version"`
	EditorPluginVersion string `yaml:"editor_plugin_version"`

	Timeout time.Duration `yaml:"timeout"` // default: 120s
	Retry   RetryConfig   `yaml:"retry"`
}

// RetryConfig holds the upstream retry policy.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"` // default: 3
	BaseDelay  time.Duration `yaml:"base_delay"`  // default: 1s
	MaxDelay   time.Duration `yaml:"max_delay"`   // default: 30s
}

// TokenConfig holds the long-lived OAuth token sources.
type TokenConfig struct {
	OAuthToken     string `yaml:"oauth_token"`
	OAuthTokenFile string `yaml:"oauth_token_file"` // _file variant for oauth_token
	HostsPath      string `yaml:"hosts_path"`       // default: ~/.config/github-copilot/hosts.json
}

// ModelsConfig holds model alias mapping.
type ModelsConfig struct {
	// Mapping maps caller-facing aliases to upstream model names.
	Mapping map[string]string `yaml:"mapping"`
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	Type          string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys       []APIKeyConfig `yaml:"api_keys"` // key entries for type=apikey
	JWTSecret     string         `yaml:"jwt_secret"`
	JWTSecretFile string         `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	RateLimitRPM  int            `yaml:"rate_limit_rpm"`  // per-subject requests per minute, 0 = unlimited
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error", default: "info"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			ReadTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			ChatCompletionsURL:  "https://api.githubcopilot.com/chat/completions",
			ResponsesURL:        "https://api.githubcopilot.com/responses",
			ModelsURL:           "https://api.githubcopilot.com/models",
			TokenURL:            "https://api.github.com/copilot_internal/v2/token",
			UsageURL:            "https://api.github.com/copilot_internal/user",
			EditorVersion:       "vscode/1.104.0",
			EditorPluginVersion: "copilot-chat/0.25.2025021001",
			Timeout:             120 * time.Second,
			Retry: RetryConfig{
				MaxRetries: 3,
				BaseDelay:  time.Second,
				MaxDelay:   30 * time.Second,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
