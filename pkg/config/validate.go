package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	// The upstream endpoint set is required.
	if c.Upstream.ChatCompletionsURL == "" {
		errs = append(errs, fmt.Errorf("upstream.chat_completions_url is required"))
	}
	if c.Upstream.ResponsesURL == "" {
		errs = append(errs, fmt.Errorf("upstream.responses_url is required"))
	}
	if c.Upstream.TokenURL == "" {
		errs = append(errs, fmt.Errorf("upstream.token_url is required"))
	}

	// Retry policy values must be sane.
	if c.Upstream.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("upstream.retry.max_retries must be >= 0, got %d", c.Upstream.Retry.MaxRetries))
	}
	if c.Upstream.Retry.BaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("upstream.retry.base_delay must be > 0, got %s", c.Upstream.Retry.BaseDelay))
	}
	if c.Upstream.Retry.MaxDelay < c.Upstream.Retry.BaseDelay {
		errs = append(errs, fmt.Errorf("upstream.retry.max_delay must be >= base_delay, got %s", c.Upstream.Retry.MaxDelay))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	// type=apikey requires at least one key; type=jwt requires a secret.
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWTSecret == "" && c.Auth.JWTSecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret or auth.jwt_secret_file is required when auth.type is \"jwt\""))
	}

	// logging.level must be a known value.
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}
