package token

import (
	"context"
	"os"
)

// EnvVar is the environment variable holding the OAuth token.
const EnvVar = "GH_COPILOT_TOKEN"

// EnvSource reads the token from an environment variable.
type EnvSource struct {
	// Var overrides the variable name; defaults to EnvVar.
	Var string
}

// Token returns the variable's value, or ErrNotFound when unset.
func (s *EnvSource) Token(ctx context.Context) (string, error) {
	name := s.Var
	if name == "" {
		name = EnvVar
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", ErrNotFound
}
