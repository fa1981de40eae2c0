// Package token provides the long-lived OAuth token used by the upstream
// credential exchange. Sources are tried in order: environment variable,
// hosts file, and the interactive device-authorization flow.
package token

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a source has no token to offer. A chain moves
// on to the next source on this error and stops on any other.
var ErrNotFound = errors.New("token: not found")

// Source yields a long-lived OAuth token.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token, mainly for tests and explicit configuration.
type Static string

// Token returns the fixed value.
func (s Static) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNotFound
	}
	return string(s), nil
}

// Chain tries each source in order, skipping those that report ErrNotFound.
type Chain []Source

// Token returns the first token found.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, s := range c {
		tok, err := s.Token(ctx)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}
