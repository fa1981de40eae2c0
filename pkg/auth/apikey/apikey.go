// Package apikey provides an API key authenticator that validates
// keys against a static store using SHA-256 hashing and constant-time
// comparison. Keys are accepted from "Authorization: Bearer" or the
// "x-api-key" header.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/pilotgw/pilotgw/pkg/auth"
)

// keyEntry maps a key hash to a subject.
type keyEntry struct {
	keyHash [32]byte
	subject string
}

// Entry is the configuration format for API keys.
type Entry struct {
	Key     string
	Subject string
}

// Authenticator validates API keys against a static key store.
type Authenticator struct {
	keys []keyEntry
}

// New creates an API key authenticator from a list of raw keys.
// Keys are hashed immediately; plaintext keys are not retained.
func New(entries []Entry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, keyEntry{
			keyHash: sha256.Sum256([]byte(e.Key)),
			subject: e.Subject,
		})
	}
	return a
}

// Authenticate extracts the API key and validates it.
// Returns Yes if valid, No if a key is present but invalid,
// Abstain if no key-shaped credential is present.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key := extractKey(r)
	if key == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	// Hash the key and compare against stored hashes.
	keyHash := sha256.Sum256([]byte(key))

	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(keyHash[:], entry.keyHash[:]) == 1 {
			return auth.AuthResult{
				Decision: auth.Yes,
				Identity: &auth.Identity{Subject: entry.subject},
			}
		}
	}

	// Key present but not found.
	return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

// extractKey pulls the candidate key from the request. The Anthropic-style
// x-api-key header wins over the Authorization header.
func extractKey(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
