package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// defaultCredentialTTL is used when the exchange response carries no expiry.
const defaultCredentialTTL = 2 * time.Hour

// TokenSource yields the long-lived OAuth token used for the credential
// exchange. Implementations live in pkg/token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Credential is the short-lived bearer obtained from the exchange endpoint.
type Credential struct {
	Token    string
	IssuedAt time.Time
	TTL      time.Duration
}

// Valid reports whether the credential exists and has not expired.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Sub(c.IssuedAt) < c.TTL
}

// CredentialCache exchanges the long-lived OAuth token for the short-lived
// bearer and caches it until wall-clock expiry. A cache miss triggers at most
// one in-flight exchange regardless of concurrent callers.
type CredentialCache struct {
	tokenURL   string
	source     TokenSource
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	cred  Credential
	group singleflight.Group
}

// NewCredentialCache creates a cache that exchanges tokens at tokenURL.
func NewCredentialCache(tokenURL string, source TokenSource, client *http.Client) *CredentialCache {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CredentialCache{
		tokenURL:   tokenURL,
		source:     source,
		httpClient: client,
		now:        time.Now,
	}
}

// Bearer returns the cached bearer token, performing a single-flight
// exchange when the cached value is missing or expired.
func (c *CredentialCache) Bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cred.Valid(c.now()) {
		token := c.cred.Token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("bearer", func() (any, error) {
		// Another caller may have completed the exchange while this one
		// was waiting on the group.
		c.mu.Lock()
		if c.cred.Valid(c.now()) {
			token := c.cred.Token
			c.mu.Unlock()
			return token, nil
		}
		c.mu.Unlock()

		cred, err := c.exchange(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.cred = cred
		c.mu.Unlock()
		return cred.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached credential so the next Bearer call performs a
// fresh exchange. Called once, unconditionally, when the upstream answers 401.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	c.cred = Credential{}
	c.mu.Unlock()
}

// exchangeResponse is the token exchange endpoint's body.
type exchangeResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// exchange trades the long-lived OAuth token for a short-lived bearer.
func (c *CredentialCache) exchange(ctx context.Context) (Credential, error) {
	oauth, err := c.source.Token(ctx)
	if err != nil {
		return Credential{}, api.NewAuthenticationError("no upstream credential available: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL, nil)
	if err != nil {
		return Credential{}, api.NewServerError("failed to create token exchange request: " + err.Error())
	}
	req.Header.Set("Authorization", "token "+oauth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, api.NewAuthenticationError("token exchange failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Credential{}, api.NewAuthenticationError(
			fmt.Sprintf("token exchange returned HTTP %d", resp.StatusCode))
	}

	var body exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Credential{}, api.NewAuthenticationError("failed to parse token exchange response: " + err.Error())
	}
	if body.Token == "" {
		return Credential{}, api.NewAuthenticationError("token exchange response contained no token")
	}

	now := c.now()
	ttl := defaultCredentialTTL
	if body.ExpiresAt > 0 {
		if until := time.Unix(body.ExpiresAt, 0).Sub(now); until > 0 {
			ttl = until
		}
	}
	return Credential{Token: body.Token, IssuedAt: now, TTL: ttl}, nil
}
