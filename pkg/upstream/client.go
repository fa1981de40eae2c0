package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/dialect/chat"
	"github.com/pilotgw/pilotgw/pkg/dialect/responses"
)

// Config holds the upstream endpoint URLs and client identity strings.
type Config struct {
	ChatCompletionsURL string
	ResponsesURL       string
	ModelsURL          string
	TokenURL           string
	UsageURL           string

	EditorVersion       string
	EditorPluginVersion string

	Timeout time.Duration
	Retry   RetryConfig
}

// DefaultConfig returns the Copilot-compatible endpoint set.
func DefaultConfig() Config {
	return Config{
		ChatCompletionsURL:  "https://api.githubcopilot.com/chat/completions",
		ResponsesURL:        "https://api.githubcopilot.com/responses",
		ModelsURL:           "https://api.githubcopilot.com/models",
		TokenURL:            "https://api.github.com/copilot_internal/v2/token",
		UsageURL:            "https://api.github.com/copilot_internal/user",
		EditorVersion:       "vscode/1.104.0",
		EditorPluginVersion: "copilot-chat/0.25.2025021001",
		Timeout:             120 * time.Second,
		Retry:               DefaultRetryConfig(),
	}
}

// Client performs chat calls against the upstream provider. It owns the
// pooled transport and the credential cache; both are safe for concurrent
// use and live for the process lifetime.
type Client struct {
	cfg    Config
	creds  *CredentialCache
	source TokenSource

	// httpClient carries the request timeout for non-streaming calls;
	// streamClient shares the transport but has no overall timeout, since a
	// stream can legitimately outlast any fixed deadline.
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a Client with a bounded connection pool.
func NewClient(cfg Config, source TokenSource) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{Transport: transport, Timeout: cfg.Timeout}

	return &Client{
		cfg:          cfg,
		creds:        NewCredentialCache(cfg.TokenURL, source, &http.Client{Transport: transport, Timeout: 30 * time.Second}),
		source:       source,
		httpClient:   httpClient,
		streamClient: &http.Client{Transport: transport},
	}
}

// Credentials exposes the credential cache, used by collaborators that need
// a bearer for auxiliary calls.
func (c *Client) Credentials() *CredentialCache {
	return c.creds
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// UsesResponsesEndpoint reports whether the model is served by the newer
// responses endpoint rather than the legacy chat endpoint.
func UsesResponsesEndpoint(model string) bool {
	return strings.Contains(strings.ToLower(model), "codex")
}

// Complete performs a non-streaming chat call and returns the canonical
// result.
func (c *Client) Complete(ctx context.Context, req *api.Request) (*api.Response, error) {
	reqCopy := *req
	reqCopy.Stream = false
	vision := api.HasImageContent(req.Messages)

	if UsesResponsesEndpoint(req.Model) {
		body, err := json.Marshal(responses.FromCanonical(&reqCopy))
		if err != nil {
			return nil, api.NewServerError("failed to marshal upstream request: " + err.Error())
		}
		resp, apiErr := c.roundTrip(ctx, c.cfg.ResponsesURL, body, false, vision)
		if apiErr != nil {
			return nil, apiErr
		}
		defer resp.Body.Close()

		var parsed responses.Response
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, api.NewServerError("failed to parse upstream response: " + err.Error())
		}
		return responses.ParseResponse(&parsed, req.Model), nil
	}

	body, err := json.Marshal(chat.FromCanonical(&reqCopy))
	if err != nil {
		return nil, api.NewServerError("failed to marshal upstream request: " + err.Error())
	}
	resp, apiErr := c.roundTrip(ctx, c.cfg.ChatCompletionsURL, body, false, vision)
	if apiErr != nil {
		return nil, apiErr
	}
	defer resp.Body.Close()

	var parsed chat.Response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, api.NewServerError("failed to parse upstream response: " + err.Error())
	}
	return chat.ParseResponse(&parsed, req.Model), nil
}

// Stream performs a streaming chat call and returns the raw event stream
// once the upstream has answered with a good status. Retries only happen
// before this point; once the body is handed out, failures are terminal for
// the call.
func (c *Client) Stream(ctx context.Context, req *api.Request) (io.ReadCloser, error) {
	reqCopy := *req
	reqCopy.Stream = true
	vision := api.HasImageContent(req.Messages)

	var body []byte
	var err error
	url := c.cfg.ChatCompletionsURL
	if UsesResponsesEndpoint(req.Model) {
		url = c.cfg.ResponsesURL
		body, err = json.Marshal(responses.FromCanonical(&reqCopy))
	} else {
		body, err = json.Marshal(chat.FromCanonical(&reqCopy))
	}
	if err != nil {
		return nil, api.NewServerError("failed to marshal upstream request: " + err.Error())
	}

	resp, apiErr := c.roundTrip(ctx, url, body, true, vision)
	if apiErr != nil {
		return nil, apiErr
	}
	return resp.Body, nil
}

// buildHeaders constructs the per-call header set. The vision flag is set
// only when the request carries an image-typed content part; the upstream
// gates image handling on it.
func (c *Client) buildHeaders(bearer string, streaming, vision bool) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+bearer)
	h.Set("Content-Type", "application/json")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Editor-Version", c.cfg.EditorVersion)
	h.Set("Editor-Plugin-Version", c.cfg.EditorPluginVersion)
	h.Set("Openai-Intent", "conversation-panel")
	if streaming {
		h.Set("Accept", "text/event-stream")
	} else {
		h.Set("Accept", "application/json")
	}
	if vision {
		h.Set("Copilot-Vision-Request", "true")
	}
	return h
}

// roundTrip executes one upstream POST with the retry policy. A 401 triggers
// exactly one unconditional credential refresh and re-issue that does not
// consume the retry budget. Retryable statuses and network errors are retried
// with exponential backoff until the budget runs out.
func (c *Client) roundTrip(ctx context.Context, url string, payload []byte, streaming, vision bool) (*http.Response, *api.APIError) {
	client := c.httpClient
	if streaming {
		client = c.streamClient
	}

	refreshed := false
	attempt := 0
	for {
		bearer, err := c.creds.Bearer(ctx)
		if err != nil {
			return nil, api.AsAPIError(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, api.NewServerError("failed to create upstream request: " + err.Error())
		}
		req.Header = c.buildHeaders(bearer, streaming, vision)

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, api.NewUpstreamError("upstream request cancelled: " + ctx.Err().Error())
			}
			if attempt < c.cfg.Retry.MaxRetries {
				if apiErr := c.backoff(ctx, attempt, 0, err); apiErr != nil {
					return nil, apiErr
				}
				attempt++
				continue
			}
			return nil, MapNetworkError(err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			drain(resp)
			refreshed = true
			c.creds.Invalidate()
			continue
		}

		if RetryableStatus(resp.StatusCode) && attempt < c.cfg.Retry.MaxRetries {
			drain(resp)
			if apiErr := c.backoff(ctx, attempt, resp.StatusCode, nil); apiErr != nil {
				return nil, apiErr
			}
			attempt++
			continue
		}

		mapped := MapHTTPError(resp)
		resp.Body.Close()
		return nil, mapped
	}
}

// backoff logs the retry and sleeps for the computed delay, honoring
// cancellation.
func (c *Client) backoff(ctx context.Context, attempt, status int, cause error) *api.APIError {
	delay := c.cfg.Retry.BackoffDelay(attempt)
	attrs := []any{"attempt", attempt, "delay", delay}
	if status != 0 {
		attrs = append(attrs, "status", status)
	}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	slog.Warn("retrying upstream request", attrs...)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return api.NewUpstreamError("upstream request cancelled: " + ctx.Err().Error())
	}
}

// drain discards and closes a response body so the connection can return to
// the pool.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
