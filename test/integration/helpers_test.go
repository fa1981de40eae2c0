// Package integration exercises the full gateway stack end to end: the
// HTTP adapter with its middleware chain in front, and a deterministic
// in-process upstream behind the real upstream client, including the
// credential exchange.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pilotgw/pilotgw/pkg/auth"
	"github.com/pilotgw/pilotgw/pkg/auth/apikey"
	"github.com/pilotgw/pilotgw/pkg/gateway"
	"github.com/pilotgw/pilotgw/pkg/observability"
	"github.com/pilotgw/pilotgw/pkg/token"
	"github.com/pilotgw/pilotgw/pkg/transport"
	transporthttp "github.com/pilotgw/pilotgw/pkg/transport/http"
	"github.com/pilotgw/pilotgw/pkg/upstream"
)

const (
	testAPIKey   = "sk-integration-test"
	oauthToken   = "mock-oauth-token"
	sessionToken = "mock-session-token"
)

// mockUpstream is a Copilot-shaped upstream: it exchanges the long-lived
// token for a session token and serves chat completions against it.
type mockUpstream struct {
	server *httptest.Server

	mu         sync.Mutex
	lastModel  string
	failStatus int // nonzero makes chat completions fail with this status
}

func newMockUpstream(t *testing.T) *mockUpstream {
	t.Helper()
	m := &mockUpstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /token", m.handleToken)
	mux.HandleFunc("POST /chat/completions", m.handleChatCompletions)
	mux.HandleFunc("GET /models", m.handleModels)
	mux.HandleFunc("GET /user", m.handleUsage)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

// LastModel returns the model name of the most recent completion request.
func (m *mockUpstream) LastModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastModel
}

// FailWith makes subsequent completion calls return the given status.
func (m *mockUpstream) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
}

func (m *mockUpstream) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		http.Error(w, `{"message":"missing credentials"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token":      sessionToken,
		"expires_at": time.Now().Add(2 * time.Hour).Unix(),
	})
}

func (m *mockUpstream) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+sessionToken {
		http.Error(w, `{"error":{"message":"bad session token"}}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"bad request body"}}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.lastModel = req.Model
	fail := m.failStatus
	m.mu.Unlock()

	if fail != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fail)
		fmt.Fprintf(w, `{"error":{"message":"injected upstream failure"}}`)
		return
	}

	if req.Stream {
		m.streamCompletion(w, req.Model)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-itest",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []any{map[string]any{
			"index": 0,
			"message": map[string]any{
				"role":    "assistant",
				"content": "Hello from upstream",
			},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     7,
			"completion_tokens": 3,
			"total_tokens":      10,
		},
	})
}

func (m *mockUpstream) streamCompletion(w http.ResponseWriter, model string) {
	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")

	chunk := func(delta map[string]any, finish any, usage map[string]any) {
		payload := map[string]any{
			"id":     "chatcmpl-itest",
			"object": "chat.completion.chunk",
			"model":  model,
			"choices": []any{map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finish,
			}},
		}
		if usage != nil {
			payload["usage"] = usage
		}
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	chunk(map[string]any{"role": "assistant"}, nil, nil)
	chunk(map[string]any{"content": "Hello"}, nil, nil)
	chunk(map[string]any{"content": " stream"}, nil, nil)
	chunk(map[string]any{}, "stop", map[string]any{
		"prompt_tokens":     7,
		"completion_tokens": 2,
		"total_tokens":      9,
	})
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (m *mockUpstream) handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data": []any{
			map[string]any{"id": "mock-model", "name": "Mock Model", "vendor": "mock"},
		},
	})
}

func (m *mockUpstream) handleUsage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"quota_reset_date": "2026-09-01",
		"quota_snapshots": map[string]any{
			"chat": map[string]any{"entitlement": 300, "remaining": 250, "percent_remaining": 83.3},
		},
	})
}

// env is one fully wired gateway instance in front of a mock upstream.
type env struct {
	upstream *mockUpstream
	server   *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mock := newMockUpstream(t)

	client := upstream.NewClient(upstream.Config{
		ChatCompletionsURL: mock.server.URL + "/chat/completions",
		ResponsesURL:       mock.server.URL + "/responses",
		ModelsURL:          mock.server.URL + "/models",
		TokenURL:           mock.server.URL + "/token",
		UsageURL:           mock.server.URL + "/user",
		Timeout:            10 * time.Second,
		Retry: upstream.RetryConfig{
			MaxRetries:      1,
			BaseDelay:       time.Millisecond,
			ExponentialBase: 2,
			MaxDelay:        5 * time.Millisecond,
		},
	}, token.Static(oauthToken))

	gw := gateway.New(client, gateway.Options{
		ModelMapping: map[string]string{"fast": "mock-model"},
	})
	t.Cleanup(func() { gw.Close() })

	adapter := transporthttp.NewAdapter(gw, transporthttp.DefaultConfig())

	chain := &auth.AuthChain{
		Authenticators: []auth.Authenticator{apikey.New([]apikey.Entry{
			{Key: testAPIKey, Subject: "tester"},
		})},
		DefaultDecision: auth.No,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := transport.Chain(
		transport.Recovery(),
		transport.RequestID(),
		transport.CORS(),
		transport.Logging(logger),
		observability.MetricsMiddleware,
		auth.Middleware(chain, nil, auth.DefaultBypassEndpoints),
	)(adapter.Handler())

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &env{upstream: mock, server: srv}
}

// post sends an authenticated JSON request to the gateway.
func (e *env) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPIKey)

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	return resp
}

// decodeJSON reads and closes the response body into a generic map.
func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return out
}

// readBody reads and closes the full response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(data)
}
