// Package http serves the gateway's three wire dialects over HTTP and SSE.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/dialect/chat"
	"github.com/pilotgw/pilotgw/pkg/dialect/claude"
	"github.com/pilotgw/pilotgw/pkg/dialect/responses"
	"github.com/pilotgw/pilotgw/pkg/stream"
	"github.com/pilotgw/pilotgw/pkg/transport"
	"github.com/pilotgw/pilotgw/pkg/upstream"
)

// Completer is the gateway surface the adapter dispatches to.
type Completer interface {
	Run(ctx context.Context, req *api.Request) (*api.Response, error)
	RunStream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error)
	Models(ctx context.Context) []upstream.ModelInfo
	Usage(ctx context.Context) (*upstream.UsageReport, error)
}

// frameRenderer turns canonical stream events into dialect SSE frames.
type frameRenderer interface {
	Render(ev api.StreamEvent) []string
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// Adapter routes the caller-facing endpoints to the gateway and
// serializes responses in each endpoint's dialect.
type Adapter struct {
	gw     Completer
	mux    *http.ServeMux
	config Config
}

// NewAdapter creates an HTTP adapter dispatching to the given Completer.
func NewAdapter(gw Completer, cfg Config) *Adapter {
	a := &Adapter{
		gw:     gw,
		mux:    http.NewServeMux(),
		config: cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletions)
	a.mux.HandleFunc("POST /v1/messages", a.handleMessages)
	a.mux.HandleFunc("POST /v1/responses", a.handleResponses)
	a.mux.HandleFunc("GET /v1/models", a.handleModels)
	a.mux.HandleFunc("GET /usage", a.handleUsage)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest; wrap it with the middleware
// from pkg/transport.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// Handle mounts an additional handler on the adapter's mux, for endpoints
// like /metrics that live outside the dialect surface.
func (a *Adapter) Handle(pattern string, handler http.Handler) {
	a.mux.Handle(pattern, handler)
}

// handleChatCompletions handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var dreq chat.Request
	if !a.decodeBody(w, r, &dreq, transport.WriteChatError) {
		return
	}

	req, err := chat.ToCanonical(&dreq)
	if err != nil {
		transport.WriteChatError(w, api.AsAPIError(err))
		return
	}

	if req.Stream {
		a.streamEvents(w, r, req, stream.NewChatRenderer(req.Model), transport.WriteChatError)
		return
	}

	resp, err := a.gw.Run(r.Context(), req)
	if err != nil {
		transport.WriteChatError(w, api.AsAPIError(err))
		return
	}
	writeJSON(w, chat.ResponseFromCanonical(resp))
}

// handleMessages handles POST /v1/messages.
func (a *Adapter) handleMessages(w http.ResponseWriter, r *http.Request) {
	var dreq claude.MessagesRequest
	if !a.decodeBody(w, r, &dreq, transport.WriteClaudeError) {
		return
	}

	req, err := claude.ToCanonical(&dreq)
	if err != nil {
		transport.WriteClaudeError(w, api.AsAPIError(err))
		return
	}

	if req.Stream {
		a.streamEvents(w, r, req, stream.NewClaudeRenderer(req.Model), transport.WriteClaudeError)
		return
	}

	resp, err := a.gw.Run(r.Context(), req)
	if err != nil {
		transport.WriteClaudeError(w, api.AsAPIError(err))
		return
	}
	writeJSON(w, claude.ResponseFromCanonical(resp))
}

// handleResponses handles POST /v1/responses. Streaming requests are
// answered with Chat-Completions-shaped chunks.
func (a *Adapter) handleResponses(w http.ResponseWriter, r *http.Request) {
	var dreq responses.Request
	if !a.decodeBody(w, r, &dreq, transport.WriteChatError) {
		return
	}

	req, err := responses.ToCanonical(&dreq)
	if err != nil {
		transport.WriteChatError(w, api.AsAPIError(err))
		return
	}

	if req.Stream {
		a.streamEvents(w, r, req, stream.NewChatRenderer(req.Model), transport.WriteChatError)
		return
	}

	resp, err := a.gw.Run(r.Context(), req)
	if err != nil {
		transport.WriteChatError(w, api.AsAPIError(err))
		return
	}
	writeJSON(w, responses.ResponseFromCanonical(resp))
}

// streamEvents runs a streaming completion and renders each canonical
// event with the dialect renderer. Errors before the first frame get a
// JSON error body; once streaming has begun the renderer's terminal
// error frame is the only error surface.
func (a *Adapter) streamEvents(w http.ResponseWriter, r *http.Request, req *api.Request, renderer frameRenderer, writeErr transport.ErrorWriter) {
	ch, err := a.gw.RunStream(r.Context(), req)
	if err != nil {
		writeErr(w, api.AsAPIError(err))
		return
	}

	sw := newSSEWriter(w)
	for ev := range ch {
		for _, frame := range renderer.Render(ev) {
			if err := sw.WriteFrame(frame); err != nil {
				// Client disconnected; drain so the parser goroutine exits.
				for range ch {
				}
				return
			}
		}
	}
}

// handleModels handles GET /v1/models.
func (a *Adapter) handleModels(w http.ResponseWriter, r *http.Request) {
	models := a.gw.Models(r.Context())
	entries := make([]modelEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, modelEntry{
			ID:     m.ID,
			Object: "model",
			Name:   m.Name,
			Vendor: m.Vendor,
		})
	}
	writeJSON(w, modelList{Object: "list", Data: entries})
}

// modelList is the OpenAI-shaped model listing.
type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

type modelEntry struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Name   string `json:"name,omitempty"`
	Vendor string `json:"vendor,omitempty"`
}

// handleUsage handles GET /usage.
func (a *Adapter) handleUsage(w http.ResponseWriter, r *http.Request) {
	report, err := a.gw.Usage(r.Context())
	if err != nil {
		transport.WriteChatError(w, api.AsAPIError(err))
		return
	}
	writeJSON(w, report)
}

// handleHealthz handles GET /healthz.
func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeBody validates the content type, bounds the body size, and decodes
// the JSON payload. Errors are written in the endpoint's dialect envelope.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, out any, writeErr transport.ErrorWriter) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeErr(w, &api.APIError{
			Kind:    api.ErrorKindInvalidRequest,
			Status:  http.StatusUnsupportedMediaType,
			Message: "Content-Type must be application/json",
		})
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeErr(w, &api.APIError{
				Kind:    api.ErrorKindRequestTooLarge,
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize),
			})
			return false
		}
		writeErr(w, api.NewInvalidRequestError("invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// writeJSON writes a JSON response body with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
