// Package transport defines the middleware chain and error envelopes for
// the gateway HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the gateway core. It
// deserializes incoming requests from one of the supported wire dialects
// into the canonical types defined in pkg/api, dispatches them, and
// serializes responses back in the caller's dialect, either as a complete
// JSON body or as an SSE stream.
//
// # Middleware
//
// Middleware is plain func(http.Handler) http.Handler composed with Chain.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), CORS headers, and structured logging via log/slog.
//
// # Error envelopes
//
// Each dialect has its own error body shape. WriteChatError emits the
// OpenAI envelope used by the Chat Completions and Responses endpoints;
// WriteClaudeError emits the Anthropic envelope used by /v1/messages.
package transport
