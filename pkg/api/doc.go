// Package api defines the dialect-neutral data model for the pilotgw gateway.
//
// Inbound requests arrive in one of three wire dialects (OpenAI Chat
// Completions, OpenAI Responses, Anthropic Messages). All of them are
// normalized into the canonical types defined here before they reach the
// upstream client, and upstream output is normalized into [StreamEvent]
// values before it is rendered back into the caller's dialect.
//
// The package has zero external dependencies and performs no I/O.
//
// Core types:
//   - [ChatMessage]: role-tagged message with string, part-list, or null content
//   - [ToolDefinition]: flat tool schema (name, description, JSON parameters)
//   - [ToolCall]: an upstream-assigned call with incrementally built arguments
//   - [Request]: canonical chat request (the conversion pivot)
//   - [StreamEvent]: canonical streaming event (the transcoding pivot)
//   - [APIError]: structured error with kind, status, and message
package api
