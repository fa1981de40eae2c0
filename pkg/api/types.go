package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType identifies the type of a content part.
type PartType string

const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ImageURL references an image, either as an http(s) URL or a data: URI.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of structured message content.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// MessageContent holds message content in one of three wire shapes: a bare
// string, an ordered list of typed parts, or null. Null content is only
// legal on assistant messages that carry tool calls.
type MessageContent struct {
	Text  string
	Parts []ContentPart
	Null  bool
}

// TextContent returns string-shaped content.
func TextContent(s string) MessageContent {
	return MessageContent{Text: s}
}

// PartsContent returns part-list-shaped content.
func PartsContent(parts []ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

// NullContent returns explicit null content.
func NullContent() MessageContent {
	return MessageContent{Null: true}
}

// IsText reports whether the content is a bare string.
func (c MessageContent) IsText() bool {
	return !c.Null && c.Parts == nil
}

// JoinedText concatenates all text in the content: the bare string for
// string-shaped content, or every type=text part in order for part lists.
func (c MessageContent) JoinedText() string {
	if c.Parts == nil {
		return c.Text
	}
	var buf bytes.Buffer
	for _, p := range c.Parts {
		if p.Type == PartText {
			buf.WriteString(p.Text)
		}
	}
	return buf.String()
}

// HasImage reports whether any part is an image reference.
func (c MessageContent) HasImage() bool {
	for _, p := range c.Parts {
		if p.Type == PartImageURL {
			return true
		}
	}
	return false
}

// MarshalJSON emits the content in its wire shape.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	switch {
	case c.Null:
		return []byte("null"), nil
	case c.Parts != nil:
		return json.Marshal(c.Parts)
	default:
		return json.Marshal(c.Text)
	}
}

// UnmarshalJSON accepts a string, an array of parts, or null.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = MessageContent{Null: true}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = MessageContent{Text: s}
		return nil
	case '[':
		var parts []ContentPart
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		*c = MessageContent{Parts: parts}
		return nil
	}
	return fmt.Errorf("message content must be a string, an array of parts, or null")
}

// ChatMessage is the canonical representation of one conversation turn.
type ChatMessage struct {
	Role       Role           `json:"role"`
	Content    MessageContent `json:"content"`
	ToolCalls  []ToolCall     `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

// Validate enforces the role-specific field invariants:
// assistant messages may carry null content only alongside tool calls;
// tool messages require a tool_call_id; no other role may carry tool fields.
func (m *ChatMessage) Validate() error {
	switch m.Role {
	case RoleAssistant:
		if m.Content.Null && len(m.ToolCalls) == 0 {
			return fmt.Errorf("assistant message with null content requires tool_calls")
		}
		if m.ToolCallID != "" {
			return fmt.Errorf("assistant message must not carry tool_call_id")
		}
	case RoleTool:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool message requires tool_call_id")
		}
		if len(m.ToolCalls) > 0 {
			return fmt.Errorf("tool message must not carry tool_calls")
		}
		if m.Content.Null {
			return fmt.Errorf("tool message requires non-null content")
		}
	case RoleSystem, RoleUser:
		if len(m.ToolCalls) > 0 || m.ToolCallID != "" {
			return fmt.Errorf("%s message must not carry tool fields", m.Role)
		}
		if m.Content.Null {
			return fmt.Errorf("%s message requires non-null content", m.Role)
		}
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	return nil
}

// Normalize coerces null content to an empty string for every role that is
// not allowed to carry null. Unknown roles are left untouched.
func (m *ChatMessage) Normalize() {
	if !m.Content.Null {
		return
	}
	if m.Role == RoleAssistant && len(m.ToolCalls) > 0 {
		return
	}
	m.Content = TextContent("")
}

// ToolCall is a single tool invocation requested by the assistant. Arguments
// is a JSON-encoded string that is built incrementally during streaming and
// must parse as JSON once the call is complete.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized arguments of a ToolCall.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition is the canonical, envelope-free tool schema. The dialects
// differ only in how they nest these fields on the wire.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Request is the canonical chat request used as the conversion pivot.
// Instructions holds the system text extracted from the source dialect;
// Messages never contain a system entry.
type Request struct {
	Model        string
	Instructions string
	Messages     []ChatMessage
	Tools        []ToolDefinition
	ToolChoice   any
	Temperature  *float64
	Stream       bool
}

// HasImageContent reports whether any message carries an image part. The
// upstream client uses this to set the vision capability header.
func HasImageContent(msgs []ChatMessage) bool {
	for _, m := range msgs {
		if m.Content.HasImage() {
			return true
		}
	}
	return false
}

// Usage holds token accounting reported by the upstream.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the canonical non-streaming chat result.
type Response struct {
	ID           string
	Model        string
	Content      *string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
}
