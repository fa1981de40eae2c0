package claude

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Anthropic Messages wire types, inbound request and outbound response plus
// the streaming event frames.

// MessagesRequest is the request body for /v1/messages.
type MessagesRequest struct {
	Model       string          `json:"model"`
	System      SystemPrompt    `json:"system,omitempty"`
	Messages    []Message       `json:"messages"`
	Tools       []Tool          `json:"tools,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// SystemPrompt is either a bare string or a list of text blocks.
type SystemPrompt struct {
	Text   string
	Blocks []Block
}

// IsZero reports whether no system prompt was supplied.
func (s SystemPrompt) IsZero() bool {
	return s.Text == "" && s.Blocks == nil
}

// JoinedText concatenates the prompt text: the bare string, or every
// type=text block in order.
func (s SystemPrompt) JoinedText() string {
	if s.Blocks == nil {
		return s.Text
	}
	var buf bytes.Buffer
	for _, b := range s.Blocks {
		if b.Type == BlockText {
			buf.WriteString(b.Text)
		}
	}
	return buf.String()
}

// MarshalJSON emits the system prompt in its wire shape.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON accepts a string or a block list.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = SystemPrompt{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &s.Text)
	case '[':
		return json.Unmarshal(trimmed, &s.Blocks)
	}
	return fmt.Errorf("system must be a string or an array of blocks")
}

// Message is one turn in the Messages dialect.
type Message struct {
	Role    string       `json:"role"`
	Content BlockContent `json:"content"`
}

// BlockContent is either a bare string or a list of content blocks.
type BlockContent struct {
	Text   string
	Blocks []Block
}

// MarshalJSON emits the content in its wire shape.
func (c BlockContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string or a block list.
func (c *BlockContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = BlockContent{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &c.Text)
	case '[':
		return json.Unmarshal(trimmed, &c.Blocks)
	}
	return fmt.Errorf("content must be a string or an array of blocks")
}

// Block types used in message content.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Block is one content block. The populated fields depend on Type.
type Block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string        `json:"tool_use_id,omitempty"`
	Content   *BlockContent `json:"content,omitempty"`
}

// ImageSource describes an image block's payload.
type ImageSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Tool is a tool definition with this dialect's flat envelope.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// MessagesResponse is the non-streaming response body.
type MessagesResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Role       string  `json:"role"`
	Content    []Block `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stop_reason"`
	Usage      Usage   `json:"usage"`
}

// Usage is this dialect's token accounting shape.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Stream event frames. Each frame is sent as an SSE event whose event name
// equals the Type field.

// Stop reasons emitted in message_delta.
const (
	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// MessageStartEvent opens the stream.
type MessageStartEvent struct {
	Type    string           `json:"type"`
	Message MessagesResponse `json:"message"`
}

// ContentBlockStartEvent opens a content block at Index.
type ContentBlockStartEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock Block  `json:"content_block"`
}

// ContentBlockDeltaEvent carries an increment for the block at Index.
type ContentBlockDeltaEvent struct {
	Type  string     `json:"type"`
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

// BlockDelta is a text_delta or input_json_delta increment.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent carries the stop reason before message_stop.
type MessageDeltaEvent struct {
	Type  string       `json:"type"`
	Delta MessageDelta `json:"delta"`
	Usage Usage        `json:"usage"`
}

// MessageDelta holds the final stop metadata.
type MessageDelta struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageStopEvent closes the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// ErrorEvent is the in-band streaming error frame.
type ErrorEvent struct {
	Type  string    `json:"type"`
	Error ErrorBody `json:"error"`
}

// ErrorResponse is this dialect's non-streaming error envelope.
type ErrorResponse struct {
	Type  string    `json:"type"`
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error kind and message.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
