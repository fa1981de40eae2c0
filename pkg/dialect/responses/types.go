package responses

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// Responses API wire types, used for the newer upstream endpoint and for
// inbound /v1/responses callers.

// Request is the request body for the responses endpoint.
type Request struct {
	Model        string   `json:"model"`
	Instructions string   `json:"instructions,omitempty"`
	Input        Input    `json:"input"`
	Tools        []Tool   `json:"tools,omitempty"`
	ToolChoice   any      `json:"tool_choice,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Stream       bool     `json:"stream"`
}

// Input is either a bare string (the collapsed single-user-message form) or
// an ordered list of input items.
type Input struct {
	Text   string
	Items  []Item
	IsText bool
}

// TextInput returns string-shaped input.
func TextInput(s string) Input {
	return Input{Text: s, IsText: true}
}

// ItemsInput returns item-list-shaped input.
func ItemsInput(items []Item) Input {
	return Input{Items: items}
}

// MarshalJSON emits the input in its wire shape.
func (in Input) MarshalJSON() ([]byte, error) {
	if in.IsText {
		return json.Marshal(in.Text)
	}
	if in.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(in.Items)
}

// UnmarshalJSON accepts a string or an item list.
func (in *Input) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*in = Input{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		in.IsText = true
		return json.Unmarshal(trimmed, &in.Text)
	case '[':
		in.IsText = false
		return json.Unmarshal(trimmed, &in.Items)
	}
	return fmt.Errorf("input must be a string or an array of items")
}

// Item types in the input and output sequences.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// Item is one element of the input or output sequence. The populated fields
// depend on Type; user message items omit Type on the wire.
type Item struct {
	Type    string       `json:"type,omitempty"`
	Role    string       `json:"role,omitempty"`
	Content *ItemContent `json:"content,omitempty"`

	// function_call / function_call_output
	ID        string `json:"id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

// ItemContent is either a bare string or a list of typed parts.
type ItemContent struct {
	Text  string
	Parts []Part
}

// MarshalJSON emits the content in its wire shape.
func (c ItemContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string or a part list.
func (c *ItemContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = ItemContent{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &c.Text)
	case '[':
		return json.Unmarshal(trimmed, &c.Parts)
	}
	return fmt.Errorf("item content must be a string or an array of parts")
}

// Part types. Text parts are labeled input_text for user-authored content
// and output_text for assistant-authored content.
const (
	PartInputText  = "input_text"
	PartOutputText = "output_text"
	PartInputImage = "input_image"
)

// Part is one element of structured item content.
type Part struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Tool is a tool definition with this dialect's flat envelope.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Response is the non-streaming response body.
type Response struct {
	ID         string     `json:"id"`
	Object     string     `json:"object"`
	CreatedAt  int64      `json:"created_at"`
	Model      string     `json:"model"`
	Output     []Item     `json:"output"`
	OutputText string     `json:"output_text,omitempty"`
	Usage      *api.Usage `json:"usage,omitempty"`
}
