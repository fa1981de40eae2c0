// Package responses converts between the OpenAI Responses wire format and
// the canonical representation. All functions are pure and perform no I/O.
package responses

import (
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// FromCanonical converts a canonical request into the Responses wire format.
//
// System text becomes the instructions field. Assistant tool calls are
// emitted as standalone function_call items ahead of the assistant message
// item, tool results become function_call_output items keyed by call id, and
// text parts are relabeled input_text or output_text by authorship.
//
// When the input reduces to exactly one user message with pure-text content,
// it is collapsed to a bare string. Some upstreams reject the verbose array
// form for trivial single-turn calls, so the collapse is load-bearing.
func FromCanonical(req *api.Request) *Request {
	out := &Request{
		Model:        req.Model,
		Instructions: req.Instructions,
		ToolChoice:   req.ToolChoice,
		Temperature:  req.Temperature,
		Stream:       req.Stream,
	}

	var items []Item
	for _, m := range req.Messages {
		switch {
		case m.Role == api.RoleTool:
			items = append(items, Item{
				Type:   ItemFunctionCallOutput,
				CallID: m.ToolCallID,
				Output: m.Content.JoinedText(),
			})

		case m.Role == api.RoleAssistant:
			for _, tc := range m.ToolCalls {
				items = append(items, Item{
					Type:      ItemFunctionCall,
					CallID:    tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
			if content, ok := convertContent(m.Content, m.Role); ok {
				items = append(items, Item{
					Type:    ItemMessage,
					Role:    string(m.Role),
					Content: content,
				})
			}

		default:
			if content, ok := convertContent(m.Content, m.Role); ok {
				items = append(items, Item{Role: string(m.Role), Content: content})
			}
		}
	}

	// Single-user-message collapse.
	if len(items) == 1 && items[0].Role == string(api.RoleUser) &&
		items[0].Content != nil && items[0].Content.Parts == nil {
		out.Input = TextInput(items[0].Content.Text)
	} else {
		out.Input = ItemsInput(items)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	return out
}

// convertContent maps canonical message content to item content, relabeling
// text parts by authorship. Empty or null content yields ok=false and the
// item is dropped.
func convertContent(c api.MessageContent, role api.Role) (*ItemContent, bool) {
	if c.Null {
		return nil, false
	}
	if c.Parts == nil {
		if c.Text == "" {
			return nil, false
		}
		if role == api.RoleAssistant {
			// Assistant text must be part-shaped so it carries output_text.
			return &ItemContent{Parts: []Part{{Type: PartOutputText, Text: c.Text}}}, true
		}
		return &ItemContent{Text: c.Text}, true
	}

	textType := PartInputText
	if role == api.RoleAssistant {
		textType = PartOutputText
	}

	var parts []Part
	for _, p := range c.Parts {
		switch p.Type {
		case api.PartText:
			parts = append(parts, Part{Type: textType, Text: p.Text})
		case api.PartImageURL:
			if p.ImageURL != nil {
				parts = append(parts, Part{Type: PartInputImage, ImageURL: p.ImageURL.URL})
			}
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	return &ItemContent{Parts: parts}, true
}

// ToCanonical converts an inbound Responses request into the canonical form:
// instructions map directly, message items become chat messages,
// function_call items become assistant tool calls, and function_call_output
// items become tool-role messages.
func ToCanonical(req *Request) (*api.Request, error) {
	out := &api.Request{
		Model:        req.Model,
		Instructions: req.Instructions,
		ToolChoice:   req.ToolChoice,
		Temperature:  req.Temperature,
		Stream:       req.Stream,
	}

	if req.Input.IsText {
		out.Messages = append(out.Messages, api.ChatMessage{
			Role:    api.RoleUser,
			Content: api.TextContent(req.Input.Text),
		})
	} else {
		for _, item := range req.Input.Items {
			msg, ok := itemToMessage(item)
			if !ok {
				continue
			}
			msg.Normalize()
			if err := msg.Validate(); err != nil {
				return nil, api.NewInvalidRequestError(err.Error())
			}
			out.Messages = append(out.Messages, msg)
		}
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, api.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}

	return out, nil
}

// itemToMessage maps one input item to a canonical message. Unknown item
// types are skipped.
func itemToMessage(item Item) (api.ChatMessage, bool) {
	switch item.Type {
	case ItemFunctionCall:
		id := item.CallID
		if id == "" {
			id = item.ID
		}
		return api.ChatMessage{
			Role:    api.RoleAssistant,
			Content: api.NullContent(),
			ToolCalls: []api.ToolCall{{
				ID:   id,
				Type: "function",
				Function: api.FunctionCall{
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			}},
		}, true

	case ItemFunctionCallOutput:
		return api.ChatMessage{
			Role:       api.RoleTool,
			ToolCallID: item.CallID,
			Content:    api.TextContent(item.Output),
		}, true

	case ItemMessage, "":
		if item.Role == "" {
			return api.ChatMessage{}, false
		}
		return api.ChatMessage{
			Role:    api.Role(item.Role),
			Content: itemContentToCanonical(item.Content),
		}, true
	}
	return api.ChatMessage{}, false
}

// itemContentToCanonical maps item content back to canonical content.
func itemContentToCanonical(c *ItemContent) api.MessageContent {
	if c == nil {
		return api.TextContent("")
	}
	if c.Parts == nil {
		return api.TextContent(c.Text)
	}
	var parts []api.ContentPart
	for _, p := range c.Parts {
		switch p.Type {
		case PartInputText, PartOutputText:
			parts = append(parts, api.ContentPart{Type: api.PartText, Text: p.Text})
		case PartInputImage:
			parts = append(parts, api.ContentPart{
				Type:     api.PartImageURL,
				ImageURL: &api.ImageURL{URL: p.ImageURL},
			})
		}
	}
	return api.PartsContent(parts)
}

// ResponseFromCanonical builds a Responses response body from the canonical
// result.
func ResponseFromCanonical(resp *api.Response) *Response {
	out := &Response{
		ID:        api.NewResponseID(),
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Model:     resp.Model,
		Usage:     &resp.Usage,
	}

	if resp.Content != nil && *resp.Content != "" {
		out.OutputText = *resp.Content
		out.Output = append(out.Output, Item{
			Type: ItemMessage,
			Role: string(api.RoleAssistant),
			Content: &ItemContent{Parts: []Part{
				{Type: PartOutputText, Text: *resp.Content},
			}},
		})
	}
	for _, tc := range resp.ToolCalls {
		out.Output = append(out.Output, Item{
			Type:      ItemFunctionCall,
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out
}

// ParseResponse extracts the canonical result from an upstream Responses
// body. Text is taken from the top-level output_text when present, otherwise
// concatenated from message items; function_call items become tool calls.
func ParseResponse(resp *Response, model string) *api.Response {
	out := &api.Response{
		ID:           api.NewCompletionID(),
		Model:        model,
		FinishReason: api.FinishStop,
	}
	if resp.Usage != nil {
		out.Usage = *resp.Usage
	}

	var text string
	for _, item := range resp.Output {
		switch item.Type {
		case ItemMessage:
			if item.Content == nil {
				continue
			}
			if item.Content.Parts == nil {
				text += item.Content.Text
				continue
			}
			for _, p := range item.Content.Parts {
				if p.Type == PartOutputText {
					text += p.Text
				}
			}
		case ItemFunctionCall:
			id := item.CallID
			if id == "" {
				id = item.ID
			}
			args := item.Arguments
			if args == "" {
				args = "{}"
			}
			out.ToolCalls = append(out.ToolCalls, api.ToolCall{
				ID:   id,
				Type: "function",
				Function: api.FunctionCall{
					Name:      item.Name,
					Arguments: args,
				},
			})
		}
	}

	if resp.OutputText != "" {
		text = resp.OutputText
	}
	if text != "" {
		out.Content = &text
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = api.FinishToolCalls
	}
	return out
}
