// Package chat converts between the OpenAI Chat Completions wire format and
// the canonical representation. All functions are pure and perform no I/O.
package chat

import (
	"strings"
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// ToCanonical converts a Chat Completions request into the canonical form.
// System messages are extracted into Instructions (text parts concatenated,
// multiple system entries joined by blank lines); all other messages are
// normalized and kept in order.
func ToCanonical(req *Request) (*api.Request, error) {
	out := &api.Request{
		Model:       req.Model,
		ToolChoice:  req.ToolChoice,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == string(api.RoleSystem) {
			system = append(system, m.Content.JoinedText())
			continue
		}

		cm := api.ChatMessage{
			Role:       api.Role(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, api.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: api.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		cm.Normalize()
		if err := cm.Validate(); err != nil {
			return nil, api.NewInvalidRequestError(err.Error())
		}
		out.Messages = append(out.Messages, cm)
	}
	out.Instructions = strings.Join(system, "\n\n")

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, api.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}

	return out, nil
}

// FromCanonical converts a canonical request into the Chat Completions wire
// format: instructions become a leading system-role message and the message
// list stays flat and ordered.
func FromCanonical(req *api.Request) *Request {
	out := &Request{
		Model:       req.Model,
		ToolChoice:  req.ToolChoice,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}

	if req.Instructions != "" {
		out.Messages = append(out.Messages, Message{
			Role:    string(api.RoleSystem),
			Content: api.TextContent(req.Instructions),
		})
	}

	for _, m := range req.Messages {
		wm := Message{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out.Messages = append(out.Messages, wm)
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return out
}

// ResponseFromCanonical builds a Chat Completions response body from the
// canonical result.
func ResponseFromCanonical(resp *api.Response) *Response {
	msg := Message{Role: string(api.RoleAssistant)}
	if resp.Content != nil {
		msg.Content = api.TextContent(*resp.Content)
	} else {
		msg.Content = api.NullContent()
	}
	for _, tc := range resp.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	finish := string(resp.FinishReason)
	if finish == "" {
		finish = string(api.FinishStop)
	}

	return &Response{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   resp.Model,
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage:   &resp.Usage,
	}
}

// ParseResponse extracts the canonical result from an upstream Chat
// Completions response body.
func ParseResponse(resp *Response, model string) *api.Response {
	out := &api.Response{
		ID:           api.NewCompletionID(),
		Model:        model,
		FinishReason: api.FinishStop,
	}
	if resp.Usage != nil {
		out.Usage = *resp.Usage
	}
	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	if !choice.Message.Content.Null {
		text := choice.Message.Content.JoinedText()
		out.Content = &text
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, api.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: api.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	if choice.FinishReason != "" {
		out.FinishReason = api.FinishReason(choice.FinishReason)
	}
	return out
}
