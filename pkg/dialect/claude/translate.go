// Package claude converts between the Anthropic Messages wire format and the
// canonical representation. All functions are pure and perform no I/O.
package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// ToCanonical converts a Messages request into the canonical form.
//
// The system prompt becomes Instructions. Inside message content, tool_use
// blocks become tool calls on an assistant message (input objects
// re-serialized to argument strings), and tool_result blocks become
// standalone tool-role messages keyed by tool_use_id. Base64 image sources
// are rewritten as data: URIs.
func ToCanonical(req *MessagesRequest) (*api.Request, error) {
	out := &api.Request{
		Model:        req.Model,
		Instructions: req.System.JoinedText(),
		ToolChoice:   nil,
		Temperature:  req.Temperature,
		Stream:       req.Stream,
	}

	for _, m := range req.Messages {
		if m.Content.Blocks == nil {
			out.Messages = append(out.Messages, api.ChatMessage{
				Role:    api.Role(m.Role),
				Content: api.TextContent(m.Content.Text),
			})
			continue
		}

		var parts []api.ContentPart
		var toolCalls []api.ToolCall

		for _, b := range m.Content.Blocks {
			switch b.Type {
			case BlockText:
				parts = append(parts, api.ContentPart{Type: api.PartText, Text: b.Text})

			case BlockImage:
				if url, ok := imageSourceURL(b.Source); ok {
					parts = append(parts, api.ContentPart{
						Type:     api.PartImageURL,
						ImageURL: &api.ImageURL{URL: url},
					})
				}

			case BlockToolUse:
				toolCalls = append(toolCalls, api.ToolCall{
					ID:   b.ID,
					Type: "function",
					Function: api.FunctionCall{
						Name:      b.Name,
						Arguments: inputToArguments(b.Input),
					},
				})

			case BlockToolResult:
				// Tool results become standalone tool messages; they never
				// share a message with the surrounding blocks.
				out.Messages = append(out.Messages, api.ChatMessage{
					Role:       api.RoleTool,
					ToolCallID: b.ToolUseID,
					Content:    api.TextContent(toolResultText(b.Content)),
				})
			}
		}

		switch {
		case len(toolCalls) > 0:
			msg := api.ChatMessage{
				Role:      api.Role(m.Role),
				ToolCalls: toolCalls,
				Content:   api.NullContent(),
			}
			if text := joinTextParts(parts); text != "" {
				msg.Content = api.TextContent(text)
			}
			out.Messages = append(out.Messages, msg)
		case len(parts) > 0:
			out.Messages = append(out.Messages, api.ChatMessage{
				Role:    api.Role(m.Role),
				Content: api.PartsContent(parts),
			})
		}
	}

	for i := range out.Messages {
		out.Messages[i].Normalize()
		if err := out.Messages[i].Validate(); err != nil {
			return nil, api.NewInvalidRequestError(err.Error())
		}
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, api.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}

	return out, nil
}

// FromCanonical converts a canonical request into the Messages wire format.
// Tool-role messages become user messages carrying a tool_result block, and
// assistant tool calls become tool_use blocks with their argument strings
// decoded back into objects.
func FromCanonical(req *api.Request) *MessagesRequest {
	out := &MessagesRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	if req.Instructions != "" {
		out.System = SystemPrompt{Text: req.Instructions}
	}

	for _, m := range req.Messages {
		switch {
		case m.Role == api.RoleTool:
			out.Messages = append(out.Messages, Message{
				Role: string(api.RoleUser),
				Content: BlockContent{Blocks: []Block{{
					Type:      BlockToolResult,
					ToolUseID: m.ToolCallID,
					Content:   &BlockContent{Text: m.Content.JoinedText()},
				}}},
			})

		case len(m.ToolCalls) > 0:
			var blocks []Block
			if text := m.Content.JoinedText(); text != "" {
				blocks = append(blocks, Block{Type: BlockText, Text: text})
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, Block{
					Type:  BlockToolUse,
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: ArgumentsToInput(tc.Function.Arguments),
				})
			}
			out.Messages = append(out.Messages, Message{
				Role:    string(m.Role),
				Content: BlockContent{Blocks: blocks},
			})

		case m.Content.Parts != nil:
			var blocks []Block
			for _, p := range m.Content.Parts {
				switch p.Type {
				case api.PartText:
					blocks = append(blocks, Block{Type: BlockText, Text: p.Text})
				case api.PartImageURL:
					if p.ImageURL != nil {
						blocks = append(blocks, imageBlockFromURL(p.ImageURL.URL))
					}
				}
			}
			out.Messages = append(out.Messages, Message{
				Role:    string(m.Role),
				Content: BlockContent{Blocks: blocks},
			})

		default:
			out.Messages = append(out.Messages, Message{
				Role:    string(m.Role),
				Content: BlockContent{Text: m.Content.Text},
			})
		}
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	return out
}

// ResponseFromCanonical builds a Messages response body from the canonical
// result. The stop reason is tool_use when any tool call occurred.
func ResponseFromCanonical(resp *api.Response) *MessagesResponse {
	out := &MessagesResponse{
		ID:         api.NewMessageID(),
		Type:       "message",
		Role:       string(api.RoleAssistant),
		Model:      resp.Model,
		StopReason: StopReasonEndTurn,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if resp.Content != nil && *resp.Content != "" {
		out.Content = append(out.Content, Block{Type: BlockText, Text: *resp.Content})
	}
	for _, tc := range resp.ToolCalls {
		out.Content = append(out.Content, Block{
			Type:  BlockToolUse,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: ArgumentsToInput(tc.Function.Arguments),
		})
	}
	if len(resp.ToolCalls) > 0 {
		out.StopReason = StopReasonToolUse
	}

	return out
}

// ArgumentsToInput decodes a tool-call argument string into a JSON object.
// Arguments that do not parse (partial or streamed mid-flight) yield an
// empty object rather than an error.
func ArgumentsToInput(arguments string) json.RawMessage {
	if len(arguments) > 0 && json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	return json.RawMessage(`{}`)
}

// inputToArguments re-serializes a tool_use input object as an argument
// string. A missing input yields "{}".
func inputToArguments(input json.RawMessage) string {
	if len(input) == 0 {
		return "{}"
	}
	return string(input)
}

// imageSourceURL converts an image source to a URL part value.
func imageSourceURL(src *ImageSource) (string, bool) {
	if src == nil {
		return "", false
	}
	switch src.Type {
	case "base64":
		return fmt.Sprintf("data:%s;base64,%s", src.MediaType, src.Data), true
	case "url":
		return src.URL, true
	}
	return "", false
}

// imageBlockFromURL converts a URL part value back to an image block,
// splitting data: URIs into media type and payload.
func imageBlockFromURL(url string) Block {
	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		if mediaType, data, ok := strings.Cut(rest, ";base64,"); ok {
			return Block{Type: BlockImage, Source: &ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      data,
			}}
		}
	}
	return Block{Type: BlockImage, Source: &ImageSource{Type: "url", URL: url}}
}

// toolResultText flattens tool_result content to plain text.
func toolResultText(c *BlockContent) string {
	if c == nil {
		return ""
	}
	if c.Blocks == nil {
		return c.Text
	}
	var text string
	for _, b := range c.Blocks {
		if b.Type == BlockText {
			text += b.Text
		}
	}
	return text
}

// joinTextParts concatenates the text parts of a part list.
func joinTextParts(parts []api.ContentPart) string {
	var text string
	for _, p := range parts {
		if p.Type == api.PartText {
			text += p.Text
		}
	}
	return text
}
