package stream

import (
	"encoding/json"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/dialect/claude"
)

// ClaudeRenderer renders canonical events as Anthropic Messages SSE frames,
// enforcing the block lifecycle: one message_start, content_block_start
// before any delta for that index, exactly one content_block_stop per opened
// block, then message_delta with the stop reason and message_stop. Text and
// tool-use blocks never share an index; a tool call start closes any open
// text block and advances the index.
type ClaudeRenderer struct {
	id    string
	model string

	started   bool
	textOpen  bool
	toolOpen  bool
	current   int
	nextIndex int
	toolSeen  bool
	done      bool
}

// NewClaudeRenderer creates a renderer for one stream.
func NewClaudeRenderer(model string) *ClaudeRenderer {
	return &ClaudeRenderer{
		id:    api.NewMessageID(),
		model: model,
	}
}

// Render converts one canonical event into zero or more SSE frames.
func (r *ClaudeRenderer) Render(ev api.StreamEvent) []string {
	if r.done {
		return nil
	}

	switch ev.Type {
	case api.EventTextDelta:
		frames := r.ensureStarted()
		if r.toolOpen {
			frames = append(frames, r.closeBlock())
		}
		if !r.textOpen {
			frames = append(frames, r.openBlock(claude.Block{Type: claude.BlockText}))
			r.textOpen = true
		}
		frames = append(frames, frame("content_block_delta", claude.ContentBlockDeltaEvent{
			Type:  "content_block_delta",
			Index: r.current,
			Delta: claude.BlockDelta{Type: "text_delta", Text: ev.Text},
		}))
		return frames

	case api.EventToolCallStart:
		frames := r.ensureStarted()
		if r.textOpen || r.toolOpen {
			frames = append(frames, r.closeBlock())
		}
		frames = append(frames, r.openBlock(claude.Block{
			Type:  claude.BlockToolUse,
			ID:    ev.ToolID,
			Name:  ev.ToolName,
			Input: json.RawMessage(`{}`),
		}))
		r.toolOpen = true
		r.toolSeen = true
		return frames

	case api.EventToolCallArgDelta:
		frames := r.ensureStarted()
		if !r.toolOpen {
			// Fragment without a preceding start; open an anonymous block so
			// the delta still has a valid lifecycle.
			if r.textOpen {
				frames = append(frames, r.closeBlock())
			}
			frames = append(frames, r.openBlock(claude.Block{
				Type:  claude.BlockToolUse,
				Input: json.RawMessage(`{}`),
			}))
			r.toolOpen = true
			r.toolSeen = true
		}
		frames = append(frames, frame("content_block_delta", claude.ContentBlockDeltaEvent{
			Type:  "content_block_delta",
			Index: r.current,
			Delta: claude.BlockDelta{Type: "input_json_delta", PartialJSON: ev.Text},
		}))
		return frames

	case api.EventFinish:
		frames := r.ensureStarted()
		if r.textOpen || r.toolOpen {
			frames = append(frames, r.closeBlock())
		}
		r.done = true

		stopReason := claude.StopReasonEndTurn
		if r.toolSeen || ev.Reason == api.FinishToolCalls {
			stopReason = claude.StopReasonToolUse
		}
		var usage claude.Usage
		if ev.Usage != nil {
			usage = claude.Usage{
				InputTokens:  ev.Usage.PromptTokens,
				OutputTokens: ev.Usage.CompletionTokens,
			}
		}
		frames = append(frames,
			frame("message_delta", claude.MessageDeltaEvent{
				Type:  "message_delta",
				Delta: claude.MessageDelta{StopReason: stopReason},
				Usage: usage,
			}),
			frame("message_stop", claude.MessageStopEvent{Type: "message_stop"}),
		)
		return frames

	case api.EventError:
		r.done = true
		return []string{frame("error", claude.ErrorEvent{
			Type: "error",
			Error: claude.ErrorBody{
				Type:    string(ev.Err.Kind),
				Message: ev.Err.Message,
			},
		})}
	}
	return nil
}

// ensureStarted emits message_start once, before any other frame.
func (r *ClaudeRenderer) ensureStarted() []string {
	if r.started {
		return nil
	}
	r.started = true
	return []string{frame("message_start", claude.MessageStartEvent{
		Type: "message_start",
		Message: claude.MessagesResponse{
			ID:      r.id,
			Type:    "message",
			Role:    string(api.RoleAssistant),
			Content: []claude.Block{},
			Model:   r.model,
		},
	})}
}

// openBlock emits content_block_start at the next index and makes it current.
func (r *ClaudeRenderer) openBlock(block claude.Block) string {
	r.current = r.nextIndex
	r.nextIndex++
	return frame("content_block_start", claude.ContentBlockStartEvent{
		Type:         "content_block_start",
		Index:        r.current,
		ContentBlock: block,
	})
}

// closeBlock emits content_block_stop for the current block.
func (r *ClaudeRenderer) closeBlock() string {
	r.textOpen = false
	r.toolOpen = false
	return frame("content_block_stop", claude.ContentBlockStopEvent{
		Type:  "content_block_stop",
		Index: r.current,
	})
}

// frame builds one named SSE frame.
func frame(event string, payload any) string {
	body, _ := json.Marshal(payload)
	return "event: " + event + "\ndata: " + string(body) + "\n\n"
}
