package stream

import (
	"encoding/json"
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/dialect/chat"
)

// ChatRenderer renders canonical events as Chat Completions SSE chunks. Each
// chunk is self-contained: the delta object carries only the fields present
// in the increment, and finish_reason stays null until the terminal chunk.
type ChatRenderer struct {
	id       string
	model    string
	created  int64
	roleSent bool
	done     bool
}

// NewChatRenderer creates a renderer for one stream.
func NewChatRenderer(model string) *ChatRenderer {
	return &ChatRenderer{
		id:      api.NewCompletionID(),
		model:   model,
		created: time.Now().Unix(),
	}
}

// Render converts one canonical event into zero or more SSE frames.
func (r *ChatRenderer) Render(ev api.StreamEvent) []string {
	if r.done {
		return nil
	}

	switch ev.Type {
	case api.EventTextDelta:
		text := ev.Text
		return []string{r.chunk(chat.ChunkDelta{Role: r.role(), Content: &text}, nil, nil)}

	case api.EventToolCallStart:
		return []string{r.chunk(chat.ChunkDelta{
			Role: r.role(),
			ToolCalls: []chat.ChunkToolCall{{
				Index:    ev.Index,
				ID:       ev.ToolID,
				Type:     "function",
				Function: chat.ChunkFunctionCall{Name: ev.ToolName},
			}},
		}, nil, nil)}

	case api.EventToolCallArgDelta:
		return []string{r.chunk(chat.ChunkDelta{
			ToolCalls: []chat.ChunkToolCall{{
				Index:    ev.Index,
				Function: chat.ChunkFunctionCall{Arguments: ev.Text},
			}},
		}, nil, nil)}

	case api.EventFinish:
		r.done = true
		reason := string(ev.Reason)
		return []string{
			r.chunk(chat.ChunkDelta{}, &reason, ev.Usage),
			"data: [DONE]\n\n",
		}

	case api.EventError:
		r.done = true
		body, _ := json.Marshal(chat.ErrorResponse{Error: chat.ErrorBody{
			Message: ev.Err.Message,
			Type:    string(ev.Err.Kind),
		}})
		return []string{
			"data: " + string(body) + "\n\n",
			"data: [DONE]\n\n",
		}
	}
	return nil
}

// role returns "assistant" on the first rendered chunk, empty afterwards.
func (r *ChatRenderer) role() string {
	if r.roleSent {
		return ""
	}
	r.roleSent = true
	return string(api.RoleAssistant)
}

// chunk builds one data frame.
func (r *ChatRenderer) chunk(delta chat.ChunkDelta, finish *string, usage *api.Usage) string {
	body, _ := json.Marshal(chat.Chunk{
		ID:      r.id,
		Object:  "chat.completion.chunk",
		Created: r.created,
		Model:   r.model,
		Choices: []chat.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
		Usage:   usage,
	})
	return "data: " + string(body) + "\n\n"
}
