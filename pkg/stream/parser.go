package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// maxLineSize bounds a single logical line; upstream events are small but
// tool arguments can run long.
const maxLineSize = 1 << 20

// upstreamEvent is the union of the upstream's streaming payload shapes: the
// Chat Completions chunk (choices/delta) and the Responses event
// (type/delta/item). Only the fields relevant to canonicalization are
// declared; everything else is ignored.
type upstreamEvent struct {
	// Responses shape.
	Type        string          `json:"type"`
	Delta       json.RawMessage `json:"delta"`
	Index       int             `json:"index"`
	OutputIndex *int            `json:"output_index"`
	Item        *upstreamItem   `json:"item"`
	Response    *upstreamDone   `json:"response"`

	// Chat Completions chunk shape.
	Choices []upstreamChoice `json:"choices"`
	Usage   *upstreamUsage   `json:"usage"`
}

type upstreamItem struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	CallID string `json:"call_id"`
	Name   string `json:"name"`
}

type upstreamDone struct {
	Usage *upstreamUsage `json:"usage"`
}

type upstreamChoice struct {
	Delta        upstreamDelta `json:"delta"`
	FinishReason *string       `json:"finish_reason"`
}

type upstreamDelta struct {
	Content   *string            `json:"content"`
	ToolCalls []upstreamToolCall `json:"tool_calls"`
}

type upstreamToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// upstreamUsage accepts both token accounting vocabularies.
type upstreamUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
}

func (u *upstreamUsage) canonical() *api.Usage {
	out := &api.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if out.PromptTokens == 0 {
		out.PromptTokens = u.InputTokens
	}
	if out.CompletionTokens == 0 {
		out.CompletionTokens = u.OutputTokens
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

// blockDelta is the nested delta shape inside content_block_delta events.
type blockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	PartialJSON string `json:"partial_json"`
}

// parseState accumulates per-stream facts needed for the terminal event.
type parseState struct {
	started    map[int]bool
	reason     api.FinishReason
	usage      *api.Usage
	toolSeen   bool
	terminated bool
}

// Parse reads the upstream event stream from body and sends canonical events
// on ch. The channel is not closed here; the caller owns it. Exactly one
// terminal event is sent: a Finish on the end-of-stream sentinel or a clean
// EOF, or an Error when the connection fails mid-stream.
func Parse(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	state := &parseState{started: make(map[int]bool)}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			finish(ctx, state, ch)
			return
		}

		var ev upstreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			slog.Warn("skipping malformed stream line",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}
		translate(ctx, &ev, state, ch)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		if !state.terminated {
			state.terminated = true
			send(ctx, ch, api.StreamEvent{
				Type: api.EventError,
				Err:  api.NewUpstreamError("stream read error: " + err.Error()),
			})
		}
		return
	}

	// Clean EOF without the sentinel still terminates the stream normally.
	finish(ctx, state, ch)
}

// send delivers one event unless the context is canceled first. Every send
// goes through here so a consumer that stops reading after cancellation can
// never wedge the parser on a full channel.
func send(ctx context.Context, ch chan<- api.StreamEvent, ev api.StreamEvent) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

// finish emits the single terminal Finish event.
func finish(ctx context.Context, state *parseState, ch chan<- api.StreamEvent) {
	if state.terminated {
		return
	}
	state.terminated = true

	reason := state.reason
	if reason == "" {
		if state.toolSeen {
			reason = api.FinishToolCalls
		} else {
			reason = api.FinishStop
		}
	}
	send(ctx, ch, api.StreamEvent{Type: api.EventFinish, Reason: reason, Usage: state.usage})
}

// translate normalizes one upstream event into canonical events.
func translate(ctx context.Context, ev *upstreamEvent, state *parseState, ch chan<- api.StreamEvent) {
	if len(ev.Choices) > 0 {
		translateChunk(ctx, ev, state, ch)
		return
	}
	if ev.Usage != nil {
		state.usage = ev.Usage.canonical()
	}

	switch ev.Type {
	case "response.output_text.delta":
		// Flat delta-string shape.
		var text string
		if err := json.Unmarshal(ev.Delta, &text); err == nil && text != "" {
			send(ctx, ch, api.StreamEvent{Type: api.EventTextDelta, Text: text})
		}

	case "content_block_delta":
		// Nested {delta:{type,text}} shape.
		var delta blockDelta
		if err := json.Unmarshal(ev.Delta, &delta); err != nil {
			return
		}
		switch delta.Type {
		case "text_delta":
			if delta.Text != "" {
				send(ctx, ch, api.StreamEvent{Type: api.EventTextDelta, Text: delta.Text})
			}
		case "input_json_delta":
			if delta.PartialJSON != "" {
				state.toolSeen = true
				send(ctx, ch, api.StreamEvent{Type: api.EventToolCallArgDelta, Index: ev.Index, Text: delta.PartialJSON})
			}
		}

	case "response.output_item.added":
		if ev.Item == nil || ev.Item.Type != "function_call" {
			return
		}
		index := ev.Index
		if ev.OutputIndex != nil {
			index = *ev.OutputIndex
		}
		id := ev.Item.CallID
		if id == "" {
			id = ev.Item.ID
		}
		state.toolSeen = true
		state.started[index] = true
		send(ctx, ch, api.StreamEvent{
			Type:     api.EventToolCallStart,
			Index:    index,
			ToolID:   id,
			ToolName: ev.Item.Name,
		})

	case "response.function_call_arguments.delta":
		var fragment string
		if err := json.Unmarshal(ev.Delta, &fragment); err != nil || fragment == "" {
			return
		}
		index := ev.Index
		if ev.OutputIndex != nil {
			index = *ev.OutputIndex
		}
		state.toolSeen = true
		send(ctx, ch, api.StreamEvent{Type: api.EventToolCallArgDelta, Index: index, Text: fragment})

	case "response.completed":
		if ev.Response != nil && ev.Response.Usage != nil {
			state.usage = ev.Response.Usage.canonical()
		}
	}
}

// translateChunk normalizes a Chat Completions chunk. Tool-call fragments
// carry an index used as the correlation key; the first fragment for an index
// opens the call, later ones extend its arguments.
func translateChunk(ctx context.Context, ev *upstreamEvent, state *parseState, ch chan<- api.StreamEvent) {
	if ev.Usage != nil {
		state.usage = ev.Usage.canonical()
	}

	choice := ev.Choices[0]
	delta := choice.Delta

	for _, tc := range delta.ToolCalls {
		state.toolSeen = true
		if !state.started[tc.Index] {
			state.started[tc.Index] = true
			send(ctx, ch, api.StreamEvent{
				Type:     api.EventToolCallStart,
				Index:    tc.Index,
				ToolID:   tc.ID,
				ToolName: tc.Function.Name,
			})
		}
		if tc.Function.Arguments != "" {
			send(ctx, ch, api.StreamEvent{
				Type:  api.EventToolCallArgDelta,
				Index: tc.Index,
				Text:  tc.Function.Arguments,
			})
		}
	}

	if delta.Content != nil && *delta.Content != "" {
		send(ctx, ch, api.StreamEvent{Type: api.EventTextDelta, Text: *delta.Content})
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		state.reason = api.FinishReason(*choice.FinishReason)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
