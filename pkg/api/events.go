package api

// StreamEventType identifies the type of a canonical streaming event.
type StreamEventType int

const (
	// EventTextDelta carries an incremental fragment of assistant text.
	EventTextDelta StreamEventType = iota
	// EventToolCallStart announces a new tool call with its index, id, and name.
	EventToolCallStart
	// EventToolCallArgDelta carries an argument fragment for the tool call at Index.
	EventToolCallArgDelta
	// EventFinish signals normal end of the stream with a finish reason.
	EventFinish
	// EventError signals a terminal stream failure.
	EventError
)

// FinishReason explains why the upstream stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// StreamEvent is the canonical streaming event, the pivot between the
// upstream wire formats and the caller-facing dialect renderings.
//
// Field usage by type:
//   - EventTextDelta: Text
//   - EventToolCallStart: Index, ToolID, ToolName
//   - EventToolCallArgDelta: Index, Text (the argument fragment)
//   - EventFinish: Reason, optionally Usage
//   - EventError: Err
type StreamEvent struct {
	Type     StreamEventType
	Text     string
	Index    int
	ToolID   string
	ToolName string
	Reason   FinishReason
	Usage    *Usage
	Err      *APIError
}
