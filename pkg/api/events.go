package api

// EventType identifies the type of a unified stream event.
type EventType string

// Message lifecycle events convey incremental assistant text.
const (
	EventMessageStart EventType = "message:start"
	EventMessageDelta EventType = "message:delta"
	EventMessageEnd   EventType = "message:end"
)

// Thinking lifecycle events convey incremental reasoning content for
// models that expose it.
const (
	EventThinkingStart EventType = "thinking:start"
	EventThinkingDelta EventType = "thinking:delta"
	EventThinkingEnd   EventType = "thinking:end"
)

// Action lifecycle events convey tool calls. For each call id, exactly one
// action:start carrying the tool name is followed by exactly one action:args
// carrying the fully assembled argument JSON, then one action:end. Adapters
// that receive argument text in fragments buffer internally; partial JSON
// never reaches a consumer.
const (
	EventActionStart EventType = "action:start"
	EventActionArgs  EventType = "action:args"
	EventActionEnd   EventType = "action:end"
)

// Loop bookkeeping and terminal events.
const (
	// EventToolCalls lists client-deferred tool calls together with the
	// synthesized assistant message, immediately before a requires-action done.
	EventToolCalls EventType = "tool_calls"

	// EventLoopIteration marks the start of each model turn in the agent loop.
	EventLoopIteration EventType = "loop:iteration"

	// EventDone terminates a stream normally. EventError terminates it with
	// a failure. Every stream ends in exactly one of the two.
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// StreamEvent is one discrete event in the unified streaming protocol.
// Fields are populated according to Type; unused fields are omitted from
// JSON so each event serializes as one compact object.
type StreamEvent struct {
	Type EventType `json:"type"`

	// Delta carries incremental text for message:delta and thinking:delta.
	Delta string `json:"delta,omitempty"`

	// CallID, Name, and Args describe action events. Args is set only on
	// action:args and always holds complete JSON.
	CallID string `json:"call_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Args   string `json:"args,omitempty"`

	// ToolCalls and Message are set on tool_calls events.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Message   *Message   `json:"message,omitempty"`

	// Iteration is set on loop:iteration events (first model turn is 1).
	Iteration int `json:"iteration,omitempty"`

	// Terminal payload for done events.
	RequiresAction bool      `json:"requires_action,omitempty"`
	Messages       []Message `json:"messages,omitempty"`

	// Usage is populated on adapter-emitted done events and on the loop's
	// finish accounting. It never crosses the external transport boundary;
	// the transport layer strips it before serialization.
	Usage *TokenUsage `json:"usage,omitempty"`

	// FinishReason is set on adapter-emitted done events.
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// Error is set on error events.
	Error *APIError `json:"error,omitempty"`
}

// Terminal reports whether the event ends a stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// DoneEvent builds a terminal done event.
func DoneEvent(requiresAction bool, messages []Message) StreamEvent {
	return StreamEvent{
		Type:           EventDone,
		RequiresAction: requiresAction,
		Messages:       messages,
	}
}

// ErrorEvent builds a terminal error event from a structured error.
func ErrorEvent(err *APIError) StreamEvent {
	return StreamEvent{Type: EventError, Error: err}
}
