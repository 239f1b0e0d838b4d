package provider

import (
	"context"

	"github.com/rhuss/vermittler/pkg/api"
)

// Adapter abstracts one vendor LLM backend. Each implementation serializes
// unified requests into its vendor's wire format and normalizes the
// vendor's responses and streams back into unified events.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Adapter interface {
	// Name returns the vendor identifier (e.g. "openai", "anthropic").
	Name() string

	// Capabilities returns what this backend supports.
	Capabilities() Capabilities

	// Stream performs streaming inference. The returned channel receives
	// unified events and is closed by the adapter when the stream ends.
	// Ordering rules: the stream terminates in exactly one done or error
	// event; tool call arguments are emitted only as complete JSON. A
	// cancelled context closes the channel without an error event.
	Stream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error)

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *api.Request) (*Completion, error)

	// Close releases adapter resources (HTTP clients, connections).
	Close() error
}

// Completion is the backend's aggregate non-streaming answer for one turn.
type Completion struct {
	Text         string           `json:"text"`
	Thinking     string           `json:"thinking,omitempty"`
	ToolCalls    []api.ToolCall   `json:"tool_calls,omitempty"`
	Usage        api.TokenUsage   `json:"usage"`
	FinishReason api.FinishReason `json:"finish_reason"`
}
