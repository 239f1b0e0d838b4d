package transport

import (
	"context"

	"github.com/rhuss/vermittler/pkg/api"
)

// ChatRequest is the external request shape: the inference request plus
// transport-level settings.
type ChatRequest struct {
	api.Request

	// Stream selects streaming event output over a single aggregate result.
	Stream bool `json:"stream,omitempty"`

	// ThreadID identifies the conversation for tool execution context.
	ThreadID string `json:"thread_id,omitempty"`

	// Headers carries the originating request headers into tool execution.
	// Filled by the transport binding, never decoded from the body.
	Headers map[string]string `json:"-"`
}

// ChatHandler processes one conversation request, writing streamed events
// or the aggregate result to the EventWriter.
type ChatHandler interface {
	Chat(ctx context.Context, req *ChatRequest, w EventWriter) error
}

// ChatHandlerFunc adapts an ordinary function to a ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *ChatRequest, w EventWriter) error

// Chat calls f(ctx, req, w).
func (f ChatHandlerFunc) Chat(ctx context.Context, req *ChatRequest, w EventWriter) error {
	return f(ctx, req, w)
}

// EventWriter abstracts streaming and aggregate output for the handler.
// WriteEvent and WriteResult are mutually exclusive on one writer:
// streaming requests produce a sequence of WriteEvent calls ending in a
// terminal event, non-streaming requests produce a single WriteResult.
type EventWriter interface {
	// WriteEvent sends one unified stream event. Returns an error when
	// called after a terminal event or after WriteResult.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// WriteResult sends the aggregate result of a non-streaming request.
	// Returns an error when streaming has already started.
	WriteResult(ctx context.Context, res *api.Result) error

	// Flush pushes buffered data to the client.
	Flush() error
}
