package tools

import (
	"context"
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// ResponsePolicy controls how much of a server tool's result is disclosed
// to the model when the result message is built.
type ResponsePolicy string

const (
	// ResponseNone sends a minimal acknowledgment only.
	ResponseNone ResponsePolicy = "none"

	// ResponseBrief sends the result's context string.
	ResponseBrief ResponsePolicy = "brief"

	// ResponseFull sends the context string plus the complete structured
	// payload as JSON.
	ResponseFull ResponsePolicy = "full"
)

// Handler executes one server tool call. The arguments have already been
// resolved from the call's JSON (malformed JSON arrives as an empty map).
// An error return becomes a failed tool result, never a stream error.
type Handler func(ctx context.Context, tc Context, args map[string]any) (*Result, error)

// Context carries per-call execution context into a handler.
type Context struct {
	// ThreadID identifies the conversation this call belongs to.
	ThreadID string

	// Headers are the request headers of the originating external call.
	Headers map[string]string

	// Data is free-form context produced by the tool's ContextFn.
	Data map[string]any
}

// Definition describes one tool: its schema as the model sees it, where it
// executes, and (for server tools) how.
type Definition struct {
	// Name is the unique tool name.
	Name string

	// Description tells the model what the tool does.
	Description string

	// InputSchema is the JSON Schema for the tool's arguments
	// (object/properties/required subset).
	InputSchema json.RawMessage

	// Location says where the tool executes. Server tools require a
	// Handler; anything else is deferred to the client.
	Location api.ToolLocation

	// Handler runs the tool. Required iff Location is server.
	Handler Handler

	// Response is the AI-response policy applied to this tool's results.
	// Empty defaults to full disclosure.
	Response ResponsePolicy

	// ContextFn, when set, derives the free-form context data handed to
	// the handler from the originating request.
	ContextFn func(req *api.Request) map[string]any
}

// Decl returns the declaration form given to adapters.
func (d Definition) Decl() api.ToolDecl {
	return api.ToolDecl{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
		Location:    d.Location,
	}
}

// Directive is a per-result override of the tool's response policy,
// attached explicitly by the handler.
type Directive struct {
	// Response overrides the tool's configured policy for this result.
	Response ResponsePolicy
}

// Result is the outcome of one server tool execution.
type Result struct {
	// CallID matches the originating tool call.
	CallID string

	// Content is the context string shown to the model under the brief
	// and full policies.
	Content string

	// Data is the structured payload included (as JSON) under the full
	// policy.
	Data any

	// Parts carries multimodal output. Parts bypass the response policy
	// and are always forwarded.
	Parts []api.ContentPart

	// IsError marks the result as a failure the model may react to.
	IsError bool

	// Directive, when set, overrides the tool's response policy for this
	// result only.
	Directive *Directive
}
