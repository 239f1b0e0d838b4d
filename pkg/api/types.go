package api

import "encoding/json"

// ---------------------------------------------------------------------------
// Messages and content
// ---------------------------------------------------------------------------

// Role identifies the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPart represents one part of multimodal message content.
// The Type field indicates the kind: text, image, or document.
// Images carry either a remote URL or inline base64 data with a media type.
type ContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Content part types.
const (
	PartText     = "text"
	PartImage    = "image"
	PartDocument = "document"
)

// Message is one turn in a conversation. Text-only turns use Content;
// multimodal turns use Parts (Content is ignored when Parts is non-empty).
// ToolCalls is set on assistant turns that request tool invocations.
// ToolCallID is set on tool turns and must reference a ToolCall.ID from an
// earlier assistant turn in the same conversation.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`

	// IsError marks a tool turn as a failed execution. Vendors that
	// distinguish error results on the wire serialize it.
	IsError bool `json:"is_error,omitempty"`
}

// Text returns the textual content of the message: Content for text-only
// messages, or the concatenated text parts for multimodal messages.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var s string
	for _, p := range m.Parts {
		if p.Type == PartText {
			s += p.Text
		}
	}
	return s
}

// UserMessage builds a text-only user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds a text-only assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolMessage builds a tool result message referencing a prior tool call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Content: content}
}

// ---------------------------------------------------------------------------
// Tool calls and declarations
// ---------------------------------------------------------------------------

// ToolCall is a model-requested invocation of a named tool. Args holds the
// JSON-encoded argument object as assembled by the adapter; it is always
// complete JSON, never a fragment.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ArgsMap parses the call arguments into a map. Malformed or empty argument
// JSON resolves to an empty map, never an error: a model that emits broken
// JSON still gets its tool called, just with no arguments.
func (c ToolCall) ArgsMap() map[string]any {
	if c.Args == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(c.Args), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// ToolLocation says where a tool executes.
type ToolLocation string

const (
	// ToolLocationServer marks a tool executed in-process by a registered
	// handler during the agent loop.
	ToolLocationServer ToolLocation = "server"

	// ToolLocationClient marks a tool whose execution is deferred to the
	// external caller via a requires-action terminal event.
	ToolLocationClient ToolLocation = "client"
)

// ToolDecl declares a tool to the model: name, description, and the
// object/properties/required subset of JSON Schema for its input.
// Location defaults to client when empty.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Location    ToolLocation    `json:"location,omitempty"`
}

// ToolResult is the unified shape of a completed tool execution as seen by
// adapters and the protocol. Content is what the model reads; Parts carries
// multimodal payloads (e.g. images) that are always forwarded regardless of
// disclosure policy.
type ToolResult struct {
	CallID  string        `json:"call_id"`
	Name    string        `json:"name,omitempty"`
	Content string        `json:"content"`
	Parts   []ContentPart `json:"parts,omitempty"`
	IsError bool          `json:"is_error,omitempty"`
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// Request is the provider-facing inference request: the full ordered
// conversation, the merged tool set, and sampling overrides. Adapters
// serialize it into their vendor's wire format.
type Request struct {
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	System      string         `json:"system,omitempty"`
	Tools       []ToolDecl     `json:"tools,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ---------------------------------------------------------------------------
// Finish reasons and usage
// ---------------------------------------------------------------------------

// FinishReason is the normalized reason a model turn stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishContentFilter FinishReason = "content-filter"
	FinishUnknown       FinishReason = "unknown"
)

// TokenUsage holds token counts for one or more model turns.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another turn's usage into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
