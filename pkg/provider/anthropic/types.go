package anthropic

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/format"
)

// messagesRequest is the request body for /v1/messages.
type messagesRequest struct {
	Model         string                 `json:"model"`
	MaxTokens     int                    `json:"max_tokens"`
	System        string                 `json:"system,omitempty"`
	Messages      []messageParam         `json:"messages"`
	Tools         []format.AnthropicTool `json:"tools,omitempty"`
	Temperature   *float64               `json:"temperature,omitempty"`
	TopP          *float64               `json:"top_p,omitempty"`
	StopSequences []string               `json:"stop_sequences,omitempty"`
	Stream        bool                   `json:"stream,omitempty"`
}

// messageParam is one turn: role user or assistant, content as blocks.
type messageParam struct {
	Role    string                         `json:"role"`
	Content []format.AnthropicContentBlock `json:"content"`
}

// messagesResponse is the non-streaming response body.
type messagesResponse struct {
	ID         string                         `json:"id"`
	Model      string                         `json:"model"`
	Content    []format.AnthropicContentBlock `json:"content"`
	StopReason string                         `json:"stop_reason"`
	Usage      *usagePayload                  `json:"usage,omitempty"`
}

// usagePayload holds Anthropic token counts.
type usagePayload struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent is one SSE event payload. Type discriminates; the remaining
// fields are populated per type.
type streamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *struct {
		Usage *usagePayload `json:"usage,omitempty"`
	} `json:"message,omitempty"`

	// content_block_start
	Index        int `json:"index"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"content_block,omitempty"`

	// content_block_delta
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		Thinking    string `json:"thinking,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`

	// message_delta
	Usage *usagePayload `json:"usage,omitempty"`

	// error
	Error *errorPayload `json:"error,omitempty"`
}

// errorPayload is the Anthropic error envelope body.
type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorResponse is the HTTP error body.
type errorResponse struct {
	Type  string       `json:"type"`
	Error errorPayload `json:"error"`
}

// rawArgs encodes an args string as the tool_use input object. Anything
// that is not valid JSON resolves to an empty object so the request body
// stays well-formed.
func rawArgs(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}
