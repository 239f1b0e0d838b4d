package format

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// AnthropicTool is a tool definition in the Messages API format.
type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// AnthropicContentBlock is the content block union used by the Messages API.
// Tool calls arrive as tool_use blocks; results go back as tool_result
// blocks inside a user turn.
type AnthropicContentBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   any              `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Source    *AnthropicSource `json:"source,omitempty"`
}

// AnthropicSource carries image and document payloads, either inline
// base64 or by URL.
type AnthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// anthropicFormatter covers the Anthropic Messages tool format.
type anthropicFormatter struct{}

func (anthropicFormatter) Vendor() string { return "anthropic" }

// emptyObjectSchema is used when a declaration carries no input schema:
// the Messages API requires input_schema to be present.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

func (anthropicFormatter) TransformTools(decls []api.ToolDecl) any {
	if len(decls) == 0 {
		return nil
	}
	tools := make([]AnthropicTool, 0, len(decls))
	for _, d := range decls {
		schema := d.InputSchema
		if len(schema) == 0 {
			schema = emptyObjectSchema
		}
		tools = append(tools, AnthropicTool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}
	return tools
}

func (anthropicFormatter) ParseToolCalls(raw json.RawMessage) []api.ToolCall {
	var blocks []AnthropicContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	var calls []api.ToolCall
	for _, b := range blocks {
		if b.Type != "tool_use" {
			continue
		}
		id := b.ID
		if id == "" {
			id = api.NewCallID()
		}
		calls = append(calls, api.ToolCall{
			ID:   id,
			Name: b.Name,
			Args: string(b.Input),
		})
	}
	return calls
}

// FormatToolResults returns the tool_result blocks that must open the next
// user turn, in call order.
func (anthropicFormatter) FormatToolResults(results []api.ToolResult) any {
	blocks := make([]AnthropicContentBlock, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, AnthropicContentBlock{
			Type:      "tool_result",
			ToolUseID: r.CallID,
			Content:   r.Content,
			IsError:   r.IsError,
		})
	}
	return blocks
}

func (anthropicFormatter) IsToolStop(reason string) bool {
	return reason == "tool_use"
}

func (anthropicFormatter) MapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return api.FinishStop
	case "max_tokens":
		return api.FinishLength
	case "tool_use":
		return api.FinishToolCalls
	case "refusal":
		return api.FinishContentFilter
	default:
		return api.FinishUnknown
	}
}

func (anthropicFormatter) AssistantToolCallMessage(calls []api.ToolCall) api.Message {
	return assistantToolCallMessage(calls)
}

func (anthropicFormatter) ToolResultMessages(results []api.ToolResult) []api.Message {
	return toolResultMessages(results)
}
