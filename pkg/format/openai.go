package format

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// OpenAITool is a tool definition in the Chat Completions format.
type OpenAITool struct {
	Type     string            `json:"type"`
	Function OpenAIFunctionDef `json:"function"`
}

// OpenAIFunctionDef holds a function definition for tool use.
type OpenAIFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// OpenAIToolCall is a tool call entry in an assistant message.
type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

// OpenAIFunctionCall holds the function name and argument JSON text.
type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// OpenAIToolResult is one tool-role message carrying an execution result.
type OpenAIToolResult struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
}

// openAIFormatter covers the Chat Completions tool format shared by
// OpenAI, xAI, Azure OpenAI, Ollama, and Google's compatible endpoint.
type openAIFormatter struct{}

func (openAIFormatter) Vendor() string { return "openai" }

func (openAIFormatter) TransformTools(decls []api.ToolDecl) any {
	if len(decls) == 0 {
		return nil
	}
	tools := make([]OpenAITool, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, OpenAITool{
			Type: "function",
			Function: OpenAIFunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return tools
}

func (openAIFormatter) ParseToolCalls(raw json.RawMessage) []api.ToolCall {
	var wire []OpenAIToolCall
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil
	}
	var calls []api.ToolCall
	for _, tc := range wire {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		calls = append(calls, api.ToolCall{
			ID:   id,
			Name: tc.Function.Name,
			Args: tc.Function.Arguments,
		})
	}
	return calls
}

func (openAIFormatter) FormatToolResults(results []api.ToolResult) any {
	msgs := make([]OpenAIToolResult, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, OpenAIToolResult{
			Role:       "tool",
			Content:    r.Content,
			ToolCallID: r.CallID,
		})
	}
	return msgs
}

func (openAIFormatter) IsToolStop(reason string) bool {
	return reason == "tool_calls" || reason == "function_call"
}

func (openAIFormatter) MapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "stop":
		return api.FinishStop
	case "length":
		return api.FinishLength
	case "tool_calls", "function_call":
		return api.FinishToolCalls
	case "content_filter":
		return api.FinishContentFilter
	default:
		return api.FinishUnknown
	}
}

func (openAIFormatter) AssistantToolCallMessage(calls []api.ToolCall) api.Message {
	return assistantToolCallMessage(calls)
}

func (openAIFormatter) ToolResultMessages(results []api.ToolResult) []api.Message {
	return toolResultMessages(results)
}
