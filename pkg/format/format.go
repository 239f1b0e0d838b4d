package format

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// Formatter converts between the unified tool shapes and one vendor
// family's wire representation. Implementations are stateless; all
// transforms are pure and idempotent.
type Formatter interface {
	// Vendor returns the canonical vendor family name.
	Vendor() string

	// TransformTools converts unified tool declarations into the vendor's
	// tool schema payload.
	TransformTools(decls []api.ToolDecl) any

	// ParseToolCalls extracts unified tool calls from the vendor's response
	// payload (the tool_calls array, content block list, or parts list,
	// depending on the family). Calls without a vendor-assigned id get a
	// synthesized one. Malformed argument JSON is preserved as-is; argument
	// resolution to {} happens at ArgsMap time.
	ParseToolCalls(raw json.RawMessage) []api.ToolCall

	// FormatToolResults converts unified tool results into the vendor's
	// tool-result payload for the next request.
	FormatToolResults(results []api.ToolResult) any

	// IsToolStop reports whether the vendor stop reason signals that the
	// turn ended to request tool execution.
	IsToolStop(vendorReason string) bool

	// MapFinishReason normalizes the vendor stop reason into the closed
	// unified set.
	MapFinishReason(vendorReason string) api.FinishReason

	// AssistantToolCallMessage builds the assistant history message that
	// records the model's tool calls for the next turn.
	AssistantToolCallMessage(calls []api.ToolCall) api.Message

	// ToolResultMessages builds the tool history messages recording the
	// execution results, in call order.
	ToolResultMessages(results []api.ToolResult) []api.Message
}

// formatters is the static registry of vendor families.
var formatters = map[string]Formatter{
	"openai":    openAIFormatter{},
	"anthropic": anthropicFormatter{},
	"gemini":    geminiFormatter{},
}

// aliases maps OpenAI-compatible vendors onto the shared openai formatter.
var aliases = map[string]string{
	"xai":           "openai",
	"azure":         "openai",
	"ollama":        "openai",
	"google-openai": "openai",
}

// Lookup returns the formatter for the given vendor name, resolving
// OpenAI-compatible aliases.
func Lookup(vendor string) (Formatter, bool) {
	if canonical, ok := aliases[vendor]; ok {
		vendor = canonical
	}
	f, ok := formatters[vendor]
	return f, ok
}

// Vendors returns the canonical vendor family names.
func Vendors() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	return names
}

// assistantToolCallMessage is the shared history builder: the unified
// history form is vendor-independent; per-family packing happens during
// adapter serialization.
func assistantToolCallMessage(calls []api.ToolCall) api.Message {
	return api.Message{
		Role:      api.RoleAssistant,
		ToolCalls: append([]api.ToolCall(nil), calls...),
	}
}

// toolResultMessages builds one tool message per result, in call order.
func toolResultMessages(results []api.ToolResult) []api.Message {
	msgs := make([]api.Message, 0, len(results))
	for _, r := range results {
		msgs = append(msgs, api.Message{
			Role:       api.RoleTool,
			ToolCallID: r.CallID,
			Content:    r.Content,
			Parts:      r.Parts,
			IsError:    r.IsError,
		})
	}
	return msgs
}
