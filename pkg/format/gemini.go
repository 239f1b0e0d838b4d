package format

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// GeminiTool wraps function declarations for the generateContent API.
type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDecl `json:"functionDeclarations"`
}

// GeminiFunctionDecl is one function declaration.
type GeminiFunctionDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// GeminiPart is the part union used in contents. Function calls arrive as
// functionCall parts with already-parsed argument objects; results go back
// as functionResponse parts.
type GeminiPart struct {
	Text             string                  `json:"text,omitempty"`
	Thought          bool                    `json:"thought,omitempty"`
	InlineData       *GeminiBlob             `json:"inlineData,omitempty"`
	FileData         *GeminiFileData         `json:"fileData,omitempty"`
	FunctionCall     *GeminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *GeminiFunctionResponse `json:"functionResponse,omitempty"`
}

// GeminiBlob is inline base64 media.
type GeminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiFileData references remote media by URI.
type GeminiFileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// GeminiFunctionCall holds a function name and its argument object.
type GeminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// GeminiFunctionResponse carries a tool result back to the model.
type GeminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// geminiFormatter covers the native Gemini generateContent tool format.
type geminiFormatter struct{}

func (geminiFormatter) Vendor() string { return "gemini" }

func (geminiFormatter) TransformTools(decls []api.ToolDecl) any {
	if len(decls) == 0 {
		return nil
	}
	fns := make([]GeminiFunctionDecl, 0, len(decls))
	for _, d := range decls {
		fns = append(fns, GeminiFunctionDecl{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.InputSchema,
		})
	}
	return []GeminiTool{{FunctionDeclarations: fns}}
}

// ParseToolCalls extracts functionCall parts. Gemini does not assign call
// ids, so every call gets a synthesized one.
func (geminiFormatter) ParseToolCalls(raw json.RawMessage) []api.ToolCall {
	var parts []GeminiPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil
	}
	var calls []api.ToolCall
	for _, p := range parts {
		if p.FunctionCall == nil {
			continue
		}
		args := string(p.FunctionCall.Args)
		if args == "" {
			args = "{}"
		}
		calls = append(calls, api.ToolCall{
			ID:   api.NewCallID(),
			Name: p.FunctionCall.Name,
			Args: args,
		})
	}
	return calls
}

// FormatToolResults builds functionResponse parts. Gemini matches results
// by function name, not call id; the result content rides in a "result"
// field of the response object.
func (geminiFormatter) FormatToolResults(results []api.ToolResult) any {
	parts := make([]GeminiPart, 0, len(results))
	for _, r := range results {
		response := map[string]any{"result": r.Content}
		if r.IsError {
			response = map[string]any{"error": r.Content}
		}
		parts = append(parts, GeminiPart{
			FunctionResponse: &GeminiFunctionResponse{
				Name:     r.Name,
				Response: response,
			},
		})
	}
	return parts
}

// IsToolStop is always false for Gemini: tool-requesting turns finish with
// reason STOP, and tool intent is signalled by functionCall parts instead.
func (geminiFormatter) IsToolStop(string) bool { return false }

func (geminiFormatter) MapFinishReason(reason string) api.FinishReason {
	switch reason {
	case "STOP":
		return api.FinishStop
	case "MAX_TOKENS":
		return api.FinishLength
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return api.FinishContentFilter
	default:
		return api.FinishUnknown
	}
}

func (geminiFormatter) AssistantToolCallMessage(calls []api.ToolCall) api.Message {
	return assistantToolCallMessage(calls)
}

func (geminiFormatter) ToolResultMessages(results []api.ToolResult) []api.Message {
	return toolResultMessages(results)
}
