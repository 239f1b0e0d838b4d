package openaicompat

import (
	"fmt"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/format"
)

// chatFormat is the shared Chat Completions tool formatter.
var chatFormat, _ = format.Lookup("openai")

// buildRequest serializes a unified request into the Chat Completions
// format. A non-empty System field becomes the leading system message.
func buildRequest(req *api.Request, stream bool) ChatRequest {
	cr := ChatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Stream:      stream,
	}

	// Ask for usage in the final stream chunk.
	if stream {
		cr.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	if tools, ok := chatFormat.TransformTools(req.Tools).([]format.OpenAITool); ok {
		cr.Tools = tools
	}

	if req.System != "" {
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    "system",
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, buildMessage(m))
	}

	return cr
}

// buildMessage converts one unified message into the wire form.
func buildMessage(m api.Message) ChatMessage {
	cm := ChatMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}

	if len(m.Parts) > 0 {
		cm.Content = buildContentParts(m.Parts)
	}

	for _, tc := range m.ToolCalls {
		cm.ToolCalls = append(cm.ToolCalls, format.OpenAIToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: format.OpenAIFunctionCall{
				Name:      tc.Name,
				Arguments: tc.Args,
			},
		})
	}

	// An assistant message whose only payload is tool calls sends a null
	// content field.
	if cm.Content == "" && len(cm.ToolCalls) > 0 {
		cm.Content = nil
	}

	return cm
}

// buildContentParts converts multimodal parts into the content array form.
// Images ride as remote URLs or inline base64 data URLs.
func buildContentParts(parts []api.ContentPart) []ChatContentPart {
	out := make([]ChatContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case api.PartText:
			out = append(out, ChatContentPart{Type: "text", Text: p.Text})
		case api.PartImage:
			url := p.URL
			if url == "" && p.Data != "" {
				url = fmt.Sprintf("data:%s;base64,%s", p.MediaType, p.Data)
			}
			out = append(out, ChatContentPart{
				Type:     "image_url",
				ImageURL: &ChatImageURL{URL: url},
			})
		}
	}
	return out
}

// contentString extracts plain text from a response content pointer.
func contentString(content *string) string {
	if content == nil {
		return ""
	}
	return *content
}
