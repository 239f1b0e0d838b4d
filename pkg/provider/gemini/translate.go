package gemini

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/format"
)

// geminiFormat is the shared generateContent tool formatter.
var geminiFormat, _ = format.Lookup("gemini")

// buildRequest serializes a unified request into the generateContent
// format.
func buildRequest(req *api.Request) generateRequest {
	gr := generateRequest{}

	if req.System != "" {
		gr.SystemInstruction = &content{
			Parts: []format.GeminiPart{{Text: req.System}},
		}
	}

	if tools, ok := geminiFormat.TransformTools(req.Tools).([]format.GeminiTool); ok {
		gr.Tools = tools
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		gr.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	gr.Contents = buildContents(req.Messages)
	return gr
}

// buildContents rebuilds the conversation as user/model contents. Gemini
// matches tool results by function name, not call id, so the serializer
// keeps a call-id to name map from earlier assistant turns. Tool results
// become functionResponse parts inside a user turn. System messages in
// the history ride as plain user text since contents have no system role.
func buildContents(messages []api.Message) []content {
	callNames := make(map[string]string)
	var contents []content

	appendContent := func(role string, parts []format.GeminiPart) {
		if len(parts) == 0 {
			return
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			return
		}
		contents = append(contents, content{Role: role, Parts: parts})
	}

	for _, m := range messages {
		switch m.Role {
		case api.RoleSystem, api.RoleUser:
			appendContent("user", messageParts(m))

		case api.RoleAssistant:
			parts := messageParts(m)
			for _, tc := range m.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, format.GeminiPart{
					FunctionCall: &format.GeminiFunctionCall{
						Name: tc.Name,
						Args: callArgs(tc.Args),
					},
				})
			}
			appendContent("model", parts)

		case api.RoleTool:
			name := callNames[m.ToolCallID]
			response := map[string]any{"result": m.Content}
			if m.IsError {
				response = map[string]any{"error": m.Content}
			}
			parts := []format.GeminiPart{{
				FunctionResponse: &format.GeminiFunctionResponse{
					Name:     name,
					Response: response,
				},
			}}
			// Multimodal result parts ride alongside the functionResponse.
			appendContent("user", append(parts, convertParts(m.Parts)...))
		}
	}

	return contents
}

// messageParts converts a message's text or multimodal parts.
func messageParts(m api.Message) []format.GeminiPart {
	if len(m.Parts) == 0 {
		if m.Content == "" {
			return nil
		}
		return []format.GeminiPart{{Text: m.Content}}
	}
	return convertParts(m.Parts)
}

func convertParts(cparts []api.ContentPart) []format.GeminiPart {
	var parts []format.GeminiPart
	for _, p := range cparts {
		switch p.Type {
		case api.PartText:
			parts = append(parts, format.GeminiPart{Text: p.Text})
		case api.PartImage, api.PartDocument:
			if p.URL != "" {
				parts = append(parts, format.GeminiPart{
					FileData: &format.GeminiFileData{
						MIMEType: p.MediaType,
						FileURI:  p.URL,
					},
				})
			} else {
				parts = append(parts, format.GeminiPart{
					InlineData: &format.GeminiBlob{
						MIMEType: p.MediaType,
						Data:     p.Data,
					},
				})
			}
		}
	}
	return parts
}

// callArgs encodes an args string as the functionCall args object.
func callArgs(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}
