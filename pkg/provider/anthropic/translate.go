package anthropic

import (
	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/format"
)

// anthropicFormat is the shared Messages tool formatter.
var anthropicFormat, _ = format.Lookup("anthropic")

// defaultMaxTokens applies when the request leaves MaxTokens unset; the
// Messages API requires the field.
const defaultMaxTokens = 4096

// buildRequest serializes a unified request into the Messages format.
func buildRequest(req *api.Request, stream bool) messagesRequest {
	mr := messagesRequest{
		Model:         req.Model,
		MaxTokens:     defaultMaxTokens,
		System:        req.System,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        stream,
	}
	if req.MaxTokens != nil {
		mr.MaxTokens = *req.MaxTokens
	}

	if tools, ok := anthropicFormat.TransformTools(req.Tools).([]format.AnthropicTool); ok {
		mr.Tools = tools
	}

	mr.Messages = buildTurns(req.Messages, &mr.System)
	return mr
}

// buildTurns rebuilds the conversation as strictly alternating user and
// assistant turns. Pending tool results are buffered and flushed as the
// opening blocks of the next user turn, immediately before the following
// assistant turn; the API rejects histories that interleave them anywhere
// else. System-role messages fold into the request-level system prompt.
func buildTurns(messages []api.Message, system *string) []messageParam {
	var turns []messageParam
	var pending []format.AnthropicContentBlock

	flushPending := func() {
		if len(pending) == 0 {
			return
		}
		turns = append(turns, messageParam{Role: "user", Content: pending})
		pending = nil
	}

	appendTurn := func(role string, blocks []format.AnthropicContentBlock) {
		if len(blocks) == 0 {
			return
		}
		// Merge consecutive same-role turns to satisfy alternation.
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content = append(turns[n-1].Content, blocks...)
			return
		}
		turns = append(turns, messageParam{Role: role, Content: blocks})
	}

	for _, m := range messages {
		switch m.Role {
		case api.RoleSystem:
			if *system != "" {
				*system += "\n"
			}
			*system += m.Text()

		case api.RoleUser:
			// Tool results open this user turn.
			blocks := pending
			pending = nil
			blocks = append(blocks, contentBlocks(m)...)
			appendTurn("user", blocks)

		case api.RoleAssistant:
			flushPending()
			blocks := contentBlocks(m)
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, format.AnthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: rawArgs(tc.Args),
				})
			}
			appendTurn("assistant", blocks)

		case api.RoleTool:
			pending = append(pending, toolResultBlock(m))
		}
	}

	flushPending()
	return turns
}

// toolResultBlock packs a tool message into a tool_result block. Text-only
// results stay a plain string; multimodal result parts ride inside the
// block as a content array, after the text.
func toolResultBlock(m api.Message) format.AnthropicContentBlock {
	block := format.AnthropicContentBlock{
		Type:      "tool_result",
		ToolUseID: m.ToolCallID,
		IsError:   m.IsError,
	}
	if len(m.Parts) == 0 {
		block.Content = m.Content
		return block
	}

	var blocks []format.AnthropicContentBlock
	if m.Content != "" {
		blocks = append(blocks, format.AnthropicContentBlock{Type: "text", Text: m.Content})
	}
	block.Content = append(blocks, partBlocks(m.Parts)...)
	return block
}

// contentBlocks converts a message's text or multimodal parts into blocks.
func contentBlocks(m api.Message) []format.AnthropicContentBlock {
	if len(m.Parts) == 0 {
		if m.Content == "" {
			return nil
		}
		return []format.AnthropicContentBlock{{Type: "text", Text: m.Content}}
	}
	return partBlocks(m.Parts)
}

func partBlocks(parts []api.ContentPart) []format.AnthropicContentBlock {
	var blocks []format.AnthropicContentBlock
	for _, p := range parts {
		switch p.Type {
		case api.PartText:
			blocks = append(blocks, format.AnthropicContentBlock{Type: "text", Text: p.Text})
		case api.PartImage:
			blocks = append(blocks, imageBlock(p))
		case api.PartDocument:
			blocks = append(blocks, documentBlock(p))
		}
	}
	return blocks
}

// imageBlock builds an image block from a remote URL or inline base64 data.
func imageBlock(p api.ContentPart) format.AnthropicContentBlock {
	src := &format.AnthropicSource{}
	if p.URL != "" {
		src.Type = "url"
		src.URL = p.URL
	} else {
		src.Type = "base64"
		src.MediaType = p.MediaType
		src.Data = p.Data
	}
	return format.AnthropicContentBlock{Type: "image", Source: src}
}

// documentBlock builds a document block; the Messages API accepts PDFs as
// base64 sources.
func documentBlock(p api.ContentPart) format.AnthropicContentBlock {
	src := &format.AnthropicSource{}
	if p.URL != "" {
		src.Type = "url"
		src.URL = p.URL
	} else {
		src.Type = "base64"
		src.MediaType = p.MediaType
		src.Data = p.Data
	}
	return format.AnthropicContentBlock{Type: "document", Source: src}
}
