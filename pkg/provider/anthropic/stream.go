package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/vermittler/pkg/api"
)

// blockState tracks one open content block by stream index. Tool blocks
// buffer their fragmented input_json_delta text; the complete string goes
// out as a single action:args event at content_block_stop.
type blockState struct {
	kind   string
	callID string
	name   string
	args   strings.Builder
}

// parseStream reads Messages API SSE events and sends unified events on
// ch. The channel is not closed here. Cancellation stops reading between
// lines with no further events.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	blocks := make(map[int]*blockState)
	var usage api.TokenUsage
	var sawUsage bool
	finishReason := api.FinishUnknown

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		// The Messages API emits "event:" lines too; the data payload
		// carries its own type discriminator, so only data lines matter.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			slog.Warn("skipping malformed stream event", "error", err.Error())
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message != nil && ev.Message.Usage != nil {
				usage.PromptTokens = ev.Message.Usage.InputTokens
				usage.CompletionTokens = ev.Message.Usage.OutputTokens
				sawUsage = true
			}

		case "content_block_start":
			if ev.ContentBlock == nil {
				continue
			}
			st := &blockState{kind: ev.ContentBlock.Type}
			blocks[ev.Index] = st

			switch st.kind {
			case "text":
				ch <- api.StreamEvent{Type: api.EventMessageStart}
			case "thinking":
				ch <- api.StreamEvent{Type: api.EventThinkingStart}
			case "tool_use":
				st.callID = ev.ContentBlock.ID
				if st.callID == "" {
					st.callID = api.NewCallID()
				}
				st.name = ev.ContentBlock.Name
				ch <- api.StreamEvent{
					Type:   api.EventActionStart,
					CallID: st.callID,
					Name:   st.name,
				}
			}

		case "content_block_delta":
			st := blocks[ev.Index]
			if st == nil || ev.Delta == nil {
				continue
			}
			switch ev.Delta.Type {
			case "text_delta":
				ch <- api.StreamEvent{Type: api.EventMessageDelta, Delta: ev.Delta.Text}
			case "thinking_delta":
				ch <- api.StreamEvent{Type: api.EventThinkingDelta, Delta: ev.Delta.Thinking}
			case "input_json_delta":
				st.args.WriteString(ev.Delta.PartialJSON)
			}

		case "content_block_stop":
			st := blocks[ev.Index]
			if st == nil {
				continue
			}
			delete(blocks, ev.Index)

			switch st.kind {
			case "text":
				ch <- api.StreamEvent{Type: api.EventMessageEnd}
			case "thinking":
				ch <- api.StreamEvent{Type: api.EventThinkingEnd}
			case "tool_use":
				args := st.args.String()
				if args == "" || !json.Valid([]byte(args)) {
					args = "{}"
				}
				ch <- api.StreamEvent{
					Type:   api.EventActionArgs,
					CallID: st.callID,
					Name:   st.name,
					Args:   args,
				}
				ch <- api.StreamEvent{
					Type:   api.EventActionEnd,
					CallID: st.callID,
					Name:   st.name,
				}
			}

		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				finishReason = anthropicFormat.MapFinishReason(ev.Delta.StopReason)
			}
			if ev.Usage != nil {
				usage.CompletionTokens = ev.Usage.OutputTokens
				sawUsage = true
			}

		case "message_stop":
			done := api.StreamEvent{
				Type:         api.EventDone,
				FinishReason: finishReason,
			}
			if sawUsage {
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				done.Usage = &usage
			}
			ch <- done
			return

		case "error":
			code := "stream_error"
			message := "backend stream error"
			if ev.Error != nil {
				message = ev.Error.Message
				if ev.Error.Type != "" {
					code = ev.Error.Type
				}
			}
			ch <- api.ErrorEvent(api.NewTransportError(code, message))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		ch <- api.ErrorEvent(api.NewTransportError("stream_read_error",
			"SSE stream read error: "+err.Error()))
		return
	}

	// EOF without message_stop.
	ch <- api.StreamEvent{Type: api.EventDone, FinishReason: finishReason}
}
