package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rhuss/vermittler/pkg/api"
)

// toolCallBuffer assembles one tool call's fragmented argument text across
// SSE chunks. The consumer never sees partial JSON: the complete string is
// emitted as a single action:args event at flush time.
type toolCallBuffer struct {
	id      string
	name    string
	args    strings.Builder
	started bool
}

// streamState tracks the translation of one SSE stream into unified
// events: open message/thinking brackets, buffered tool calls, and the
// terminal payload accumulated until the stream ends.
type streamState struct {
	ch chan<- api.StreamEvent

	messageOpen  bool
	thinkingOpen bool

	toolCalls map[int]*toolCallBuffer

	finishReason api.FinishReason
	sawFinish    bool
	usage        *api.TokenUsage
}

// parseStream reads Chat Completions SSE chunks and sends unified events
// on ch. The channel is not closed here; the caller closes it. Malformed
// chunks are logged and skipped. Cancellation stops reading between lines
// and suppresses any further events, including the terminal one.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	st := &streamState{
		ch:           ch,
		toolCalls:    make(map[int]*toolCallBuffer),
		finishReason: api.FinishUnknown,
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			st.finish()
			return
		}

		var chunk ChatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		st.consume(&chunk)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		ch <- api.ErrorEvent(api.NewTransportError("stream_read_error",
			"SSE stream read error: "+err.Error()))
		return
	}

	// EOF without a [DONE] sentinel: treat what we have as the end.
	st.finish()
}

// consume folds one chunk into the stream state, emitting deltas.
func (st *streamState) consume(chunk *ChatChunk) {
	// A usage-only chunk (stream_options.include_usage) has no choices.
	if chunk.Usage != nil {
		st.usage = &api.TokenUsage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}
	if len(chunk.Choices) == 0 {
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		if !st.thinkingOpen {
			st.ch <- api.StreamEvent{Type: api.EventThinkingStart}
			st.thinkingOpen = true
		}
		st.ch <- api.StreamEvent{Type: api.EventThinkingDelta, Delta: *delta.ReasoningContent}
	}

	if delta.Content != nil && *delta.Content != "" {
		st.closeThinking()
		if !st.messageOpen {
			st.ch <- api.StreamEvent{Type: api.EventMessageStart}
			st.messageOpen = true
		}
		st.ch <- api.StreamEvent{Type: api.EventMessageDelta, Delta: *delta.Content}
	}

	for _, tc := range delta.ToolCalls {
		buf, exists := st.toolCalls[tc.Index]
		if !exists {
			id := tc.ID
			if id == "" {
				id = api.NewCallID()
			}
			buf = &toolCallBuffer{id: id, name: tc.Function.Name}
			st.toolCalls[tc.Index] = buf

			st.closeThinking()
			st.ch <- api.StreamEvent{
				Type:   api.EventActionStart,
				CallID: buf.id,
				Name:   buf.name,
			}
			buf.started = true
		}
		buf.args.WriteString(tc.Function.Arguments)
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		st.sawFinish = true
		st.finishReason = chatFormat.MapFinishReason(*choice.FinishReason)
	}
}

// closeThinking ends an open thinking bracket.
func (st *streamState) closeThinking() {
	if st.thinkingOpen {
		st.ch <- api.StreamEvent{Type: api.EventThinkingEnd}
		st.thinkingOpen = false
	}
}

// finish closes open brackets, flushes buffered tool calls in index order,
// and emits the terminal done event with usage and finish reason. The
// usage chunk arrives after the finish chunk, so the done event is only
// built once the stream truly ends.
func (st *streamState) finish() {
	st.closeThinking()
	if st.messageOpen {
		st.ch <- api.StreamEvent{Type: api.EventMessageEnd}
		st.messageOpen = false
	}

	indexes := make([]int, 0, len(st.toolCalls))
	for idx := range st.toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		buf := st.toolCalls[idx]
		st.ch <- api.StreamEvent{
			Type:   api.EventActionArgs,
			CallID: buf.id,
			Name:   buf.name,
			Args:   normalizeArgs(buf.args.String()),
		}
		st.ch <- api.StreamEvent{
			Type:   api.EventActionEnd,
			CallID: buf.id,
			Name:   buf.name,
		}
	}

	if len(st.toolCalls) > 0 && (!st.sawFinish || st.finishReason == api.FinishStop) {
		st.finishReason = api.FinishToolCalls
	} else if !st.sawFinish {
		st.finishReason = api.FinishStop
	}

	st.ch <- api.StreamEvent{
		Type:         api.EventDone,
		Usage:        st.usage,
		FinishReason: st.finishReason,
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
