package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/vermittler/pkg/api"
)

// parseStream reads streamGenerateContent SSE chunks and sends unified
// events on ch. Function calls arrive as complete parts, so each one
// yields its action triple immediately with a synthesized id. The channel
// is not closed here. There is no end sentinel; the stream ends at EOF.
func parseStream(ctx context.Context, body io.Reader, ch chan<- api.StreamEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	messageOpen := false
	thinkingOpen := false
	sawCalls := false
	finishReason := api.FinishUnknown
	var usage *api.TokenUsage

	closeThinking := func() {
		if thinkingOpen {
			ch <- api.StreamEvent{Type: api.EventThinkingEnd}
			thinkingOpen = false
		}
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var chunk generateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed stream chunk", "error", err.Error())
			continue
		}

		if chunk.Error != nil {
			code := chunk.Error.Status
			if code == "" {
				code = "stream_error"
			}
			ch <- api.ErrorEvent(api.NewTransportError(code, chunk.Error.Message))
			return
		}

		if chunk.UsageMetadata != nil {
			usage = &api.TokenUsage{
				PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
				CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
			}
		}

		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]

		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					closeThinking()
					sawCalls = true
					args := string(part.FunctionCall.Args)
					if args == "" {
						args = "{}"
					}
					callID := api.NewCallID()
					ch <- api.StreamEvent{
						Type:   api.EventActionStart,
						CallID: callID,
						Name:   part.FunctionCall.Name,
					}
					ch <- api.StreamEvent{
						Type:   api.EventActionArgs,
						CallID: callID,
						Name:   part.FunctionCall.Name,
						Args:   args,
					}
					ch <- api.StreamEvent{
						Type:   api.EventActionEnd,
						CallID: callID,
						Name:   part.FunctionCall.Name,
					}

				case part.Thought:
					if !thinkingOpen {
						ch <- api.StreamEvent{Type: api.EventThinkingStart}
						thinkingOpen = true
					}
					ch <- api.StreamEvent{Type: api.EventThinkingDelta, Delta: part.Text}

				case part.Text != "":
					closeThinking()
					if !messageOpen {
						ch <- api.StreamEvent{Type: api.EventMessageStart}
						messageOpen = true
					}
					ch <- api.StreamEvent{Type: api.EventMessageDelta, Delta: part.Text}
				}
			}
		}

		if cand.FinishReason != "" {
			finishReason = geminiFormat.MapFinishReason(cand.FinishReason)
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

	closeThinking()
	if messageOpen {
		ch <- api.StreamEvent{Type: api.EventMessageEnd}
	}
	// Gemini signals tool intent with functionCall parts, not a stop
	// reason.
	if sawCalls && (finishReason == api.FinishStop || finishReason == api.FinishUnknown) {
		finishReason = api.FinishToolCalls
	}
	ch <- api.StreamEvent{
		Type:         api.EventDone,
		Usage:        usage,
		FinishReason: finishReason,
	}
}
