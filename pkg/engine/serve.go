package engine

import (
	"context"
	"log/slog"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/transport"
)

// Ensure Engine implements transport.ChatHandler at compile time.
var _ transport.ChatHandler = (*Engine)(nil)

// Chat implements transport.ChatHandler: it bridges transport requests to
// the agent loop, forwarding streamed events or writing the aggregate
// result. Usage is logged server-side and never written to the caller's
// event stream.
func (e *Engine) Chat(ctx context.Context, req *transport.ChatRequest, w transport.EventWriter) error {
	opts := Options{
		ThreadID: req.ThreadID,
		Headers:  req.Headers,
		OnFinish: func(usage api.TokenUsage) {
			slog.Info("conversation finished",
				"request_id", transport.RequestIDFromContext(ctx),
				"model", req.Model,
				"prompt_tokens", usage.PromptTokens,
				"completion_tokens", usage.CompletionTokens,
				"total_tokens", usage.TotalTokens,
			)
		},
	}

	if req.Stream {
		ch, err := e.Run(ctx, &req.Request, opts)
		if err != nil {
			return err
		}
		for ev := range ch {
			if err := w.WriteEvent(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}

	res, err := e.Complete(ctx, &req.Request, opts)
	if err != nil {
		return err
	}
	return w.WriteResult(ctx, res)
}
