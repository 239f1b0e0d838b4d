package engine

import (
	"context"
	"log/slog"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/debug"
	"github.com/rhuss/vermittler/pkg/observability"
	"github.com/rhuss/vermittler/pkg/tools"
)

// turnOutcome is what one model turn produced, regardless of whether it
// was streamed or completed in one round-trip.
type turnOutcome struct {
	text      string
	calls     []api.ToolCall
	usage     api.TokenUsage
	err       *api.APIError
	cancelled bool
}

// turnRunner executes one model turn against the adapter, writing any
// forwarded events to out. This is the seam between the streaming and
// non-streaming paths; everything above it is shared.
type turnRunner func(ctx context.Context, req *api.Request, out chan<- api.StreamEvent) turnOutcome

// emit sends an event unless the context is cancelled. Returns false on
// cancellation so the loop can stop silently.
func emit(ctx context.Context, out chan<- api.StreamEvent, ev api.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// loop runs the agent cycle: model turn, server tool execution, repeat.
// It owns the conversation state and terminates in exactly one done or
// error event, or in silence when ctx is cancelled.
func (e *Engine) loop(ctx context.Context, req *api.Request, opts Options, out chan<- api.StreamEvent, turn turnRunner) {
	var usage api.TokenUsage

	finish := func() {
		if opts.OnFinish != nil {
			opts.OnFinish(usage)
		}
	}

	maxIterations := e.cfg.maxIterations()
	for iteration := 1; iteration <= maxIterations; iteration++ {
		if ctx.Err() != nil {
			return
		}
		if !emit(ctx, out, api.StreamEvent{Type: api.EventLoopIteration, Iteration: iteration}) {
			return
		}

		observeTurn := observability.TurnObserver(e.adapter.Name(), req.Model)
		outcome := turn(ctx, req, out)
		if outcome.cancelled {
			return
		}
		if outcome.err != nil {
			observeTurn("error")
		} else {
			observeTurn("ok")
		}
		observability.RecordTokens(e.adapter.Name(), req.Model,
			outcome.usage.PromptTokens, outcome.usage.CompletionTokens)
		observability.LoopIterationsTotal.WithLabelValues(req.Model).Inc()

		usage.Add(outcome.usage)
		if outcome.err != nil {
			if emit(ctx, out, api.ErrorEvent(outcome.err)) {
				finish()
			}
			return
		}

		// Final answer: no tool calls this turn.
		if len(outcome.calls) == 0 {
			if outcome.text != "" {
				req.Messages = append(req.Messages, api.AssistantMessage(outcome.text))
			}
			if emit(ctx, out, api.DoneEvent(false, req.Messages)) {
				finish()
			}
			return
		}

		assistant := api.Message{
			Role:      api.RoleAssistant,
			Content:   outcome.text,
			ToolCalls: outcome.calls,
		}
		req.Messages = append(req.Messages, assistant)

		server, client := e.registry.Partition(outcome.calls)

		// Server tools run strictly sequentially in call order so the
		// appended result messages match the order of the calls.
		for _, call := range server {
			req.Messages = append(req.Messages, e.runServerTool(ctx, req, opts, call))
		}

		if len(client) > 0 {
			ev := api.StreamEvent{
				Type:      api.EventToolCalls,
				ToolCalls: client,
				Message:   &assistant,
			}
			if !emit(ctx, out, ev) {
				return
			}
			if emit(ctx, out, api.DoneEvent(true, req.Messages)) {
				finish()
			}
			return
		}
	}

	slog.Warn("agent loop reached iteration cap",
		"max_iterations", maxIterations,
		"model", req.Model,
	)
	if emit(ctx, out, api.DoneEvent(false, req.Messages)) {
		finish()
	}
}

// runServerTool executes one server tool call and returns the tool-result
// message shaped by the tool's response disclosure policy.
func (e *Engine) runServerTool(ctx context.Context, req *api.Request, opts Options, call api.ToolCall) api.Message {
	def, _ := e.registry.Lookup(call.Name)

	tc := tools.Context{
		ThreadID: opts.ThreadID,
		Headers:  opts.Headers,
	}
	if def.ContextFn != nil {
		tc.Data = def.ContextFn(req)
	}

	debug.Log("engine", "executing server tool", "tool", call.Name, "call_id", call.ID)
	res := e.registry.Execute(ctx, tc, call)
	disclosed := tools.Disclose(def, res)

	return api.Message{
		Role:       api.RoleTool,
		ToolCallID: call.ID,
		Content:    disclosed.Content,
		Parts:      disclosed.Parts,
		IsError:    disclosed.IsError,
	}
}
