package engine

import (
	"context"

	"github.com/rhuss/vermittler/pkg/api"
)

// streamTurn consumes one adapter stream, forwarding lifecycle events and
// collecting the turn's text, tool calls, and usage. Adapter terminal
// events are absorbed here; the loop emits its own.
func (e *Engine) streamTurn(ctx context.Context, req *api.Request, out chan<- api.StreamEvent) turnOutcome {
	ch, err := e.adapter.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return turnOutcome{cancelled: true}
		}
		return turnOutcome{err: api.AsAPIError(err)}
	}

	var o turnOutcome
	pending := make(map[string]int) // call id -> index in o.calls
	terminal := false

	for ev := range ch {
		switch ev.Type {
		case api.EventDone:
			terminal = true
			if ev.Usage != nil {
				o.usage = *ev.Usage
			}
			continue

		case api.EventError:
			terminal = true
			o.err = ev.Error
			continue

		case api.EventMessageDelta:
			o.text += ev.Delta

		case api.EventActionStart:
			pending[ev.CallID] = len(o.calls)
			o.calls = append(o.calls, api.ToolCall{ID: ev.CallID, Name: ev.Name})

		case api.EventActionArgs:
			if idx, ok := pending[ev.CallID]; ok {
				o.calls[idx].Args = ev.Args
			}
		}

		// Usage never rides on forwarded events.
		ev.Usage = nil
		if !emit(ctx, out, ev) {
			// The adapter goroutine sends without watching ctx; keep
			// consuming until it notices the cancellation and closes,
			// or its pending sends block it forever.
			go func() {
				for range ch {
				}
			}()
			return turnOutcome{cancelled: true}
		}
	}

	if !terminal {
		// The adapter closed the channel without a terminal event, which
		// only happens on cancellation.
		o.cancelled = true
	}
	return o
}

// completeTurn performs one non-streaming round-trip and synthesizes the
// lifecycle events a streaming turn would have produced, so consumers see
// a uniform event shape regardless of path.
func (e *Engine) completeTurn(ctx context.Context, req *api.Request, out chan<- api.StreamEvent) turnOutcome {
	comp, err := e.adapter.Complete(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return turnOutcome{cancelled: true}
		}
		return turnOutcome{err: api.AsAPIError(err)}
	}

	if comp.Thinking != "" {
		events := []api.StreamEvent{
			{Type: api.EventThinkingStart},
			{Type: api.EventThinkingDelta, Delta: comp.Thinking},
			{Type: api.EventThinkingEnd},
		}
		for _, ev := range events {
			if !emit(ctx, out, ev) {
				return turnOutcome{cancelled: true}
			}
		}
	}

	if comp.Text != "" {
		events := []api.StreamEvent{
			{Type: api.EventMessageStart},
			{Type: api.EventMessageDelta, Delta: comp.Text},
			{Type: api.EventMessageEnd},
		}
		for _, ev := range events {
			if !emit(ctx, out, ev) {
				return turnOutcome{cancelled: true}
			}
		}
	}

	for _, call := range comp.ToolCalls {
		events := []api.StreamEvent{
			{Type: api.EventActionStart, CallID: call.ID, Name: call.Name},
			{Type: api.EventActionArgs, CallID: call.ID, Name: call.Name, Args: call.Args},
			{Type: api.EventActionEnd, CallID: call.ID, Name: call.Name},
		}
		for _, ev := range events {
			if !emit(ctx, out, ev) {
				return turnOutcome{cancelled: true}
			}
		}
	}

	return turnOutcome{
		text:  comp.Text,
		calls: comp.ToolCalls,
		usage: comp.Usage,
	}
}
