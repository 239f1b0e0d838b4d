package engine

import (
	"context"
	"fmt"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/provider"
	"github.com/rhuss/vermittler/pkg/tools"
)

// Engine orchestrates the agent loop between a provider adapter and the
// tool registry. Safe for concurrent use; per-request state lives on the
// loop's stack.
type Engine struct {
	adapter  provider.Adapter
	registry *tools.Registry
	cfg      Config
}

// Options carries per-request settings that are not part of the
// conversation itself.
type Options struct {
	// ThreadID identifies the conversation for tool execution context.
	ThreadID string

	// Headers are the originating request headers, handed to tool
	// handlers through their execution context.
	Headers map[string]string

	// OnFinish, when set, receives the usage summed across every loop
	// iteration after the terminal event. Usage reaches callers only
	// through this callback, never through forwarded events.
	OnFinish func(usage api.TokenUsage)
}

// New creates an Engine. The adapter must not be nil; a nil registry means
// no server tools.
func New(adapter provider.Adapter, registry *tools.Registry, cfg Config) (*Engine, error) {
	if adapter == nil {
		return nil, fmt.Errorf("engine: adapter must not be nil")
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Engine{adapter: adapter, registry: registry, cfg: cfg}, nil
}

// prepare validates the request and builds the loop's working copy with
// the merged tool set.
func (e *Engine) prepare(req *api.Request) (*api.Request, *api.APIError) {
	work := *req
	if work.Model == "" {
		if e.cfg.DefaultModel == "" {
			return nil, api.NewInvalidRequestError("model", "model is required")
		}
		work.Model = e.cfg.DefaultModel
	}
	if apiErr := provider.ValidateCapabilities(e.adapter.Capabilities(), &work); apiErr != nil {
		return nil, apiErr
	}
	work.Tools = e.registry.Merge(req.Tools)
	work.Messages = append([]api.Message(nil), req.Messages...)
	return &work, nil
}

// Run executes the agent loop in streaming mode. The returned channel
// receives unified events and is closed after the terminal event, or
// without one when ctx is cancelled. Validation failures are returned
// synchronously before any event is produced.
func (e *Engine) Run(ctx context.Context, req *api.Request, opts Options) (<-chan api.StreamEvent, error) {
	work, apiErr := e.prepare(req)
	if apiErr != nil {
		return nil, apiErr
	}

	out := make(chan api.StreamEvent, 16)
	go func() {
		defer close(out)
		e.loop(ctx, work, opts, out, e.streamTurn)
	}()
	return out, nil
}

// Complete executes the agent loop in non-streaming mode and returns the
// aggregate result built by draining the synthesized event sequence.
func (e *Engine) Complete(ctx context.Context, req *api.Request, opts Options) (*api.Result, error) {
	work, apiErr := e.prepare(req)
	if apiErr != nil {
		return nil, apiErr
	}

	var total *api.TokenUsage
	inner := opts.OnFinish
	opts.OnFinish = func(usage api.TokenUsage) {
		u := usage
		total = &u
		if inner != nil {
			inner(usage)
		}
	}

	out := make(chan api.StreamEvent, 16)
	go func() {
		defer close(out)
		e.loop(ctx, work, opts, out, e.completeTurn)
	}()

	res := api.CollectResult(out)
	res.Usage = total
	if res.Error != nil {
		return nil, res.Error
	}
	return res, nil
}
