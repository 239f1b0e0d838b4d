// Command demo runs one agent loop conversation against a scripted
// in-process backend and prints the unified event stream. It exercises
// the whole pipeline offline: adapter events, server tool execution, and
// the terminal done event with the final conversation.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/engine"
	"github.com/rhuss/vermittler/pkg/provider"
	"github.com/rhuss/vermittler/pkg/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	registry := tools.NewRegistry()
	err := registry.Register(tools.Definition{
		Name:        "word_count",
		Description: "Counts the words in a text.",
		InputSchema: tools.SchemaFor[wordCountArgs](),
		Location:    api.ToolLocationServer,
		Handler: func(_ context.Context, _ tools.Context, args map[string]any) (*tools.Result, error) {
			text, _ := args["text"].(string)
			n := len(strings.Fields(text))
			return &tools.Result{
				Content: fmt.Sprintf("%d words", n),
				Data:    map[string]any{"count": n},
			}, nil
		},
	})
	if err != nil {
		return err
	}
	registry.Seal()

	eng, err := engine.New(&scriptedBackend{}, registry, engine.Config{
		DefaultModel: "demo-model",
	})
	if err != nil {
		return err
	}

	req := &api.Request{
		Model: "demo-model",
		Messages: []api.Message{
			api.UserMessage("How many words are in 'the quick brown fox'?"),
		},
	}

	fmt.Println("=== vermittler agent loop demo ===")
	fmt.Println()

	events, err := eng.Run(context.Background(), req, engine.Options{
		ThreadID: "demo-thread",
		OnFinish: func(u api.TokenUsage) {
			fmt.Printf("\n  usage: %d prompt / %d completion / %d total\n",
				u.PromptTokens, u.CompletionTokens, u.TotalTokens)
		},
	})
	if err != nil {
		return err
	}

	for ev := range events {
		printEvent(ev)
	}

	fmt.Println("\n=== demo complete ===")
	return nil
}

func printEvent(ev api.StreamEvent) {
	switch ev.Type {
	case api.EventLoopIteration:
		fmt.Printf("[iteration %d]\n", ev.Iteration)
	case api.EventMessageDelta:
		fmt.Printf("  text: %q\n", ev.Delta)
	case api.EventActionStart:
		fmt.Printf("  tool call %s -> %s\n", ev.CallID, ev.Name)
	case api.EventActionArgs:
		fmt.Printf("  args: %s\n", ev.Args)
	case api.EventDone:
		fmt.Printf("[done] requires_action=%v, %d messages in conversation\n",
			ev.RequiresAction, len(ev.Messages))
		for _, m := range ev.Messages {
			content := m.Content
			if len(m.ToolCalls) > 0 {
				content = fmt.Sprintf("(%d tool calls)", len(m.ToolCalls))
			}
			fmt.Printf("    %-9s %s\n", m.Role, content)
		}
	case api.EventError:
		fmt.Printf("[error] %s: %s\n", ev.Error.Type, ev.Error.Message)
	case api.EventMessageStart, api.EventMessageEnd, api.EventActionEnd:
		// lifecycle markers, not interesting for the transcript
	default:
		fmt.Printf("  event: %s\n", ev.Type)
	}
}

type wordCountArgs struct {
	Text string `json:"text" jsonschema:"required,description=The text to count words in"`
}

// scriptedBackend plays a fixed two-turn conversation: first it calls the
// word_count tool, then it answers using the tool result.
type scriptedBackend struct{}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: true, ToolCalling: true}
}

func (b *scriptedBackend) Stream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error) {
	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		for _, ev := range b.turnEvents(req) {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (b *scriptedBackend) Complete(_ context.Context, req *api.Request) (*provider.Completion, error) {
	if b.sawToolResult(req) {
		return &provider.Completion{
			Text:         "The text has 4 words.",
			Usage:        api.TokenUsage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28},
			FinishReason: api.FinishStop,
		}, nil
	}
	return &provider.Completion{
		ToolCalls: []api.ToolCall{
			{ID: "call_1", Name: "word_count", Args: `{"text":"the quick brown fox"}`},
		},
		Usage:        api.TokenUsage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18},
		FinishReason: api.FinishToolCalls,
	}, nil
}

func (b *scriptedBackend) Close() error { return nil }

func (b *scriptedBackend) sawToolResult(req *api.Request) bool {
	for _, m := range req.Messages {
		if m.Role == api.RoleTool {
			return true
		}
	}
	return false
}

func (b *scriptedBackend) turnEvents(req *api.Request) []api.StreamEvent {
	if b.sawToolResult(req) {
		return []api.StreamEvent{
			{Type: api.EventMessageStart},
			{Type: api.EventMessageDelta, Delta: "The text has "},
			{Type: api.EventMessageDelta, Delta: "4 words."},
			{Type: api.EventMessageEnd},
			{
				Type:         api.EventDone,
				FinishReason: api.FinishStop,
				Usage:        &api.TokenUsage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28},
			},
		}
	}
	return []api.StreamEvent{
		{Type: api.EventActionStart, CallID: "call_1", Name: "word_count"},
		{Type: api.EventActionArgs, CallID: "call_1", Name: "word_count", Args: `{"text":"the quick brown fox"}`},
		{Type: api.EventActionEnd, CallID: "call_1", Name: "word_count"},
		{
			Type:         api.EventDone,
			FinishReason: api.FinishToolCalls,
			Usage:        &api.TokenUsage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18},
		},
	}
}
