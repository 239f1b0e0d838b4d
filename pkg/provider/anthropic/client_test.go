package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/format"
	"github.com/rhuss/vermittler/pkg/provider"
)

func newTestAdapter(serverURL string) *Adapter {
	return New(provider.Config{BaseURL: serverURL, APIKey: "test-key"})
}

// TestBuildTurns_ToolResultOrdering reconstructs a conversation with three
// interleaved tool rounds and verifies that every tool result lands in the
// user turn immediately before the following assistant turn, with strict
// role alternation throughout.
func TestBuildTurns_ToolResultOrdering(t *testing.T) {
	messages := []api.Message{
		api.UserMessage("what is the weather in Berlin and Paris?"),
		{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{
			{ID: "c1", Name: "get_weather", Args: `{"city":"Berlin"}`},
			{ID: "c2", Name: "get_weather", Args: `{"city":"Paris"}`},
		}},
		api.ToolMessage("c1", "sunny"),
		api.ToolMessage("c2", "rainy"),
		{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{
			{ID: "c3", Name: "get_forecast", Args: `{"city":"Berlin"}`},
		}},
		api.ToolMessage("c3", "stable"),
		api.AssistantMessage("Berlin is sunny and stable, Paris rainy."),
	}

	system := ""
	turns := buildTurns(messages, &system)

	roles := make([]string, len(turns))
	for i, turn := range turns {
		roles[i] = turn.Role
	}
	wantRoles := []string{"user", "assistant", "user", "assistant", "user", "assistant"}
	if len(roles) != len(wantRoles) {
		t.Fatalf("roles = %v, want %v", roles, wantRoles)
	}
	for i := range wantRoles {
		if roles[i] != wantRoles[i] {
			t.Fatalf("turn %d role = %q, want %q (all: %v)", i, roles[i], wantRoles[i], roles)
		}
	}

	// First assistant turn carries both tool_use blocks.
	if len(turns[1].Content) != 2 || turns[1].Content[0].Type != "tool_use" {
		t.Errorf("assistant turn 1 content = %+v", turns[1].Content)
	}

	// The following user turn opens with both tool_result blocks in call order.
	results := turns[2].Content
	if len(results) != 2 || results[0].Type != "tool_result" || results[0].ToolUseID != "c1" || results[1].ToolUseID != "c2" {
		t.Errorf("user turn 2 content = %+v", results)
	}

	// Third round: single tool_use, then its result.
	if turns[4].Content[0].ToolUseID != "c3" {
		t.Errorf("user turn 4 content = %+v", turns[4].Content)
	}

	// Final assistant text turn.
	if turns[5].Content[0].Type != "text" {
		t.Errorf("final turn content = %+v", turns[5].Content)
	}
}

// TestBuildTurns_MultimodalToolResult verifies that result parts survive
// serialization: a tool message carrying an image lands as a tool_result
// block whose content is a block array, text first.
func TestBuildTurns_MultimodalToolResult(t *testing.T) {
	messages := []api.Message{
		api.UserMessage("take a screenshot"),
		{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{
			{ID: "c1", Name: "screenshot", Args: `{}`},
		}},
		{Role: api.RoleTool, ToolCallID: "c1", Content: "captured", Parts: []api.ContentPart{
			{Type: api.PartImage, MediaType: "image/png", Data: "aW1n"},
		}},
		api.UserMessage("describe it"),
	}

	system := ""
	turns := buildTurns(messages, &system)
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}

	result := turns[2].Content[0]
	if result.Type != "tool_result" || result.ToolUseID != "c1" {
		t.Fatalf("result block = %+v", result)
	}
	blocks, ok := result.Content.([]format.AnthropicContentBlock)
	if !ok {
		t.Fatalf("result content = %T, want block array", result.Content)
	}
	if len(blocks) != 2 || blocks[0].Type != "text" || blocks[0].Text != "captured" {
		t.Fatalf("result blocks = %+v", blocks)
	}
	if blocks[1].Type != "image" || blocks[1].Source == nil || blocks[1].Source.Data != "aW1n" {
		t.Errorf("image block = %+v", blocks[1])
	}

	// Text-only results stay a plain string.
	system = ""
	turns = buildTurns([]api.Message{
		api.UserMessage("hi"),
		{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{{ID: "c2", Name: "echo", Args: `{}`}}},
		api.ToolMessage("c2", "plain"),
		api.AssistantMessage("done"),
	}, &system)
	if got := turns[2].Content[0].Content; got != "plain" {
		t.Errorf("text-only result content = %#v, want %q", got, "plain")
	}
}

func TestBuildTurns_ErrorToolResult(t *testing.T) {
	system := ""
	turns := buildTurns([]api.Message{
		api.UserMessage("hi"),
		{Role: api.RoleAssistant, ToolCalls: []api.ToolCall{{ID: "c1", Name: "fetch", Args: `{}`}}},
		{Role: api.RoleTool, ToolCallID: "c1", Content: "connection refused", IsError: true},
	}, &system)

	result := turns[2].Content[0]
	if result.Type != "tool_result" || !result.IsError {
		t.Fatalf("result = %+v, want tool_result with is_error", result)
	}
	if result.Content != "connection refused" {
		t.Errorf("result content = %#v", result.Content)
	}
}

func TestBuildTurns_SystemFolding(t *testing.T) {
	messages := []api.Message{
		{Role: api.RoleSystem, Content: "be helpful"},
		api.UserMessage("hi"),
	}

	system := "base prompt"
	turns := buildTurns(messages, &system)

	if system != "base prompt\nbe helpful" {
		t.Errorf("system = %q", system)
	}
	if len(turns) != 1 || turns[0].Role != "user" {
		t.Errorf("turns = %+v", turns)
	}
}

func TestBuildRequest_Defaults(t *testing.T) {
	mr := buildRequest(&api.Request{Model: "claude-test"}, true)
	if mr.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want default", mr.MaxTokens)
	}
	if !mr.Stream {
		t.Error("Stream not set")
	}

	max := 100
	mr = buildRequest(&api.Request{Model: "claude-test", MaxTokens: &max}, false)
	if mr.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want 100", mr.MaxTokens)
	}
}

func sseBody(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("data: " + e + "\n\n")
	}
	return b.String()
}

func TestStream_TextAndToolUse(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"usage":{"input_tokens":12,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"Berlin\"}"}}`,
		`{"type":"content_block_stop","index":1}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":9}}`,
		`{"type":"message_stop"}`,
	)

	var gotVersion, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	ch, err := adapter.Stream(context.Background(), &api.Request{Model: "claude-test"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var events []api.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}

	if gotKey != "test-key" || gotVersion != defaultAPIVersion {
		t.Errorf("auth headers: x-api-key=%q anthropic-version=%q", gotKey, gotVersion)
	}

	if err := api.ValidateEventOrder(events); err != nil {
		t.Fatalf("event order invalid: %v", err)
	}

	var argsEvents []api.StreamEvent
	for _, ev := range events {
		if ev.Type == api.EventActionArgs {
			argsEvents = append(argsEvents, ev)
		}
	}
	if len(argsEvents) != 1 {
		t.Fatalf("got %d action:args events, want exactly 1", len(argsEvents))
	}
	if argsEvents[0].CallID != "toolu_1" || argsEvents[0].Args != `{"city":"Berlin"}` {
		t.Errorf("args event = %+v", argsEvents[0])
	}

	done := events[len(events)-1]
	if done.Type != api.EventDone || done.FinishReason != api.FinishToolCalls {
		t.Errorf("terminal = %+v", done)
	}
	if done.Usage == nil || done.Usage.PromptTokens != 12 || done.Usage.CompletionTokens != 9 || done.Usage.TotalTokens != 21 {
		t.Errorf("usage = %+v", done.Usage)
	}
}

func TestStream_ErrorEvent(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"usage":{"input_tokens":1,"output_tokens":0}}}`,
		`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`,
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	ch, err := adapter.Stream(context.Background(), &api.Request{Model: "claude-test"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var events []api.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}

	last := events[len(events)-1]
	if last.Type != api.EventError {
		t.Fatalf("terminal = %+v, want error", last)
	}
	if last.Error.Code != "overloaded_error" {
		t.Errorf("error code = %q", last.Error.Code)
	}
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.MaxTokens == 0 {
			t.Error("max_tokens missing")
		}

		resp := map[string]any{
			"id":    "msg_1",
			"model": req.Model,
			"content": []map[string]any{
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_9", "name": "get_weather", "input": map[string]any{"city": "Berlin"}},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]int{"input_tokens": 5, "output_tokens": 7},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	completion, err := adapter.Complete(context.Background(), &api.Request{
		Model:    "claude-test",
		Messages: []api.Message{api.UserMessage("weather in Berlin?")},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if completion.Text != "Let me check." {
		t.Errorf("Text = %q", completion.Text)
	}
	if len(completion.ToolCalls) != 1 || completion.ToolCalls[0].ID != "toolu_9" {
		t.Fatalf("ToolCalls = %+v", completion.ToolCalls)
	}
	if completion.ToolCalls[0].ArgsMap()["city"] != "Berlin" {
		t.Errorf("args = %v", completion.ToolCalls[0].ArgsMap())
	}
	if completion.FinishReason != api.FinishToolCalls {
		t.Errorf("FinishReason = %q", completion.FinishReason)
	}
	if completion.Usage.TotalTokens != 12 {
		t.Errorf("Usage = %+v", completion.Usage)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(server.URL)
	_, err := adapter.Complete(context.Background(), &api.Request{Model: "claude-test"})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr := api.AsAPIError(err)
	if apiErr.Type != api.ErrorTypeTransport || apiErr.Code != "rate_limit_error" {
		t.Errorf("error = %+v", apiErr)
	}
}
