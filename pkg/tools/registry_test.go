package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rhuss/vermittler/pkg/api"
)

func echoHandler(_ context.Context, _ Context, args map[string]any) (*Result, error) {
	return &Result{Content: "echo", Data: args}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Definition{
		Name:     "echo",
		Location: api.ToolLocationServer,
		Handler:  echoHandler,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Server tool without a handler is rejected.
	err = r.Register(Definition{Name: "broken", Location: api.ToolLocationServer})
	if err == nil {
		t.Error("expected error for server tool without handler")
	}

	// Missing name is rejected.
	if err := r.Register(Definition{Handler: echoHandler}); err == nil {
		t.Error("expected error for unnamed tool")
	}

	// Duplicate name: first registration wins.
	err = r.Register(Definition{
		Name:     "echo",
		Location: api.ToolLocationServer,
		Handler:  func(context.Context, Context, map[string]any) (*Result, error) { return nil, nil },
		Response: ResponseNone,
	})
	if err != nil {
		t.Fatalf("duplicate Register returned error: %v", err)
	}
	def, _ := r.Lookup("echo")
	if def.Response == ResponseNone {
		t.Error("duplicate registration replaced the first definition")
	}
}

func TestRegistry_Seal(t *testing.T) {
	r := NewRegistry()
	r.Seal()

	err := r.Register(Definition{Name: "late", Handler: echoHandler})
	if err == nil {
		t.Error("expected error registering into a sealed registry")
	}
}

func TestRegistry_Merge(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Definition{Name: "calc", Handler: echoHandler}); err != nil {
		t.Fatal(err)
	}

	client := []api.ToolDecl{
		{Name: "browser_open"},
		{Name: "calc"}, // shadowed by the server tool
	}

	merged := r.Merge(client)
	if len(merged) != 2 {
		t.Fatalf("Merge returned %d decls, want 2", len(merged))
	}
	if merged[0].Name != "calc" || merged[0].Location != api.ToolLocationServer {
		t.Errorf("first decl = %+v, want server calc", merged[0])
	}
	if merged[1].Name != "browser_open" || merged[1].Location != api.ToolLocationClient {
		t.Errorf("second decl = %+v, want client browser_open", merged[1])
	}
}

func TestRegistry_Partition(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Definition{Name: "calc", Handler: echoHandler}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Definition{Name: "search", Handler: echoHandler}); err != nil {
		t.Fatal(err)
	}

	calls := []api.ToolCall{
		{ID: "c1", Name: "calc"},
		{ID: "c2", Name: "browser_open"},
		{ID: "c3", Name: "search"},
	}

	server, client := r.Partition(calls)
	if len(server) != 2 || server[0].ID != "c1" || server[1].ID != "c3" {
		t.Errorf("server calls = %+v, want c1,c3 in order", server)
	}
	if len(client) != 1 || client[0].ID != "c2" {
		t.Errorf("client calls = %+v, want c2", client)
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Definition{Name: "echo", Handler: echoHandler}); err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), Context{}, api.ToolCall{
		ID: "c1", Name: "echo", Args: `{"x":1}`,
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if res.CallID != "c1" || res.Content != "echo" {
		t.Errorf("result = %+v", res)
	}
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	r := NewRegistry()

	res := r.Execute(context.Background(), Context{}, api.ToolCall{ID: "c1", Name: "ghost"})
	if !res.IsError {
		t.Fatal("expected error result for unknown tool")
	}
	if !strings.Contains(res.Content, "ghost") {
		t.Errorf("error content should name the tool: %q", res.Content)
	}
}

func TestRegistry_Execute_HandlerError(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name: "fail",
		Handler: func(context.Context, Context, map[string]any) (*Result, error) {
			return nil, context.DeadlineExceeded
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), Context{}, api.ToolCall{ID: "c1", Name: "fail"})
	if !res.IsError {
		t.Fatal("expected error result from failing handler")
	}
	if res.CallID != "c1" {
		t.Errorf("CallID = %q, want c1", res.CallID)
	}
}

func TestRegistry_Execute_HandlerPanic(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Definition{
		Name: "boom",
		Handler: func(context.Context, Context, map[string]any) (*Result, error) {
			panic("unexpected state")
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), Context{}, api.ToolCall{ID: "c1", Name: "boom"})
	if !res.IsError {
		t.Fatal("expected panic to convert into an error result")
	}
	if res.CallID != "c1" {
		t.Errorf("CallID = %q, want c1", res.CallID)
	}
}

func TestRegistry_Execute_MalformedArgs(t *testing.T) {
	r := NewRegistry()
	var got map[string]any
	err := r.Register(Definition{
		Name: "probe",
		Handler: func(_ context.Context, _ Context, args map[string]any) (*Result, error) {
			got = args
			return &Result{Content: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := r.Execute(context.Background(), Context{}, api.ToolCall{
		ID: "c1", Name: "probe", Args: `{not json`,
	})
	if res.IsError {
		t.Fatalf("malformed args must not fail execution: %+v", res)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("malformed args should resolve to an empty map, got %v", got)
	}
}

func TestDisclose(t *testing.T) {
	res := &Result{
		CallID:  "c1",
		Content: "found 3 results",
		Data:    map[string]any{"count": 3},
	}

	t.Run("none", func(t *testing.T) {
		out := Disclose(Definition{Name: "search", Response: ResponseNone}, res)
		if out.Content != "done" {
			t.Errorf("Content = %q, want minimal acknowledgment", out.Content)
		}
	})

	t.Run("brief", func(t *testing.T) {
		out := Disclose(Definition{Name: "search", Response: ResponseBrief}, res)
		if out.Content != "found 3 results" {
			t.Errorf("Content = %q, want context string only", out.Content)
		}
	})

	t.Run("full", func(t *testing.T) {
		out := Disclose(Definition{Name: "search", Response: ResponseFull}, res)
		if !strings.Contains(out.Content, "found 3 results") || !strings.Contains(out.Content, `"count":3`) {
			t.Errorf("Content = %q, want context plus JSON payload", out.Content)
		}
	})

	t.Run("default is full", func(t *testing.T) {
		out := Disclose(Definition{Name: "search"}, res)
		if !strings.Contains(out.Content, `"count":3`) {
			t.Errorf("Content = %q, want payload included by default", out.Content)
		}
	})

	t.Run("directive override", func(t *testing.T) {
		overridden := &Result{
			CallID:    "c1",
			Content:   "found 3 results",
			Data:      map[string]any{"count": 3},
			Directive: &Directive{Response: ResponseNone},
		}
		out := Disclose(Definition{Name: "search", Response: ResponseFull}, overridden)
		if out.Content != "done" {
			t.Errorf("Content = %q, directive should override the tool policy", out.Content)
		}
	})

	t.Run("error always carries content", func(t *testing.T) {
		failed := &Result{CallID: "c1", Content: "timeout", IsError: true}
		out := Disclose(Definition{Name: "search", Response: ResponseNone}, failed)
		if out.Content != "timeout" || !out.IsError {
			t.Errorf("error result = %+v, want content preserved", out)
		}
	})

	t.Run("parts bypass policy", func(t *testing.T) {
		visual := &Result{
			CallID: "c1",
			Parts:  []api.ContentPart{{Type: api.PartImage, URL: "https://example.com/chart.png"}},
		}
		out := Disclose(Definition{Name: "chart", Response: ResponseNone}, visual)
		if len(out.Parts) != 1 {
			t.Error("multimodal parts must always be forwarded")
		}
	})
}

func TestSchemaFor(t *testing.T) {
	type weatherArgs struct {
		City string `json:"city" jsonschema:"description=City name"`
		Days int    `json:"days,omitempty"`
	}

	raw := SchemaFor[weatherArgs]()

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties: %v", schema)
	}
	if _, ok := props["city"]; !ok {
		t.Error("expected city property")
	}
}
