package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/tools"
)

// setupTestServer creates a test MCP server with tools and connects it
// to a client via in-memory transports. Returns the client ready for use.
func setupTestServer(t *testing.T, cfg ServerConfig, serverTools map[string]mcp.ToolHandler) *Client {
	t.Helper()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "test-server", Version: "1.0.0"},
		nil,
	)

	for name, handler := range serverTools {
		server.AddTool(
			&mcp.Tool{
				Name:        name,
				Description: "Test tool: " + name,
				InputSchema: map[string]any{"type": "object"},
			},
			handler,
		)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx := context.Background()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := NewClient(cfg)
	if err := client.ConnectWithTransport(ctx, clientTransport); err != nil {
		t.Fatalf("ConnectWithTransport failed: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func echoTool(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "ok"}},
	}, nil
}

func TestClient_Definitions(t *testing.T) {
	client := setupTestServer(t, ServerConfig{Name: "test-server", Response: tools.ResponseBrief},
		map[string]mcp.ToolHandler{
			"get_weather": echoTool,
			"get_time":    echoTool,
		})

	defs, err := client.Definitions(context.Background())
	if err != nil {
		t.Fatalf("Definitions failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	names := map[string]bool{}
	for _, def := range defs {
		names[def.Name] = true
		if def.Location != api.ToolLocationServer {
			t.Errorf("tool %q location = %q, want server", def.Name, def.Location)
		}
		if def.Handler == nil {
			t.Errorf("tool %q has no handler", def.Name)
		}
		if def.Response != tools.ResponseBrief {
			t.Errorf("tool %q response policy = %q, want brief", def.Name, def.Response)
		}
		if len(def.InputSchema) == 0 {
			t.Errorf("tool %q has no input schema", def.Name)
		}
	}
	if !names["get_weather"] || !names["get_time"] {
		t.Errorf("missing expected tools, got %v", names)
	}

	// Definitions are cached after the first discovery.
	defs2, err := client.Definitions(context.Background())
	if err != nil {
		t.Fatalf("second Definitions failed: %v", err)
	}
	if len(defs2) != len(defs) {
		t.Error("cached definitions mismatch")
	}
}

func TestClient_HandlerExecutes(t *testing.T) {
	client := setupTestServer(t, ServerConfig{Name: "test-server"},
		map[string]mcp.ToolHandler{
			"greet": func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: "hello"}},
				}, nil
			},
		})

	defs, err := client.Definitions(context.Background())
	if err != nil {
		t.Fatalf("Definitions failed: %v", err)
	}

	res, err := defs[0].Handler(context.Background(), tools.Context{}, map[string]any{})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if res.Content != "hello" {
		t.Errorf("Content = %q, want hello", res.Content)
	}
}

func TestClient_HandlerToolError(t *testing.T) {
	client := setupTestServer(t, ServerConfig{Name: "test-server"},
		map[string]mcp.ToolHandler{
			"broken": func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return &mcp.CallToolResult{
					Content: []mcp.Content{&mcp.TextContent{Text: "boom"}},
					IsError: true,
				}, nil
			},
		})

	defs, err := client.Definitions(context.Background())
	if err != nil {
		t.Fatalf("Definitions failed: %v", err)
	}

	res, err := defs[0].Handler(context.Background(), tools.Context{}, nil)
	if err != nil {
		t.Fatalf("handler returned error instead of failed result: %v", err)
	}
	if !res.IsError || res.Content != "boom" {
		t.Errorf("result = %+v, want error result with content boom", res)
	}
}

func TestConvertResult_TextJoin(t *testing.T) {
	res := convertResult(&mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "line one"},
			&mcp.TextContent{Text: "line two"},
		},
	})
	if res.Content != "line one\nline two" {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestConvertResult_Image(t *testing.T) {
	res := convertResult(&mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: []byte{1, 2, 3}, MIMEType: "image/png"},
		},
	})
	if len(res.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(res.Parts))
	}
	part := res.Parts[0]
	if part.Type != api.PartImage || part.MediaType != "image/png" || part.Data == "" {
		t.Errorf("part = %+v", part)
	}
}
