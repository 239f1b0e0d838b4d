package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/tools"
)

// Client wraps one MCP server connection. It handles the protocol
// handshake, discovers the server's tools once, and exposes them as
// server tool definitions whose handlers call the MCP session.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu         sync.Mutex
	cachedDefs []tools.Definition
	resolved   bool
}

// NewClient creates a Client for the given server configuration.
// Call Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection to the configured server.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the connection using the given
// transport. If transport is nil, one is created from the configuration.
// The explicit transport exists for testing against in-memory servers.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "vermittler",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client carrying the configured static
// headers and auth provider, or nil when neither is configured.
func (c *Client) buildHTTPClient() *http.Client {
	var authProvider AuthProvider
	if c.cfg.Auth.Type == "oauth_client_credentials" {
		authProvider = NewOAuthClientCredentials(
			c.cfg.Auth.TokenURL,
			c.cfg.Auth.ClientID,
			c.cfg.Auth.ClientSecret,
			c.cfg.Auth.Scopes,
		)
	}

	if len(c.cfg.Headers) == 0 && authProvider == nil {
		return nil
	}

	return &http.Client{
		Transport: &authAwareTransport{
			base:         http.DefaultTransport,
			headers:      c.cfg.Headers,
			authProvider: authProvider,
		},
	}
}

// Definitions queries the server for its tools and converts each into a
// server tool definition bound to this session. Results are cached;
// subsequent calls return the cached definitions.
func (c *Client) Definitions(ctx context.Context) ([]tools.Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.cachedDefs, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var defs []tools.Definition
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		def, convErr := c.convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		defs = append(defs, def)
	}

	c.cachedDefs = defs
	c.resolved = true
	return defs, nil
}

// convertTool builds a server tool definition whose handler forwards the
// call to the MCP session.
func (c *Client) convertTool(t *mcp.Tool) (tools.Definition, error) {
	var schema json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return tools.Definition{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		schema = data
	}

	name := t.Name
	return tools.Definition{
		Name:        name,
		Description: t.Description,
		InputSchema: schema,
		Location:    api.ToolLocationServer,
		Response:    c.cfg.Response,
		Handler: func(ctx context.Context, _ tools.Context, args map[string]any) (*tools.Result, error) {
			return c.call(ctx, name, args)
		},
	}, nil
}

// call executes one tool call against the session. Server-side failures
// become failed results, not errors, so the loop feeds them back to the
// model.
func (c *Client) call(ctx context.Context, name string, args map[string]any) (*tools.Result, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return &tools.Result{
			Content: fmt.Sprintf("MCP tool call error: %v", err),
			IsError: true,
		}, nil
	}

	return convertResult(result), nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertResult flattens an MCP tool result into the unified result form.
// Text content is joined; image content becomes multimodal parts that are
// always forwarded to the model.
func convertResult(result *mcp.CallToolResult) *tools.Result {
	var content string
	var parts []api.ContentPart

	for _, c := range result.Content {
		switch block := c.(type) {
		case *mcp.TextContent:
			if content != "" {
				content += "\n"
			}
			content += block.Text
		case *mcp.ImageContent:
			parts = append(parts, api.ContentPart{
				Type:      api.PartImage,
				Data:      base64.StdEncoding.EncodeToString(block.Data),
				MediaType: block.MIMEType,
			})
		}
	}

	return &tools.Result{
		Content: content,
		Parts:   parts,
		IsError: result.IsError,
	}
}
