package mcp

import "github.com/rhuss/vermittler/pkg/tools"

// Config holds the configuration for all MCP server connections.
type Config struct {
	// Servers is the list of MCP servers to connect to.
	Servers []ServerConfig `yaml:"servers"`
}

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical server name, used for logging and routing.
	Name string `yaml:"name" json:"name"`

	// Transport is "sse" or "streamable-http". Empty defaults to
	// streamable-http.
	Transport string `yaml:"transport" json:"transport"`

	// URL is the MCP server endpoint.
	URL string `yaml:"url" json:"url"`

	// Headers are static HTTP headers sent with every request, typically
	// API keys or bearer tokens.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Auth configures dynamic authentication for the connection.
	Auth AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`

	// Response is the AI-response policy applied to all tools discovered
	// from this server. Empty defaults to full disclosure.
	Response tools.ResponsePolicy `yaml:"response,omitempty" json:"response,omitempty"`
}

// AuthConfig describes dynamic authentication for an MCP server.
type AuthConfig struct {
	// Type selects the auth scheme. Supported: "oauth_client_credentials".
	Type string `yaml:"type" json:"type"`

	// TokenURL is the OAuth 2.0 token endpoint.
	TokenURL string `yaml:"token_url" json:"token_url"`

	// ClientID and ClientSecret are the client credentials.
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"client_secret"`

	// Scopes are the requested OAuth scopes.
	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}
