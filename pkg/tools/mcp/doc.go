// Package mcp connects external MCP (Model Context Protocol) servers as
// server-tool sources for the agent loop. It wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk): each configured server is
// connected over SSE or streamable-http, its tools are discovered once,
// and every discovered tool is exposed as a tools.Definition whose handler
// calls the MCP session.
package mcp
