package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/vermittler/pkg/tools"
)

// Connect dials all configured MCP servers, discovers their tools, and
// registers each as a server tool. A server that fails to connect or
// discover is skipped with a logged error; the remaining servers still
// register. Duplicate tool names across servers resolve first-wins
// through the registry.
//
// The returned clients must be closed on shutdown.
func Connect(ctx context.Context, cfg Config, registry *tools.Registry) ([]*Client, error) {
	var clients []*Client

	for _, sc := range cfg.Servers {
		client := NewClient(sc)
		if err := client.Connect(ctx); err != nil {
			slog.Error("failed to connect to MCP server", "server", sc.Name, "error", err)
			continue
		}

		defs, err := client.Definitions(ctx)
		if err != nil {
			slog.Error("failed to discover MCP tools", "server", sc.Name, "error", err)
			client.Close()
			continue
		}

		for _, def := range defs {
			if err := registry.Register(def); err != nil {
				return clients, fmt.Errorf("registering MCP tool %q from %q: %w", def.Name, sc.Name, err)
			}
		}

		slog.Info("discovered MCP tools", "server", sc.Name, "count", len(defs))
		clients = append(clients, client)
	}

	return clients, nil
}

// CloseAll closes the given clients, returning the last error encountered.
func CloseAll(clients []*Client) error {
	var lastErr error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
