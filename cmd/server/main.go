// Command server runs the vermittler gateway.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, VERMITTLER_CONFIG, ./config.yaml, /etc/vermittler/config.yaml),
// then VERMITTLER_* environment overrides. See pkg/config for the full
// reference.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/vermittler/pkg/auth"
	"github.com/rhuss/vermittler/pkg/auth/apikey"
	"github.com/rhuss/vermittler/pkg/auth/jwt"
	"github.com/rhuss/vermittler/pkg/config"
	"github.com/rhuss/vermittler/pkg/debug"
	"github.com/rhuss/vermittler/pkg/engine"
	"github.com/rhuss/vermittler/pkg/observability"
	"github.com/rhuss/vermittler/pkg/provider"
	"github.com/rhuss/vermittler/pkg/provider/vendors"
	"github.com/rhuss/vermittler/pkg/tools"
	"github.com/rhuss/vermittler/pkg/tools/mcp"
	transporthttp "github.com/rhuss/vermittler/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	debug.Init("", "")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	vendor := cfg.ActiveVendor()
	vc := cfg.Vendors[vendor]
	adapter, err := vendors.New(vendor, provider.Config{
		BaseURL:    vc.BaseURL,
		APIKey:     vc.APIKey,
		APIVersion: vc.APIVersion,
		Deployment: vc.Deployment,
		Headers:    vc.Headers,
		Timeout:    vc.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating adapter: %w", err)
	}

	// Assemble the server tool registry from configured MCP servers.
	registry := tools.NewRegistry()
	if len(cfg.MCP.Servers) > 0 {
		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		clients, err := mcp.Connect(connectCtx, mcpConfig(cfg.MCP), registry)
		if err != nil {
			return fmt.Errorf("connecting MCP servers: %w", err)
		}
		defer func() {
			for _, c := range clients {
				c.Close()
			}
		}()
		slog.Info("MCP tools registered", "servers", len(clients), "tools", len(registry.Definitions()))
	}
	registry.Seal()

	eng, err := engine.New(adapter, registry, engine.Config{
		DefaultModel:  cfg.Engine.DefaultModel,
		MaxIterations: cfg.Engine.MaxIterations,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	srv := transporthttp.NewServer(eng,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
	)

	handler, err := buildHandler(cfg, srv.Adapter().Handler())
	if err != nil {
		return err
	}
	srv.SetHandler(handler)

	slog.Info("gateway starting",
		"port", cfg.Server.Port,
		"vendor", vendor,
		"model", cfg.Engine.DefaultModel,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

// buildHandler wraps the transport handler with auth and metrics
// middleware and mounts the Prometheus endpoint.
func buildHandler(cfg *config.Config, inner http.Handler) (http.Handler, error) {
	handler := inner

	if cfg.Auth.Type != "none" {
		chain, err := buildAuthChain(cfg.Auth)
		if err != nil {
			return nil, err
		}
		limiter := buildLimiter(cfg.Auth.RateLimit)
		handler = auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints)(handler)
	}

	if cfg.Observability.Metrics.Enabled {
		handler = observability.MetricsMiddleware(handler)
		mux := http.NewServeMux()
		mux.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
		mux.Handle("/", handler)
		handler = mux
	}

	return handler, nil
}

func buildAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	chain := &auth.AuthChain{DefaultDecision: auth.No}

	switch cfg.Type {
	case "apikey":
		var entries []apikey.RawKeyEntry
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
				},
			})
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("auth.type is \"apikey\" but no auth.api_keys are configured")
		}
		chain.Authenticators = append(chain.Authenticators, apikey.New(entries))

	case "jwt":
		chain.Authenticators = append(chain.Authenticators, jwt.New(jwt.Config{
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			JWKSURL:  cfg.JWT.JWKSURL,
		}))

	default:
		return nil, fmt.Errorf("unsupported auth.type %q", cfg.Type)
	}

	return chain, nil
}

func buildLimiter(cfg config.RateLimitConfig) auth.RateLimiter {
	if !cfg.Enabled {
		return nil
	}
	tiers := make(map[string]auth.TierConfig, len(cfg.Tiers))
	for name, rpm := range cfg.Tiers {
		tiers[name] = auth.TierConfig{RequestsPerMinute: rpm}
	}
	return auth.NewInProcessLimiter(tiers, cfg.DefaultRPM)
}

// mcpConfig maps the gateway config section onto the MCP package's own
// configuration type.
func mcpConfig(cfg config.MCPConfig) mcp.Config {
	servers := make([]mcp.ServerConfig, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, mcp.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			URL:       s.URL,
			Headers:   s.Headers,
		})
	}
	return mcp.Config{Servers: servers}
}
