package config

import (
	"errors"
	"fmt"
)

// knownVendors lists the vendor adapter names the gateway can construct.
var knownVendors = map[string]bool{
	"openai":        true,
	"anthropic":     true,
	"gemini":        true,
	"xai":           true,
	"azure":         true,
	"ollama":        true,
	"google-openai": true,
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// At least one vendor must be configured.
	if len(c.Vendors) == 0 {
		errs = append(errs, fmt.Errorf("at least one vendors entry is required"))
	}

	for name, vc := range c.Vendors {
		if !knownVendors[name] {
			errs = append(errs, fmt.Errorf("vendors.%s: unknown vendor", name))
			continue
		}
		switch name {
		case "azure":
			if vc.BaseURL == "" {
				errs = append(errs, fmt.Errorf("vendors.azure.base_url is required"))
			}
			if vc.Deployment == "" {
				errs = append(errs, fmt.Errorf("vendors.azure.deployment is required"))
			}
		case "ollama":
			if vc.BaseURL == "" {
				errs = append(errs, fmt.Errorf("vendors.ollama.base_url is required"))
			}
		}
	}

	// engine.vendor must name a configured vendor; when unset it may only
	// be omitted with exactly one vendor configured.
	if c.Engine.Vendor != "" {
		if _, ok := c.Vendors[c.Engine.Vendor]; !ok {
			errs = append(errs, fmt.Errorf("engine.vendor %q has no vendors entry", c.Engine.Vendor))
		}
	} else if len(c.Vendors) > 1 {
		errs = append(errs, fmt.Errorf("engine.vendor is required when multiple vendors are configured"))
	}

	if c.Engine.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("engine.max_iterations must be >= 0, got %d", c.Engine.MaxIterations))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch srv.Transport {
		case "", "sse", "streamable-http":
			// valid; empty defaults to streamable-http
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
	}

	return errors.Join(errs...)
}

// ActiveVendor returns the vendor name the engine should serve. With a
// single configured vendor the explicit engine.vendor setting is optional.
func (c *Config) ActiveVendor() string {
	if c.Engine.Vendor != "" {
		return c.Engine.Vendor
	}
	for name := range c.Vendors {
		return name
	}
	return ""
}
