// Package config provides unified configuration for the vermittler gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (VERMITTLER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the vermittler gateway.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Engine        EngineConfig            `yaml:"engine"`
	Vendors       map[string]VendorConfig `yaml:"vendors"`
	Auth          AuthConfig              `yaml:"auth"`
	MCP           MCPConfig               `yaml:"mcp"`
	Observability ObservabilityConfig     `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s, must cover streaming
}

// EngineConfig holds agent loop settings.
type EngineConfig struct {
	Vendor        string `yaml:"vendor"`         // which vendors entry to serve, default: sole configured vendor
	DefaultModel  string `yaml:"default_model"`  // used when a request omits model
	MaxIterations int    `yaml:"max_iterations"` // default: 20
}

// VendorConfig holds the connection settings for one LLM vendor.
// The map key in Config.Vendors selects the adapter ("openai", "anthropic",
// "gemini", "xai", "azure", "ollama", "google-openai").
type VendorConfig struct {
	BaseURL    string            `yaml:"base_url"`     // required for azure and ollama, optional elsewhere
	APIKey     string            `yaml:"api_key"`      // optional for local backends
	APIKeyFile string            `yaml:"api_key_file"` // _file variant for api_key
	APIVersion string            `yaml:"api_version"`  // Azure api-version, Anthropic version header
	Deployment string            `yaml:"deployment"`   // Azure OpenAI deployment name
	Headers    map[string]string `yaml:"headers"`      // extra static headers per request
	Timeout    time.Duration     `yaml:"timeout"`      // non-streaming request timeout
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`       // "none", "apikey", or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`   // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`        // settings for type=jwt
	RateLimit RateLimitConfig `yaml:"rate_limit"` // optional per-tier limiting
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	ServiceTier string `yaml:"service_tier"`
}

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	JWKSURL  string `yaml:"jwks_url"`
}

// RateLimitConfig holds in-process rate limiter settings.
type RateLimitConfig struct {
	Enabled    bool           `yaml:"enabled"`
	DefaultRPM int            `yaml:"default_rpm"` // default: 60
	Tiers      map[string]int `yaml:"tiers"`       // tier name -> requests per minute
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Engine: EngineConfig{
			MaxIterations: 20,
		},
		Auth: AuthConfig{
			Type: "none",
			RateLimit: RateLimitConfig{
				DefaultRPM: 60,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
