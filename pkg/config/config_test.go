package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default server.read_timeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 300*time.Second {
		t.Errorf("default server.write_timeout = %v, want 300s", cfg.Server.WriteTimeout)
	}
	if cfg.Engine.MaxIterations != 20 {
		t.Errorf("default engine.max_iterations = %d, want 20", cfg.Engine.MaxIterations)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("default auth.type = %q, want \"none\"", cfg.Auth.Type)
	}
	if cfg.Auth.RateLimit.DefaultRPM != 60 {
		t.Errorf("default auth.rate_limit.default_rpm = %d, want 60", cfg.Auth.RateLimit.DefaultRPM)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = false, want true")
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  port: 9090
  read_timeout: 60s
  write_timeout: 180s
engine:
  vendor: anthropic
  default_model: claude-sonnet-4
  max_iterations: 5
vendors:
  anthropic:
    api_key: sk-ant-test
    api_version: "2023-06-01"
  ollama:
    base_url: http://localhost:11434
    timeout: 90s
auth:
  type: apikey
  api_keys:
    - key: sk-key-1
      subject: alice
      service_tier: premium
    - key: sk-key-2
      subject: bob
mcp:
  servers:
    - name: my-server
      transport: streamable-http
      url: http://localhost:3000/mcp
      headers:
        Authorization: "Bearer tok-123"
`

	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("server.read_timeout = %v, want 60s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 180*time.Second {
		t.Errorf("server.write_timeout = %v, want 180s", cfg.Server.WriteTimeout)
	}

	// Engine
	if cfg.Engine.Vendor != "anthropic" {
		t.Errorf("engine.vendor = %q, want \"anthropic\"", cfg.Engine.Vendor)
	}
	if cfg.Engine.DefaultModel != "claude-sonnet-4" {
		t.Errorf("engine.default_model = %q, want \"claude-sonnet-4\"", cfg.Engine.DefaultModel)
	}
	if cfg.Engine.MaxIterations != 5 {
		t.Errorf("engine.max_iterations = %d, want 5", cfg.Engine.MaxIterations)
	}

	// Vendors
	anthropic, ok := cfg.Vendors["anthropic"]
	if !ok {
		t.Fatal("vendors.anthropic missing")
	}
	if anthropic.APIKey != "sk-ant-test" {
		t.Errorf("vendors.anthropic.api_key = %q, want \"sk-ant-test\"", anthropic.APIKey)
	}
	if anthropic.APIVersion != "2023-06-01" {
		t.Errorf("vendors.anthropic.api_version = %q, want \"2023-06-01\"", anthropic.APIVersion)
	}
	ollama, ok := cfg.Vendors["ollama"]
	if !ok {
		t.Fatal("vendors.ollama missing")
	}
	if ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("vendors.ollama.base_url = %q, want \"http://localhost:11434\"", ollama.BaseURL)
	}
	if ollama.Timeout != 90*time.Second {
		t.Errorf("vendors.ollama.timeout = %v, want 90s", ollama.Timeout)
	}

	// Auth
	if cfg.Auth.Type != "apikey" {
		t.Errorf("auth.type = %q, want \"apikey\"", cfg.Auth.Type)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Fatalf("auth.api_keys length = %d, want 2", len(cfg.Auth.APIKeys))
	}
	if cfg.Auth.APIKeys[0].Key != "sk-key-1" {
		t.Errorf("auth.api_keys[0].key = %q, want \"sk-key-1\"", cfg.Auth.APIKeys[0].Key)
	}
	if cfg.Auth.APIKeys[0].Subject != "alice" {
		t.Errorf("auth.api_keys[0].subject = %q, want \"alice\"", cfg.Auth.APIKeys[0].Subject)
	}
	if cfg.Auth.APIKeys[0].ServiceTier != "premium" {
		t.Errorf("auth.api_keys[0].service_tier = %q, want \"premium\"", cfg.Auth.APIKeys[0].ServiceTier)
	}

	// MCP
	if len(cfg.MCP.Servers) != 1 {
		t.Fatalf("mcp.servers length = %d, want 1", len(cfg.MCP.Servers))
	}
	if cfg.MCP.Servers[0].Name != "my-server" {
		t.Errorf("mcp.servers[0].name = %q, want \"my-server\"", cfg.MCP.Servers[0].Name)
	}
	if cfg.MCP.Servers[0].Transport != "streamable-http" {
		t.Errorf("mcp.servers[0].transport = %q, want \"streamable-http\"", cfg.MCP.Servers[0].Transport)
	}
	if cfg.MCP.Servers[0].Headers["Authorization"] != "Bearer tok-123" {
		t.Errorf("mcp.servers[0].headers[Authorization] = %q, want \"Bearer tok-123\"", cfg.MCP.Servers[0].Headers["Authorization"])
	}
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
engine:
  vendor: openai
  default_model: yaml-model
vendors:
  openai:
    api_key: sk-from-yaml
server:
  port: 9090
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("VERMITTLER_MODEL", "env-model")
	t.Setenv("VERMITTLER_PORT", "7070")
	t.Setenv("VERMITTLER_MAX_ITERATIONS", "7")
	t.Setenv("VERMITTLER_OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.DefaultModel != "env-model" {
		t.Errorf("engine.default_model = %q, want env override", cfg.Engine.DefaultModel)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Engine.MaxIterations != 7 {
		t.Errorf("engine.max_iterations = %d, want env override 7", cfg.Engine.MaxIterations)
	}
	if cfg.Vendors["openai"].APIKey != "sk-from-env" {
		t.Errorf("vendors.openai.api_key = %q, want env override", cfg.Vendors["openai"].APIKey)
	}
}

func TestEnvOnlySetup(t *testing.T) {
	// No config file, only env vars. The vendor entry is created by the
	// API key override.
	t.Setenv("VERMITTLER_VENDOR", "gemini")
	t.Setenv("VERMITTLER_MODEL", "gemini-2.0-flash")
	t.Setenv("VERMITTLER_PORT", "3000")
	t.Setenv("VERMITTLER_GEMINI_API_KEY", "g-key")
	t.Setenv("VERMITTLER_AUTH_TYPE", "apikey")
	t.Setenv("VERMITTLER_API_KEYS", `[{"key":"sk-env","subject":"env-user","service_tier":"standard"}]`)
	t.Setenv("VERMITTLER_MCP_SERVERS", `[{"name":"env-mcp","transport":"sse","url":"http://mcp:3000"}]`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Engine.Vendor != "gemini" {
		t.Errorf("engine.vendor = %q, want \"gemini\"", cfg.Engine.Vendor)
	}
	if cfg.Engine.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("engine.default_model = %q, want env value", cfg.Engine.DefaultModel)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server.port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Vendors["gemini"].APIKey != "g-key" {
		t.Errorf("vendors.gemini.api_key = %q, want \"g-key\"", cfg.Vendors["gemini"].APIKey)
	}
	if cfg.Auth.Type != "apikey" {
		t.Errorf("auth.type = %q, want \"apikey\"", cfg.Auth.Type)
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Fatalf("auth.api_keys length = %d, want 1", len(cfg.Auth.APIKeys))
	}
	if cfg.Auth.APIKeys[0].Subject != "env-user" {
		t.Errorf("auth.api_keys[0].subject = %q, want \"env-user\"", cfg.Auth.APIKeys[0].Subject)
	}
	if len(cfg.MCP.Servers) != 1 {
		t.Fatalf("mcp.servers length = %d, want 1", len(cfg.MCP.Servers))
	}
	if cfg.MCP.Servers[0].Name != "env-mcp" {
		t.Errorf("mcp.servers[0].name = %q, want \"env-mcp\"", cfg.MCP.Servers[0].Name)
	}
}

func TestFileReference(t *testing.T) {
	// Write a secret file.
	secretFile := writeTemp(t, "secret-*.txt", "  sk-from-file-123  \n")

	yamlContent := `
vendors:
  openai:
    api_key_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Vendors["openai"].APIKey != "sk-from-file-123" {
		t.Errorf("vendors.openai.api_key = %q, want \"sk-from-file-123\" (from file, trimmed)", cfg.Vendors["openai"].APIKey)
	}
}

func TestFileReferenceForAPIKeys(t *testing.T) {
	// Write a key file.
	keyFile := writeTemp(t, "apikey-*.txt", "  sk-key-from-file  \n")

	yamlContent := `
vendors:
  openai:
    api_key: sk-x
auth:
  type: apikey
  api_keys:
    - key_file: ` + keyFile + `
      subject: file-user
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Auth.APIKeys) != 1 {
		t.Fatalf("auth.api_keys length = %d, want 1", len(cfg.Auth.APIKeys))
	}
	if cfg.Auth.APIKeys[0].Key != "sk-key-from-file" {
		t.Errorf("auth.api_keys[0].key = %q, want \"sk-key-from-file\"", cfg.Auth.APIKeys[0].Key)
	}
}

func TestFileDiscovery(t *testing.T) {
	// Test 1: Explicit path.
	yamlContent := `
vendors:
  openai:
    api_key: sk-explicit
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load(explicit) error: %v", err)
	}
	if cfg.Vendors["openai"].APIKey != "sk-explicit" {
		t.Errorf("explicit path: api_key = %q, want explicit value", cfg.Vendors["openai"].APIKey)
	}

	// Test 2: VERMITTLER_CONFIG env var.
	envFile := writeTemp(t, "envconfig-*.yaml", `
vendors:
  openai:
    api_key: sk-env-config
`)
	t.Setenv("VERMITTLER_CONFIG", envFile)

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(VERMITTLER_CONFIG) error: %v", err)
	}
	if cfg.Vendors["openai"].APIKey != "sk-env-config" {
		t.Errorf("VERMITTLER_CONFIG: api_key = %q, want env config value", cfg.Vendors["openai"].APIKey)
	}

	// Test 3: No file, no env config, uses defaults + env overrides.
	t.Setenv("VERMITTLER_CONFIG", "")
	t.Setenv("VERMITTLER_OPENAI_API_KEY", "sk-defaults-only")

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(no file) error: %v", err)
	}
	if cfg.Vendors["openai"].APIKey != "sk-defaults-only" {
		t.Errorf("no file: api_key = %q, want env override", cfg.Vendors["openai"].APIKey)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "no vendors",
			modify:  func(c *Config) {},
			wantErr: "at least one vendors entry is required",
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.Server.Port = 0
			},
			wantErr: "server.port must be > 0",
		},
		{
			name: "unknown vendor",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"bedrock": {APIKey: "sk"}}
			},
			wantErr: "vendors.bedrock: unknown vendor",
		},
		{
			name: "azure without base_url",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"azure": {APIKey: "sk", Deployment: "gpt4"}}
			},
			wantErr: "vendors.azure.base_url is required",
		},
		{
			name: "azure without deployment",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"azure": {APIKey: "sk", BaseURL: "https://x.openai.azure.com"}}
			},
			wantErr: "vendors.azure.deployment is required",
		},
		{
			name: "ollama without base_url",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"ollama": {}}
			},
			wantErr: "vendors.ollama.base_url is required",
		},
		{
			name: "engine vendor not configured",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.Engine.Vendor = "anthropic"
			},
			wantErr: `engine.vendor "anthropic" has no vendors entry`,
		},
		{
			name: "ambiguous vendor",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{
					"openai":    {APIKey: "sk"},
					"anthropic": {APIKey: "sk"},
				}
			},
			wantErr: "engine.vendor is required when multiple vendors are configured",
		},
		{
			name: "invalid auth type",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.Auth.Type = "oauth2"
			},
			wantErr: "auth.type must be",
		},
		{
			name: "jwt without jwks_url",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.Auth.Type = "jwt"
			},
			wantErr: "auth.jwt.jwks_url is required",
		},
		{
			name: "mcp server without url",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.MCP.Servers = []MCPServerConfig{{Name: "x"}}
			},
			wantErr: "mcp.servers[0].url is required",
		},
		{
			name: "mcp server invalid transport",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
				c.MCP.Servers = []MCPServerConfig{{Name: "x", URL: "http://x", Transport: "grpc"}}
			},
			wantErr: "mcp.servers[0].transport must be",
		},
		{
			name: "valid config",
			modify: func(c *Config) {
				c.Vendors = map[string]VendorConfig{"openai": {APIKey: "sk"}}
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestActiveVendor(t *testing.T) {
	cfg := Defaults()
	cfg.Vendors = map[string]VendorConfig{"ollama": {BaseURL: "http://localhost:11434"}}
	if got := cfg.ActiveVendor(); got != "ollama" {
		t.Errorf("ActiveVendor() = %q, want \"ollama\" (sole vendor)", got)
	}

	cfg.Vendors["openai"] = VendorConfig{APIKey: "sk"}
	cfg.Engine.Vendor = "openai"
	if got := cfg.ActiveVendor(); got != "openai" {
		t.Errorf("ActiveVendor() = %q, want explicit \"openai\"", got)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	secretFile := writeTemp(t, "secret-*.txt", "sk-from-file")

	yamlContent := `
vendors:
  openai:
    api_key: sk-explicit
    api_key_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// When both api_key and api_key_file are set, the explicit value takes precedence.
	if cfg.Vendors["openai"].APIKey != "sk-explicit" {
		t.Errorf("vendors.openai.api_key = %q, want \"sk-explicit\" (explicit value should win over file)", cfg.Vendors["openai"].APIKey)
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	// A minimal YAML that only configures one vendor.
	// All other fields should retain defaults.
	yamlContent := `
vendors:
  anthropic:
    api_key: sk-ant
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Check that defaults are preserved for unset fields.
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Engine.MaxIterations != 20 {
		t.Errorf("engine.max_iterations = %d, want default 20", cfg.Engine.MaxIterations)
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("observability.metrics.path = %q, want default \"/metrics\"", cfg.Observability.Metrics.Path)
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	return f.Name()
}

// contains checks if s contains substr.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
