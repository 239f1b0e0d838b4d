package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, VERMITTLER_CONFIG env, ./config.yaml, /etc/vermittler/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. VERMITTLER_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/vermittler/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check VERMITTLER_CONFIG env var.
	if envPath := os.Getenv("VERMITTLER_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/vermittler/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
//
// Scalar settings use dedicated VERMITTLER_* variables. Per-vendor API keys
// use VERMITTLER_<VENDOR>_API_KEY (dashes in the vendor name become
// underscores, e.g. VERMITTLER_GOOGLE_OPENAI_API_KEY).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VERMITTLER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VERMITTLER_VENDOR"); v != "" {
		cfg.Engine.Vendor = v
	}
	if v := os.Getenv("VERMITTLER_MODEL"); v != "" {
		cfg.Engine.DefaultModel = v
	}
	if v := os.Getenv("VERMITTLER_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxIterations = n
		}
	}
	if v := os.Getenv("VERMITTLER_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}

	// Per-vendor API key overrides. These also create the vendor entry
	// when it is absent, so a key-only setup needs no YAML file.
	for _, vendor := range []string{"openai", "anthropic", "gemini", "xai", "azure", "ollama", "google-openai"} {
		envName := "VERMITTLER_" + strings.ToUpper(strings.ReplaceAll(vendor, "-", "_")) + "_API_KEY"
		v := os.Getenv(envName)
		if v == "" {
			continue
		}
		if cfg.Vendors == nil {
			cfg.Vendors = make(map[string]VendorConfig)
		}
		vc := cfg.Vendors[vendor]
		vc.APIKey = v
		cfg.Vendors[vendor] = vc
	}

	// VERMITTLER_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("VERMITTLER_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	// VERMITTLER_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("VERMITTLER_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// vendors.<name>.api_key_file -> vendors.<name>.api_key
	for name, vc := range cfg.Vendors {
		if vc.APIKeyFile != "" && vc.APIKey == "" {
			val, err := readSecretFile(vc.APIKeyFile)
			if err != nil {
				return fmt.Errorf("vendors.%s.api_key_file: %w", name, err)
			}
			vc.APIKey = val
			cfg.Vendors[name] = vc
		}
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
