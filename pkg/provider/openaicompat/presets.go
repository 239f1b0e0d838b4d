package openaicompat

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rhuss/vermittler/pkg/provider"
)

// Preset captures what distinguishes one OpenAI-compatible vendor from
// another: name, default endpoint, auth style, and how the completions
// URL is built.
type Preset struct {
	// Vendor is the vendor identifier ("openai", "xai", ...).
	Vendor string

	// DefaultBaseURL is used when the config leaves BaseURL empty.
	DefaultBaseURL string

	// Capabilities declared for this vendor.
	Capabilities provider.Capabilities

	// authorize sets the vendor's auth header(s) on a request.
	authorize func(req *http.Request, cfg provider.Config)

	// completionsURL builds the chat completions endpoint URL.
	completionsURL func(baseURL string, cfg provider.Config) string
}

// bearerAuth is the standard Authorization: Bearer scheme.
func bearerAuth(req *http.Request, cfg provider.Config) {
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
}

// standardCompletionsURL appends the canonical Chat Completions path.
func standardCompletionsURL(baseURL string, _ provider.Config) string {
	return baseURL + "/chat/completions"
}

var defaultCapabilities = provider.Capabilities{
	Streaming:   true,
	ToolCalling: true,
	Vision:      true,
	Thinking:    true,
}

// OpenAI is the preset for api.openai.com.
func OpenAI() Preset {
	return Preset{
		Vendor:         "openai",
		DefaultBaseURL: "https://api.openai.com/v1",
		Capabilities:   defaultCapabilities,
		authorize:      bearerAuth,
		completionsURL: standardCompletionsURL,
	}
}

// XAI is the preset for api.x.ai.
func XAI() Preset {
	return Preset{
		Vendor:         "xai",
		DefaultBaseURL: "https://api.x.ai/v1",
		Capabilities:   defaultCapabilities,
		authorize:      bearerAuth,
		completionsURL: standardCompletionsURL,
	}
}

// Azure is the preset for Azure OpenAI deployments. Azure authenticates
// with an api-key header and routes through a per-deployment path with an
// api-version query parameter; BaseURL must point at the resource endpoint.
func Azure() Preset {
	return Preset{
		Vendor:       "azure",
		Capabilities: defaultCapabilities,
		authorize: func(req *http.Request, cfg provider.Config) {
			if cfg.APIKey != "" {
				req.Header.Set("api-key", cfg.APIKey)
			}
		},
		completionsURL: func(baseURL string, cfg provider.Config) string {
			version := cfg.APIVersion
			if version == "" {
				version = "2024-10-21"
			}
			return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
				baseURL, url.PathEscape(cfg.Deployment), url.QueryEscape(version))
		},
	}
}

// Ollama is the preset for a local Ollama instance. No authentication.
func Ollama() Preset {
	return Preset{
		Vendor:         "ollama",
		DefaultBaseURL: "http://localhost:11434/v1",
		Capabilities: provider.Capabilities{
			Streaming:   true,
			ToolCalling: true,
			Vision:      true,
		},
		authorize:      func(*http.Request, provider.Config) {},
		completionsURL: standardCompletionsURL,
	}
}

// GoogleOpenAI is the preset for Gemini's OpenAI-compatible endpoint.
func GoogleOpenAI() Preset {
	return Preset{
		Vendor:         "google-openai",
		DefaultBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Capabilities:   defaultCapabilities,
		authorize:      bearerAuth,
		completionsURL: standardCompletionsURL,
	}
}

// PresetFor returns the preset for an OpenAI-compatible vendor name.
func PresetFor(vendor string) (Preset, bool) {
	switch vendor {
	case "openai":
		return OpenAI(), true
	case "xai":
		return XAI(), true
	case "azure":
		return Azure(), true
	case "ollama":
		return Ollama(), true
	case "google-openai":
		return GoogleOpenAI(), true
	default:
		return Preset{}, false
	}
}

// resolveBaseURL picks the configured base URL over the preset default and
// strips any trailing slash.
func resolveBaseURL(preset Preset, cfg provider.Config) string {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = preset.DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}
