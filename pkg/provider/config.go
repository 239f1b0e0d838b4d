package provider

import "time"

// Config holds the vendor-independent settings needed to construct an
// adapter. Vendor-specific fields (APIVersion, Deployment) are interpreted
// by the adapter that needs them and ignored by the rest.
type Config struct {
	// BaseURL overrides the vendor's default endpoint. Required for
	// self-hosted backends (Ollama, Azure deployments), optional elsewhere.
	BaseURL string

	// APIKey authenticates against the vendor. May be empty for local
	// backends.
	APIKey string

	// APIVersion is the vendor API version where one applies (Azure
	// api-version query parameter, Anthropic version header override).
	APIVersion string

	// Deployment names an Azure OpenAI deployment.
	Deployment string

	// Headers are additional static headers sent with every request.
	Headers map[string]string

	// Timeout bounds non-streaming requests. Zero means the adapter
	// default. Streaming requests are bounded by context cancellation only.
	Timeout time.Duration
}
