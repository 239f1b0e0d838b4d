package gemini

import "github.com/rhuss/vermittler/pkg/format"

// generateRequest is the request body for :generateContent and
// :streamGenerateContent.
type generateRequest struct {
	SystemInstruction *content            `json:"systemInstruction,omitempty"`
	Contents          []content           `json:"contents"`
	Tools             []format.GeminiTool `json:"tools,omitempty"`
	GenerationConfig  *generationConfig   `json:"generationConfig,omitempty"`
}

// content is one conversation entry: role "user" or "model".
type content struct {
	Role  string              `json:"role,omitempty"`
	Parts []format.GeminiPart `json:"parts"`
}

// generationConfig carries sampling parameters.
type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// generateResponse is one response body or streaming chunk.
type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	Error         *geminiError   `json:"error,omitempty"`
}

// candidate is one generated candidate; only candidates[0] is used.
type candidate struct {
	Content      *content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// usageMetadata holds Gemini token counts.
type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// geminiError is the google.rpc error envelope.
type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// errorResponse is the HTTP error body.
type errorResponse struct {
	Error geminiError `json:"error"`
}
