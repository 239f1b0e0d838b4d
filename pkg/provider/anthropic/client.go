package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/debug"
	"github.com/rhuss/vermittler/pkg/provider"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
)

// Adapter talks to the Anthropic Messages API.
type Adapter struct {
	cfg        provider.Config
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an Anthropic adapter.
func New(cfg provider.Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Adapter{
		cfg:        cfg,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:   true,
		ToolCalling: true,
		Vision:      true,
		Documents:   true,
		Thinking:    true,
	}
}

// newHTTPRequest builds an authorized POST against /v1/messages. The API
// authenticates with x-api-key plus a version header, not a bearer token.
func (a *Adapter) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", a.apiVersion)
	for k, v := range a.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	debug.Log("providers", "backend request", "vendor", "anthropic", "url", httpReq.URL.String())
	debug.Raw("providers", string(body))
	return httpReq, nil
}

// Complete performs non-streaming inference.
func (a *Adapter) Complete(ctx context.Context, req *api.Request) (*provider.Completion, error) {
	body, err := json.Marshal(buildRequest(req, false))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var mr messagesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&mr); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(&mr), nil
}

// translateResponse flattens the response content blocks into a
// Completion.
func translateResponse(mr *messagesResponse) *provider.Completion {
	completion := &provider.Completion{
		FinishReason: anthropicFormat.MapFinishReason(mr.StopReason),
	}
	if mr.Usage != nil {
		completion.Usage = api.TokenUsage{
			PromptTokens:     mr.Usage.InputTokens,
			CompletionTokens: mr.Usage.OutputTokens,
			TotalTokens:      mr.Usage.InputTokens + mr.Usage.OutputTokens,
		}
	}

	for _, block := range mr.Content {
		switch block.Type {
		case "text":
			completion.Text += block.Text
		case "thinking":
			completion.Thinking += block.Text
		case "tool_use":
			id := block.ID
			if id == "" {
				id = api.NewCallID()
			}
			completion.ToolCalls = append(completion.ToolCalls, api.ToolCall{
				ID:   id,
				Name: block.Name,
				Args: string(rawArgs(string(block.Input))),
			})
		}
	}

	return completion
}

// Stream performs streaming inference. Lifecycle control for the stream
// relies on context cancellation, not the client timeout.
func (a *Adapter) Stream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error) {
	body, err := json.Marshal(buildRequest(req, true))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: a.httpClient.Transport}
	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, mapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// Close releases idle connections.
func (a *Adapter) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// mapHTTPError converts a non-2xx response into a transport error carrying
// the Anthropic error type as the vendor code.
func mapHTTPError(resp *http.Response) *api.APIError {
	code := fmt.Sprintf("http_%d", resp.StatusCode)
	message := fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
			message = er.Error.Message
			if er.Error.Type != "" {
				code = er.Error.Type
			}
		}
	}

	if resp.StatusCode == http.StatusBadRequest {
		return api.NewInvalidRequestError("", message)
	}
	return api.NewTransportError(code, message)
}

func mapNetworkError(err error) *api.APIError {
	return api.NewTransportError("connection_error",
		fmt.Sprintf("backend connection error: %s", err.Error()))
}
