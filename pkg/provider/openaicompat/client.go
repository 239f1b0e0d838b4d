package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/debug"
	"github.com/rhuss/vermittler/pkg/provider"
)

// Adapter talks to one OpenAI-compatible backend, selected by preset.
type Adapter struct {
	preset     Preset
	cfg        provider.Config
	baseURL    string
	httpClient *http.Client
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an adapter for the given preset and configuration.
func New(preset Preset, cfg provider.Config) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Adapter{
		preset:  preset,
		cfg:     cfg,
		baseURL: resolveBaseURL(preset, cfg),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the vendor identifier of the active preset.
func (a *Adapter) Name() string { return a.preset.Vendor }

// Capabilities returns the preset's declared capabilities.
func (a *Adapter) Capabilities() provider.Capabilities { return a.preset.Capabilities }

// newHTTPRequest builds an authorized POST against the completions endpoint.
func (a *Adapter) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	url := a.preset.completionsURL(a.baseURL, a.cfg)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range a.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	a.preset.authorize(httpReq, a.cfg)

	debug.Log("providers", "backend request", "vendor", a.preset.Vendor, "url", url)
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

	var chatResp ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(&chatResp), nil
}

// translateResponse converts a non-streaming response into a Completion,
// using only choices[0].
func translateResponse(resp *ChatResponse) *provider.Completion {
	completion := &provider.Completion{
		FinishReason: api.FinishUnknown,
	}

	if resp.Usage != nil {
		completion.Usage = api.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if len(resp.Choices) == 0 {
		return completion
	}
	choice := resp.Choices[0]

	completion.Text = contentString(choice.Message.Content)
	completion.Thinking = contentString(choice.Message.ReasoningContent)
	completion.FinishReason = chatFormat.MapFinishReason(choice.FinishReason)

	for _, tc := range chatFormat.ParseToolCalls(choice.Message.ToolCalls) {
		tc.Args = normalizeArgs(tc.Args)
		completion.ToolCalls = append(completion.ToolCalls, tc)
	}

	// A backend that reports stop but emitted tool calls still means
	// tool calls.
	if len(completion.ToolCalls) > 0 && completion.FinishReason == api.FinishStop {
		completion.FinishReason = api.FinishToolCalls
	}

	return completion
}

// Stream performs streaming inference. The returned channel receives
// unified events and is closed when the stream ends. The HTTP client
// timeout is not applied: a stream can legitimately outlast any fixed
// timeout, so lifecycle control relies on the context.
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

// normalizeArgs resolves empty or invalid argument text to an empty JSON
// object so downstream consumers always see complete JSON. A model that
// emits broken argument fragments still gets its tool called.
func normalizeArgs(args string) string {
	if args == "" || !json.Valid([]byte(args)) {
		return "{}"
	}
	return args
}
