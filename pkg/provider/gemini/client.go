package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rhuss/vermittler/pkg/api"
	"github.com/rhuss/vermittler/pkg/debug"
	"github.com/rhuss/vermittler/pkg/provider"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Adapter talks to the native Gemini generateContent API.
type Adapter struct {
	cfg        provider.Config
	baseURL    string
	httpClient *http.Client
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates a Gemini adapter.
func New(cfg provider.Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Adapter{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:   true,
		ToolCalling: true,
		Vision:      true,
		Documents:   true,
		Thinking:    true,
	}
}

// newHTTPRequest builds an authorized POST against a model method.
// Gemini routes by model name in the path, e.g.
// /models/gemini-2.0-flash:generateContent.
func (a *Adapter) newHTTPRequest(ctx context.Context, model, method, query string, body []byte) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/models/%s:%s", a.baseURL, url.PathEscape(model), method)
	if query != "" {
		endpoint += "?" + query
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		httpReq.Header.Set("x-goog-api-key", a.cfg.APIKey)
	}
	for k, v := range a.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	debug.Log("providers", "backend request", "vendor", "gemini", "url", endpoint)
	debug.Raw("providers", string(body))
	return httpReq, nil
}

// Complete performs non-streaming inference via :generateContent.
func (a *Adapter) Complete(ctx context.Context, req *api.Request) (*provider.Completion, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newHTTPRequest(ctx, req.Model, "generateContent", "", body)
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

	var gr generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&gr); err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return translateResponse(&gr), nil
}

// translateResponse flattens candidates[0] into a Completion. Function
// call parts get synthesized ids since Gemini assigns none.
func translateResponse(gr *generateResponse) *provider.Completion {
	completion := &provider.Completion{
		FinishReason: api.FinishUnknown,
	}
	if gr.UsageMetadata != nil {
		completion.Usage = api.TokenUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}

	if len(gr.Candidates) == 0 {
		return completion
	}
	cand := gr.Candidates[0]
	completion.FinishReason = geminiFormat.MapFinishReason(cand.FinishReason)

	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				args := string(part.FunctionCall.Args)
				if args == "" {
					args = "{}"
				}
				completion.ToolCalls = append(completion.ToolCalls, api.ToolCall{
					ID:   api.NewCallID(),
					Name: part.FunctionCall.Name,
					Args: args,
				})
			case part.Thought:
				completion.Thinking += part.Text
			case part.Text != "":
				completion.Text += part.Text
			}
		}
	}

	// Gemini signals tool intent with functionCall parts, not a stop
	// reason.
	if len(completion.ToolCalls) > 0 && completion.FinishReason == api.FinishStop {
		completion.FinishReason = api.FinishToolCalls
	}

	return completion
}

// Stream performs streaming inference via :streamGenerateContent?alt=sse.
func (a *Adapter) Stream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	httpReq, err := a.newHTTPRequest(ctx, req.Model, "streamGenerateContent", "alt=sse", body)
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
// the google.rpc status as the vendor code.
func mapHTTPError(resp *http.Response) *api.APIError {
	code := fmt.Sprintf("http_%d", resp.StatusCode)
	message := fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
			message = er.Error.Message
			if er.Error.Status != "" {
				code = er.Error.Status
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
