// Command mock-backend runs a deterministic Chat Completions server for
// exercising the gateway without a real vendor. Point a vendor entry at it
// (e.g. vendors.ollama.base_url) and drive full agent loop cycles: when the
// request declares tools it answers with a tool call, and once a tool
// result appears in the history it produces a final answer from it.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role       string `json:"role"`
	Content    any    `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := respond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-model"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// respond implements the scripted conversation: tool declarations trigger a
// call on the first turn, a present tool result produces the final answer.
func respond(req *chatRequest) chatResponse {
	if result := lastToolResult(req); result != "" {
		return makeTextResponse(fmt.Sprintf("Based on the tool result: %s", result))
	}
	if len(req.Tools) > 0 {
		return makeToolCallResponse(req.Tools[0].Function.Name)
	}
	if hasImageContent(req) {
		return makeTextResponse("I can see the image you shared. It appears to be a small red icon or symbol.")
	}

	text := "Hello, nice day!"
	lastMsg := lastUserMessage(req)
	if strings.Contains(strings.ToLower(lastMsg), "count from 1 to 5") {
		text = "1, 2, 3, 4, 5"
	}
	return makeTextResponse(text)
}

func makeToolCallResponse(toolName string) chatResponse {
	if toolName == "" {
		toolName = "get_weather"
	}
	return chatResponse{
		ID:     "chatcmpl-mock-tool",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role: "assistant",
					ToolCalls: []toolCall{
						{
							ID:   "call_mock_1",
							Type: "function",
							Function: funcCall{
								Name:      toolName,
								Arguments: `{"location":"San Francisco","unit":"celsius"}`,
							},
						},
					},
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: chatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
	}
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	// Tool call turn: declared tools and no result yet.
	if len(req.Tools) > 0 && lastToolResult(req) == "" {
		writeRoleChunk(w, model)
		flusher.Flush()
		writeToolCallChunk(w, model, req.Tools[0].Function.Name)
		flusher.Flush()
		writeFinishChunk(w, model, 15, "tool_calls")
		flusher.Flush()
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
		return
	}

	// Text turn, token by token.
	var tokens []string
	if result := lastToolResult(req); result != "" {
		tokens = []string{"Based", " on", " the", " tool", " result: ", result}
	} else {
		tokens = []string{"Hello", ", ", "nice", " ", "day", "!"}
		lastMsg := lastUserMessage(req)
		if strings.Contains(strings.ToLower(lastMsg), "count from 1 to 5") {
			tokens = []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
		}
	}

	writeRoleChunk(w, model)
	flusher.Flush()

	for _, token := range tokens {
		writeContentChunk(w, model, token)
		flusher.Flush()
	}

	writeFinishChunk(w, model, len(tokens), "stop")
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeRoleChunk(w http.ResponseWriter, model string) {
	writeChunk(w, model, map[string]any{"role": "assistant"}, nil)
}

func writeContentChunk(w http.ResponseWriter, model, content string) {
	writeChunk(w, model, map[string]any{"content": content}, nil)
}

func writeToolCallChunk(w http.ResponseWriter, model, toolName string) {
	if toolName == "" {
		toolName = "get_weather"
	}
	writeChunk(w, model, map[string]any{
		"tool_calls": []any{
			map[string]any{
				"index": 0,
				"id":    "call_mock_1",
				"type":  "function",
				"function": map[string]any{
					"name":      toolName,
					"arguments": `{"location":"San Francisco","unit":"celsius"}`,
				},
			},
		},
	}, nil)
}

func writeFinishChunk(w http.ResponseWriter, model string, tokenCount int, reason string) {
	writeChunk(w, model, map[string]any{}, map[string]any{
		"finish_reason": reason,
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": tokenCount,
			"total_tokens":      10 + tokenCount,
		},
	})
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, extra map[string]any) {
	choice := map[string]any{
		"index":         0,
		"delta":         delta,
		"finish_reason": nil,
	}
	chunk := map[string]any{
		"id":      "chatcmpl-mock-stream",
		"object":  "chat.completion.chunk",
		"model":   model,
		"choices": []any{choice},
	}
	if extra != nil {
		if fr, ok := extra["finish_reason"]; ok {
			choice["finish_reason"] = fr
		}
		if usage, ok := extra["usage"]; ok {
			chunk["usage"] = usage
		}
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "vermittler-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			switch v := req.Messages[i].Content.(type) {
			case string:
				return v
			case []any:
				// Multimodal content array: find text part.
				for _, part := range v {
					if m, ok := part.(map[string]any); ok {
						if t, ok := m["type"].(string); ok && t == "text" {
							if text, ok := m["text"].(string); ok {
								return text
							}
						}
					}
				}
			}
		}
	}
	return ""
}

func lastToolResult(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "tool" {
			if s, ok := req.Messages[i].Content.(string); ok {
				return s
			}
		}
	}
	return ""
}

func hasImageContent(req *chatRequest) bool {
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			if parts, ok := msg.Content.([]any); ok {
				for _, part := range parts {
					if m, ok := part.(map[string]any); ok {
						if t, ok := m["type"].(string); ok && t == "image_url" {
							return true
						}
					}
				}
			}
		}
	}
	return false
}
