// Package api defines the unified conversation protocol spoken between
// callers, the agent loop, and the provider adapters.
//
// This package provides the vendor-independent data model (messages, tool
// calls, tool declarations, token usage) and the closed stream event
// vocabulary every adapter normalizes into. Each StreamEvent serializes as
// a single JSON object, suitable for one SSE "data:" line.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O.
//
// Core types:
//   - [Message]: one conversational turn (system, user, assistant, tool)
//   - [ToolCall]: a model-requested tool invocation with JSON arguments
//   - [Request]: the provider-facing inference request
//   - [StreamEvent]: one event in the unified streaming protocol
//   - [Result]: the aggregate built by draining an event stream
//   - [APIError]: structured error with type, vendor code, and message
package api
