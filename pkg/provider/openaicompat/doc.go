// Package openaicompat implements the shared adapter for any backend that
// speaks the OpenAI Chat Completions wire protocol. One implementation,
// parameterized by a vendor preset, serves OpenAI, xAI, Azure OpenAI,
// Ollama, and Google's OpenAI-compatible endpoint: the presets differ only
// in base URL, endpoint path, and authentication style.
//
// The adapter handles request serialization, SSE chunk streaming with
// tool-call argument buffering, non-streaming completion, and error
// mapping into the unified taxonomy.
package openaicompat
