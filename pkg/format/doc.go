// Package format holds the per-vendor tool format transforms: unified tool
// declarations into vendor tool schemas, vendor tool-call payloads into
// unified calls, unified results into vendor tool-result payloads, plus the
// stop-reason mapping and the message builders the agent loop uses to extend
// conversation history between turns.
//
// Formatters are looked up by vendor name through a static registry map;
// OpenAI-compatible vendors (xAI, Azure, Ollama, Google's OpenAI-compatible
// endpoint) alias to the openai formatter.
package format
