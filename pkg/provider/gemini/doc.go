// Package gemini implements the adapter for the native Gemini
// generateContent API. Gemini differs from both other vendor families:
// conversations are "contents" with user/model roles, tool calls arrive as
// complete functionCall parts without call ids (ids are synthesized here),
// and tool results go back as functionResponse parts matched by function
// name inside a user turn.
package gemini
