// Package anthropic implements the adapter for the Anthropic Messages API.
// The Messages API differs structurally from Chat Completions: content is
// a list of typed blocks (text, thinking, tool_use, tool_result), tool
// results must open the user turn that immediately follows the assistant
// turn containing the matching tool_use blocks, and turns must strictly
// alternate between user and assistant. The serializer here enforces both
// rules when rebuilding conversation history.
package anthropic
