// Package tools defines the tool runtime for the vermittler agent loop:
// tool definitions with server or client execution location, the handler
// contract for server tools, the read-only registry consulted at request
// entry, and the AI-response policy that governs what the model is told
// about a server tool's result.
//
// Server tools carry a Handler and run in-process, sequentially, inside
// the loop. Client tools are declarations only; their calls are returned
// to the caller for external execution.
package tools
