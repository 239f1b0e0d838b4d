// Package engine implements the agent loop orchestrator. The Engine drives
// one or more adapter invocations per request: it merges registered server
// tools with caller-supplied client declarations, forwards unified stream
// events, intercepts completed tool calls, executes server tools in call
// order, feeds results back into the conversation, and repeats until the
// model produces a final answer, defers to the client, or the iteration cap
// is reached. A non-streaming path runs the identical loop over
// Adapter.Complete and synthesizes lifecycle events so consumers see one
// event shape regardless of path.
package engine
