// Package transport defines the event consumption surface between the
// orchestrator and external callers: the ChatHandler contract, the
// EventWriter abstraction over streaming and aggregate output, middleware
// for cross-cutting behavior, and error-to-HTTP mapping. The HTTP binding
// lives in the http subpackage.
package transport
