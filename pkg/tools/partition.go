package tools

import "github.com/rhuss/vermittler/pkg/api"

// Partition splits one turn's tool calls into server-executable calls and
// client-deferred calls, preserving call order within each group. A call
// is server-executable only when the registry holds a server definition
// with a handler for it; everything else goes back to the client.
func (r *Registry) Partition(calls []api.ToolCall) (server, client []api.ToolCall) {
	for _, call := range calls {
		def, ok := r.Lookup(call.Name)
		if ok && def.Location == api.ToolLocationServer && def.Handler != nil {
			server = append(server, call)
		} else {
			client = append(client, call)
		}
	}
	return server, client
}
