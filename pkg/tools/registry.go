package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/vermittler/pkg/api"
)

// Prometheus metrics for server tool execution.
var (
	toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vermittler_tool_executions_total",
			Help: "Total server tool executions",
		},
		[]string{"tool_name", "status"},
	)

	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vermittler_tool_duration_seconds",
			Help:    "Server tool execution duration",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool_name"},
	)
)

func init() {
	prometheus.MustRegister(toolExecutions, toolDuration)
}

// Registry holds the server tools registered at startup. It is populated
// during assembly, sealed before serving, and only read afterwards: the
// loop consults it at request entry and never mutates it mid-request.
type Registry struct {
	mu     sync.RWMutex
	sealed bool

	defs  map[string]Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a tool definition. Server tools must carry a handler.
// Names are resolved first-come, first-served: a duplicate registration
// is ignored with a warning.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry is sealed, cannot register tool %q", def.Name)
	}
	if def.Name == "" {
		return fmt.Errorf("tool definition requires a name")
	}
	if def.Location == api.ToolLocationServer && def.Handler == nil {
		return fmt.Errorf("server tool %q requires a handler", def.Name)
	}
	if def.Location == "" {
		def.Location = api.ToolLocationServer
	}

	if _, exists := r.defs[def.Name]; exists {
		slog.Warn("tool already registered, keeping first", "tool", def.Name)
		return nil
	}

	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Seal marks the registry read-only. Called once after assembly.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the definition for the named tool.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Definitions returns all registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Merge combines the registered server tools with caller-supplied client
// declarations into the tool set handed to the adapter. A client
// declaration shadowed by a registered server tool is dropped with a
// warning: the server definition wins.
func (r *Registry) Merge(client []api.ToolDecl) []api.ToolDecl {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]api.ToolDecl, 0, len(r.order)+len(client))
	for _, name := range r.order {
		decls = append(decls, r.defs[name].Decl())
	}
	for _, c := range client {
		if _, shadowed := r.defs[c.Name]; shadowed {
			slog.Warn("client tool declaration shadowed by server tool", "tool", c.Name)
			continue
		}
		c.Location = api.ToolLocationClient
		decls = append(decls, c)
	}
	return decls
}

// Execute runs one server tool call and always returns a result: handler
// errors and panics are converted into failed results so the model can
// react, never into a stream error.
func (r *Registry) Execute(ctx context.Context, tc Context, call api.ToolCall) *Result {
	def, ok := r.Lookup(call.Name)
	if !ok || def.Handler == nil {
		toolExecutions.WithLabelValues(call.Name, "unknown").Inc()
		return &Result{
			CallID:  call.ID,
			Content: fmt.Sprintf("unknown tool: %s", call.Name),
			IsError: true,
		}
	}

	start := time.Now()
	res := r.execute(ctx, def, tc, call)
	toolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())

	status := "ok"
	if res.IsError {
		status = "error"
	}
	toolExecutions.WithLabelValues(call.Name, status).Inc()

	res.CallID = call.ID
	return res
}

func (r *Registry) execute(ctx context.Context, def Definition, tc Context, call api.ToolCall) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked", "tool", def.Name, "panic", rec)
			res = &Result{
				CallID:  call.ID,
				Content: fmt.Sprintf("tool %s failed: internal error", def.Name),
				IsError: true,
			}
		}
	}()

	out, err := def.Handler(ctx, tc, call.ArgsMap())
	if err != nil {
		return &Result{
			CallID:  call.ID,
			Content: fmt.Sprintf("tool %s failed: %v", def.Name, err),
			IsError: true,
		}
	}
	if out == nil {
		return &Result{CallID: call.ID}
	}
	return out
}
