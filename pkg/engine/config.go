package engine

// Config holds configuration for the orchestrator.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// MaxIterations bounds the number of model turns in one agent loop.
	// Zero or negative means the default of 20. Reaching the cap stops
	// the loop with an ordinary done carrying whatever accumulated.
	MaxIterations int
}

// maxIterations returns the effective iteration cap, defaulting to 20.
func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return 20
	}
	return c.MaxIterations
}
