package provider

import "github.com/rhuss/vermittler/pkg/api"

// Capabilities declares what features a backend supports. Used for early
// request validation before any vendor round-trip.
type Capabilities struct {
	// Streaming indicates whether the backend supports streaming responses.
	Streaming bool

	// ToolCalling indicates whether the backend supports tool/function calls.
	ToolCalling bool

	// Vision indicates whether the backend accepts image inputs.
	Vision bool

	// Documents indicates whether the backend accepts document blocks.
	Documents bool

	// Thinking indicates whether the backend can expose reasoning content.
	Thinking bool
}

// ValidateCapabilities checks whether the given request is compatible with
// the adapter's declared capabilities. Returns an APIError identifying the
// unsupported feature, or nil.
func ValidateCapabilities(caps Capabilities, req *api.Request) *api.APIError {
	if len(req.Tools) > 0 && !caps.ToolCalling {
		return api.NewInvalidRequestError("tools",
			"the configured vendor does not support tool calling")
	}

	for _, m := range req.Messages {
		for _, part := range m.Parts {
			switch part.Type {
			case api.PartImage:
				if !caps.Vision {
					return api.NewInvalidRequestError("messages",
						"the configured vendor does not support image inputs")
				}
			case api.PartDocument:
				if !caps.Documents {
					return api.NewInvalidRequestError("messages",
						"the configured vendor does not support document inputs")
				}
			}
		}
	}

	return nil
}
