package tools

import (
	"encoding/json"

	"github.com/rhuss/vermittler/pkg/api"
)

// Disclose builds the unified tool result the model sees, applying the
// tool's response policy (or the result's directive override). Error
// results always carry their content so the model can react; multimodal
// parts are always forwarded regardless of policy.
func Disclose(def Definition, res *Result) api.ToolResult {
	out := api.ToolResult{
		CallID:  res.CallID,
		Name:    def.Name,
		Parts:   res.Parts,
		IsError: res.IsError,
	}

	if res.IsError {
		out.Content = res.Content
		if out.Content == "" {
			out.Content = "tool execution failed"
		}
		return out
	}

	policy := def.Response
	if res.Directive != nil && res.Directive.Response != "" {
		policy = res.Directive.Response
	}

	switch policy {
	case ResponseNone:
		out.Content = "done"
	case ResponseBrief:
		out.Content = res.Content
	default: // ResponseFull and unset
		out.Content = res.Content
		if res.Data != nil {
			payload, err := json.Marshal(res.Data)
			if err == nil {
				if out.Content != "" {
					out.Content += "\n"
				}
				out.Content += string(payload)
			}
		}
	}

	return out
}
