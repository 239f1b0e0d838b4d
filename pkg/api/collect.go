package api

// Result is the aggregate outcome of one conversation request, built by
// draining a unified event stream. Non-streaming callers receive it
// directly; streaming callers can reconstruct it with CollectResult.
type Result struct {
	Text           string       `json:"text"`
	Messages       []Message    `json:"messages"`
	ToolCalls      []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults    []ToolResult `json:"tool_results,omitempty"`
	RequiresAction bool         `json:"requires_action"`
	Usage          *TokenUsage  `json:"usage,omitempty"`
	Error          *APIError    `json:"error,omitempty"`
}

// CollectResult drains a unified event stream into an aggregate Result.
// Message deltas are concatenated into Text, action events are assembled
// into ToolCalls, and the terminal done event supplies the accumulated
// messages and requires-action flag. Tool results are recovered from the
// tool-role messages in the terminal payload.
func CollectResult(events <-chan StreamEvent) *Result {
	res := &Result{}
	pending := make(map[string]int) // call id -> index in ToolCalls

	for ev := range events {
		switch ev.Type {
		case EventMessageDelta:
			res.Text += ev.Delta

		case EventActionStart:
			pending[ev.CallID] = len(res.ToolCalls)
			res.ToolCalls = append(res.ToolCalls, ToolCall{ID: ev.CallID, Name: ev.Name})

		case EventActionArgs:
			if idx, ok := pending[ev.CallID]; ok {
				res.ToolCalls[idx].Args = ev.Args
			}

		case EventToolCalls:
			// The terminal done already restates these calls; nothing to add.

		case EventDone:
			res.RequiresAction = ev.RequiresAction
			res.Messages = ev.Messages
			res.Usage = ev.Usage
			for _, m := range ev.Messages {
				if m.Role == RoleTool {
					res.ToolResults = append(res.ToolResults, ToolResult{
						CallID:  m.ToolCallID,
						Content: m.Content,
						Parts:   m.Parts,
					})
				}
			}

		case EventError:
			res.Error = ev.Error
		}
	}

	return res
}
