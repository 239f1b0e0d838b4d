package api

import "fmt"

// ValidateConversation checks the structural invariants of a message list:
// tool messages must carry a tool_call_id referencing a tool call emitted by
// an earlier assistant message, and only assistant messages may carry tool
// calls. Returns the first violation found, or nil.
func ValidateConversation(messages []Message) *APIError {
	seen := make(map[string]bool)

	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return NewInvalidRequestError("messages",
				fmt.Sprintf("message %d has unknown role %q", i, m.Role))
		}

		if len(m.ToolCalls) > 0 && m.Role != RoleAssistant {
			return NewInvalidRequestError("messages",
				fmt.Sprintf("message %d: only assistant messages may carry tool_calls", i))
		}

		if m.Role == RoleTool {
			if m.ToolCallID == "" {
				return NewInvalidRequestError("messages",
					fmt.Sprintf("message %d: tool message missing tool_call_id", i))
			}
			if !seen[m.ToolCallID] {
				return NewInvalidRequestError("messages",
					fmt.Sprintf("message %d: tool_call_id %q does not reference an earlier assistant tool call", i, m.ToolCallID))
			}
		}

		for _, tc := range m.ToolCalls {
			seen[tc.ID] = true
		}
	}

	return nil
}

// orderState tracks per-stream validation progress.
type orderState struct {
	messageOpen   bool
	messageClosed bool
	thinkingOpen  bool

	actionStarted map[string]bool
	actionArgs    map[string]int
	terminal      int
}

// ValidateEventOrder checks a complete event sequence against the protocol's
// ordering rules: message and thinking lifecycles are properly bracketed,
// each tool call id sees exactly one action:start followed by exactly one
// action:args, and the sequence ends in exactly one done or error. Used by
// adapter tests to assert conformance of generated streams.
func ValidateEventOrder(events []StreamEvent) error {
	st := &orderState{
		actionStarted: make(map[string]bool),
		actionArgs:    make(map[string]int),
	}

	for i, ev := range events {
		if st.terminal > 0 {
			return fmt.Errorf("event %d (%s) follows a terminal event", i, ev.Type)
		}

		switch ev.Type {
		case EventMessageStart:
			if st.messageOpen {
				return fmt.Errorf("event %d: duplicate message:start", i)
			}
			st.messageOpen = true
			st.messageClosed = false

		case EventMessageDelta:
			if !st.messageOpen {
				return fmt.Errorf("event %d: message:delta before message:start", i)
			}

		case EventMessageEnd:
			if !st.messageOpen {
				return fmt.Errorf("event %d: message:end before message:start", i)
			}
			st.messageOpen = false
			st.messageClosed = true

		case EventThinkingStart:
			if st.thinkingOpen {
				return fmt.Errorf("event %d: duplicate thinking:start", i)
			}
			st.thinkingOpen = true

		case EventThinkingDelta:
			if !st.thinkingOpen {
				return fmt.Errorf("event %d: thinking:delta before thinking:start", i)
			}

		case EventThinkingEnd:
			if !st.thinkingOpen {
				return fmt.Errorf("event %d: thinking:end before thinking:start", i)
			}
			st.thinkingOpen = false

		case EventActionStart:
			if ev.CallID == "" {
				return fmt.Errorf("event %d: action:start without call_id", i)
			}
			if st.actionStarted[ev.CallID] {
				return fmt.Errorf("event %d: duplicate action:start for call %s", i, ev.CallID)
			}
			st.actionStarted[ev.CallID] = true

		case EventActionArgs:
			if !st.actionStarted[ev.CallID] {
				return fmt.Errorf("event %d: action:args before action:start for call %s", i, ev.CallID)
			}
			st.actionArgs[ev.CallID]++
			if st.actionArgs[ev.CallID] > 1 {
				return fmt.Errorf("event %d: multiple action:args for call %s", i, ev.CallID)
			}

		case EventActionEnd:
			if st.actionArgs[ev.CallID] != 1 {
				return fmt.Errorf("event %d: action:end before action:args for call %s", i, ev.CallID)
			}

		case EventDone, EventError:
			st.terminal++

		case EventToolCalls, EventLoopIteration:
			// Bookkeeping events have no ordering constraints of their own.

		default:
			return fmt.Errorf("event %d: unknown event type %q", i, ev.Type)
		}
	}

	if st.terminal != 1 {
		return fmt.Errorf("stream ended with %d terminal events, want exactly 1", st.terminal)
	}
	for id, started := range st.actionStarted {
		if started && st.actionArgs[id] != 1 {
			return fmt.Errorf("call %s: action:start without exactly one action:args", id)
		}
	}
	return nil
}
