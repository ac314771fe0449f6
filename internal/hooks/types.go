package hooks

import (
	"encoding/json"
	"time"
)

// EventType represents the type of Claude Code hook event
type EventType string

// Event types for Claude Code hooks
const (
	PreToolUse       EventType = "PreToolUse"
	PostToolUse      EventType = "PostToolUse"
	UserPromptSubmit EventType = "UserPromptSubmit"
	Stop             EventType = "Stop"
	SubagentStop     EventType = "SubagentStop"
	Notification     EventType = "Notification"
	PreCompact       EventType = "PreCompact"
	SessionStart     EventType = "SessionStart"
	SessionEnd       EventType = "SessionEnd"
)

// Event is one recorded hook invocation from the hooks log.
//
// Each line in hooks.jsonl is one Event. The timestamp is injected by the
// recorder when the agent does not provide one, so readers can rely on it.
type Event struct {
	Timestamp      time.Time       `json:"timestamp"`
	SessionID      string          `json:"session_id"`
	HookEventName  EventType       `json:"hook_event_name"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	PermissionMode string          `json:"permission_mode,omitempty"`
}

// ToolInputFields decodes tool_input into a generic map. Returns nil when
// the input is absent or not a JSON object.
func (e *Event) ToolInputFields() map[string]interface{} {
	if len(e.ToolInput) == 0 {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(e.ToolInput, &fields); err != nil {
		return nil
	}
	return fields
}

// InputString returns a string-valued field from tool_input, or "".
func (e *Event) InputString(key string) string {
	if v, ok := e.ToolInputFields()[key].(string); ok {
		return v
	}
	return ""
}
