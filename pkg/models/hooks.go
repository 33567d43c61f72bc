package models

import (
	"encoding/json"
	"time"
)

// HookEvent is the body an external agent process POSTs to /hook.
// Agents differ in the fields they send; both the Claude-style
// hook_event_name discriminator and a plain type field are recognized.
// Raw preserves the whole payload for as-is forwarding.
type HookEvent struct {
	HookEventName string          `json:"hook_event_name,omitempty"`
	Type          string          `json:"type,omitempty"`
	ToolName      string          `json:"tool_name,omitempty"`
	ToolInput     json.RawMessage `json:"tool_input,omitempty"`
	Title         string          `json:"title,omitempty"`
	Message       string          `json:"message,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// IsPermissionRequest reports whether the event asks for a tool-use decision.
func (e HookEvent) IsPermissionRequest() bool {
	return e.HookEventName == "PreToolUse" || e.Type == "permission_request"
}

// IsNotification reports whether the event is purely informational.
func (e HookEvent) IsNotification() bool {
	return e.HookEventName == "Notification" || e.Type == "notification"
}

// Name returns whichever discriminator the sender used.
func (e HookEvent) Name() string {
	if e.HookEventName != "" {
		return e.HookEventName
	}
	return e.Type
}

// HookResponse is the synchronous answer returned to the hook caller.
// For permission requests Behavior is always "pass": the decision is
// deferred to the agent's own interactive prompt, which is what keeps
// the calling agent from ever blocking on this system.
type HookResponse struct {
	ID       string `json:"id,omitempty"`
	Behavior string `json:"behavior,omitempty"`
}

// PermissionEvent is the ephemeral record broadcast to viewers when a
// permission request arrives. No resolution state is stored: the real
// decision is made by the agent process, not by this system.
type PermissionEvent struct {
	ID        string    `json:"id"`
	ToolName  string    `json:"tool_name"`
	ToolInput string    `json:"tool_input"`
	CreatedAt time.Time `json:"created_at"`
}
