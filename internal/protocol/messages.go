// Package protocol is the JSON-over-websocket session protocol between
// the daemon and browser viewers. One JSON object per text message,
// tagged by a "type" field. The message set is closed: decoding and
// encoding switch exhaustively over it.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentdeck/agentdeck/pkg/models"
)

// Terminal bytes (output and catch-up) travel base64-encoded in the
// "data" field; input travels as a plain string of keystrokes.

// Inbound is a message a viewer sends to the daemon.
type Inbound interface{ inbound() }

type TerminalInput struct {
	Data string `json:"data"`
}

type TerminalResize struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

type Attach struct {
	Session string `json:"session"`
}

type Detach struct{}

// Decision is the viewer's answer to a permission request. Behavior is
// "allow" or "deny".
type Decision struct {
	ID       string `json:"id"`
	Behavior string `json:"behavior"`
}

// PushSubscribe registers an opaque browser push subscription.
type PushSubscribe struct {
	Subscription json.RawMessage `json:"subscription"`
}

func (TerminalInput) inbound()  {}
func (TerminalResize) inbound() {}
func (Attach) inbound()         {}
func (Detach) inbound()         {}
func (Decision) inbound()       {}
func (PushSubscribe) inbound()  {}

// Outbound is a message the daemon sends to a viewer.
type Outbound interface{ outbound() }

type TerminalOutput struct {
	Data string `json:"data"`
}

// TerminalCatchup replays the buffered tail, always delivered before
// any TerminalOutput on a fresh attach.
type TerminalCatchup struct {
	Data string `json:"data"`
}

type Sessions struct {
	Sessions []models.Session `json:"sessions"`
}

type Attached struct {
	Session string `json:"session"`
}

type Detached struct{}

type SessionExit struct {
	Session string `json:"session"`
	Code    int    `json:"code"`
}

// PermissionRequest surfaces a pending tool-use decision to viewers.
// The tool details travel nested under "data", the id alongside.
type PermissionRequest struct {
	ID   string                `json:"id"`
	Data PermissionRequestData `json:"data"`
}

type PermissionRequestData struct {
	ToolName  string    `json:"tool_name"`
	ToolInput string    `json:"tool_input"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPermissionRequest(event models.PermissionEvent) PermissionRequest {
	return PermissionRequest{
		ID: event.ID,
		Data: PermissionRequestData{
			ToolName:  event.ToolName,
			ToolInput: event.ToolInput,
			CreatedAt: event.CreatedAt,
		},
	}
}

type PermissionResolved struct {
	ID       string `json:"id"`
	Behavior string `json:"behavior"`
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

func (TerminalOutput) outbound()     {}
func (TerminalCatchup) outbound()    {}
func (Sessions) outbound()           {}
func (Attached) outbound()           {}
func (Detached) outbound()           {}
func (SessionExit) outbound()        {}
func (PermissionRequest) outbound()  {}
func (PermissionResolved) outbound() {}
func (Notification) outbound()       {}
func (ErrorMessage) outbound()       {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses one inbound frame. Unknown types and malformed
// payloads are errors; the router drops them.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing message envelope: %w", err)
	}

	switch env.Type {
	case "terminal_input":
		var m TerminalInput
		return m, json.Unmarshal(raw, &m)
	case "terminal_resize":
		var m TerminalResize
		return m, json.Unmarshal(raw, &m)
	case "attach":
		var m Attach
		return m, json.Unmarshal(raw, &m)
	case "detach":
		return Detach{}, nil
	case "decision":
		var m Decision
		return m, json.Unmarshal(raw, &m)
	case "push_subscribe":
		var m PushSubscribe
		return m, json.Unmarshal(raw, &m)
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// EncodeOutbound wraps msg in its typed envelope.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case TerminalOutput:
		return json.Marshal(struct {
			Type string `json:"type"`
			TerminalOutput
		}{"terminal_output", m})
	case TerminalCatchup:
		return json.Marshal(struct {
			Type string `json:"type"`
			TerminalCatchup
		}{"terminal_catchup", m})
	case Sessions:
		return json.Marshal(struct {
			Type string `json:"type"`
			Sessions
		}{"sessions", m})
	case Attached:
		return json.Marshal(struct {
			Type string `json:"type"`
			Attached
		}{"attached", m})
	case Detached:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{"detached"})
	case SessionExit:
		return json.Marshal(struct {
			Type string `json:"type"`
			SessionExit
		}{"session_exit", m})
	case PermissionRequest:
		return json.Marshal(struct {
			Type string `json:"type"`
			PermissionRequest
		}{"permission_request", m})
	case PermissionResolved:
		return json.Marshal(struct {
			Type string `json:"type"`
			PermissionResolved
		}{"permission_resolved", m})
	case Notification:
		return json.Marshal(struct {
			Type string `json:"type"`
			Notification
		}{"notification", m})
	case ErrorMessage:
		return json.Marshal(struct {
			Type string `json:"type"`
			ErrorMessage
		}{"error", m})
	default:
		return nil, fmt.Errorf("unknown outbound message %T", msg)
	}
}
