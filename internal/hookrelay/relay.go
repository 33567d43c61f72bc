// Package hookrelay answers agent hook callbacks without blocking the
// agent. The hook gets an immediate "defer to the interactive prompt"
// response; the event itself fans out to viewers in the background.
package hookrelay

import (
	"encoding/json"
	"time"

	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BehaviorPass tells the hook to fall through to the agent's own
// interactive prompt instead of waiting on a remote decision.
const BehaviorPass = "pass"

// Forwarder receives hook events after the hook has been answered.
// Implementations must not block; the relay calls them from a
// goroutine but shares it across forwarders.
type Forwarder interface {
	ForwardPermission(event models.PermissionEvent)
	ForwardNotification(title, message string)
	ForwardEvent(event models.HookEvent)
}

// Relay turns raw hook payloads into broadcast events.
type Relay struct {
	forwarders []Forwarder
	logger     *logrus.Entry
}

func New(forwarders ...Forwarder) *Relay {
	return &Relay{
		forwarders: forwarders,
		logger:     logging.NewLogger("hookrelay"),
	}
}

// Handle answers event and schedules its forwarding. The answer is
// composed before any forwarding happens and never waits on viewers,
// so a slow or absent phone can never stall the agent. Permission
// requests get the fixed "defer to the interactive prompt" decision;
// everything else gets an empty ack.
func (r *Relay) Handle(event models.HookEvent) models.HookResponse {
	if event.IsPermissionRequest() {
		resp := models.HookResponse{
			ID:       uuid.NewString(),
			Behavior: BehaviorPass,
		}
		go r.forwardPermission(resp.ID, event)
		return resp
	}

	go r.forwardOther(event)
	return models.HookResponse{}
}

func (r *Relay) forwardPermission(id string, event models.HookEvent) {
	perm := models.PermissionEvent{
		ID:        id,
		ToolName:  event.ToolName,
		ToolInput: compactJSON(event.ToolInput),
		CreatedAt: time.Now().UTC(),
	}
	r.logger.WithField("tool", perm.ToolName).Debug("Forwarding permission request")
	for _, f := range r.forwarders {
		f.ForwardPermission(perm)
	}
}

func (r *Relay) forwardOther(event models.HookEvent) {
	if event.IsNotification() {
		r.logger.WithField("title", event.Title).Debug("Forwarding notification")
		for _, f := range r.forwarders {
			f.ForwardNotification(event.Title, event.Message)
		}
		return
	}
	r.logger.WithField("event", event.Name()).Debug("Forwarding hook event")
	for _, f := range r.forwarders {
		f.ForwardEvent(event)
	}
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}
