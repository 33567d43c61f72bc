package hookrelay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureForwarder struct {
	mu            sync.Mutex
	permissions   []models.PermissionEvent
	notifications []string
	events        []models.HookEvent
	received      chan struct{}
}

func newCaptureForwarder() *captureForwarder {
	return &captureForwarder{received: make(chan struct{}, 8)}
}

func (c *captureForwarder) ForwardPermission(event models.PermissionEvent) {
	c.mu.Lock()
	c.permissions = append(c.permissions, event)
	c.mu.Unlock()
	c.received <- struct{}{}
}

func (c *captureForwarder) ForwardNotification(title, message string) {
	c.mu.Lock()
	c.notifications = append(c.notifications, title+": "+message)
	c.mu.Unlock()
	c.received <- struct{}{}
}

func (c *captureForwarder) ForwardEvent(event models.HookEvent) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.received <- struct{}{}
}

func (c *captureForwarder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.received:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder never called")
	}
}

func TestHandleAnswersImmediately(t *testing.T) {
	fwd := newCaptureForwarder()
	r := New(fwd)

	resp := r.Handle(models.HookEvent{
		HookEventName: "PreToolUse",
		ToolName:      "Bash",
		ToolInput:     json.RawMessage(`{"command":"ls"}`),
	})

	// The response is synchronous and never waits on viewers.
	assert.Equal(t, BehaviorPass, resp.Behavior)
	assert.NotEmpty(t, resp.ID)

	fwd.wait(t)
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	require.Len(t, fwd.permissions, 1)
	assert.Equal(t, resp.ID, fwd.permissions[0].ID)
	assert.Equal(t, "Bash", fwd.permissions[0].ToolName)
	assert.JSONEq(t, `{"command":"ls"}`, fwd.permissions[0].ToolInput)
}

func TestHandleForwardsNotifications(t *testing.T) {
	fwd := newCaptureForwarder()
	r := New(fwd)

	resp := r.Handle(models.HookEvent{
		HookEventName: "Notification",
		Title:         "Agent finished",
		Message:       "all tests pass",
	})
	assert.Empty(t, resp.Behavior)
	assert.Empty(t, resp.ID)

	fwd.wait(t)
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	assert.Equal(t, []string{"Agent finished: all tests pass"}, fwd.notifications)
}

func TestHandleForwardsOtherEventsAsIs(t *testing.T) {
	fwd := newCaptureForwarder()
	r := New(fwd)

	event := models.HookEvent{HookEventName: "SessionStart", Message: "booted"}
	resp := r.Handle(event)

	// The ack carries no decision; the event itself still reaches the
	// forwarders untouched.
	assert.Empty(t, resp.Behavior)
	assert.Empty(t, resp.ID)

	fwd.wait(t)
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	require.Len(t, fwd.events, 1)
	assert.Equal(t, "SessionStart", fwd.events[0].HookEventName)
	assert.Equal(t, "booted", fwd.events[0].Message)
	assert.Empty(t, fwd.permissions)
	assert.Empty(t, fwd.notifications)
}

func TestDistinctIDsPerEvent(t *testing.T) {
	r := New()
	a := r.Handle(models.HookEvent{HookEventName: "PreToolUse"})
	b := r.Handle(models.HookEvent{HookEventName: "PreToolUse"})
	assert.NotEqual(t, a.ID, b.ID)
}
