package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/config"
	"github.com/agentdeck/agentdeck/internal/bridge"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// sessionPushInterval paces the periodic session-list refresh.
const sessionPushInterval = 2 * time.Second

// SessionLister supplies the current visible session table.
type SessionLister interface {
	List(ctx context.Context) ([]models.Session, error)
}

// SubscriptionSink stores browser push subscriptions.
type SubscriptionSink interface {
	Add(raw json.RawMessage)
}

// Hub routes protocol messages between viewers and bridges. It also
// implements hookrelay.Forwarder, turning hook events into broadcast
// frames.
type Hub struct {
	manager  *bridge.Manager
	lister   SessionLister
	subs     SubscriptionSink
	decision config.DecisionKeysConfig
	logger   *logrus.Entry

	mu       sync.Mutex
	conns    map[*Conn]struct{}
	lastList string
}

func NewHub(manager *bridge.Manager, lister SessionLister, subs SubscriptionSink, decision config.DecisionKeysConfig) *Hub {
	return &Hub{
		manager:  manager,
		lister:   lister,
		subs:     subs,
		decision: decision,
		logger:   logging.NewLogger("protocol"),
		conns:    make(map[*Conn]struct{}),
	}
}

// HandleConn adopts an upgraded websocket and serves it until the
// viewer disconnects. Blocks for the connection's lifetime.
func (h *Hub) HandleConn(ws *websocket.Conn) {
	c := newConn(ws)
	h.register(c)
	go c.writePump()
	c.readPump(h)
}

// Run pushes session-list refreshes until ctx is done. Pushes are
// suppressed while the composed list is unchanged.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sessionPushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pushSessionsIfChanged()
		}
	}
}

func (h *Hub) register(c *Conn) {
	sessions, err := h.lister.List(context.Background())
	if err != nil {
		h.logger.WithError(err).Warn("Listing sessions for new viewer")
		sessions = nil
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	c.enqueue(Sessions{Sessions: sessions})

	if target := autoAttachTarget(sessions); target != "" {
		h.attach(c, target)
	}
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.detach()
}

func (h *Hub) handle(c *Conn, msg Inbound) {
	switch m := msg.(type) {
	case TerminalInput:
		if b := c.attached(); b != nil {
			if err := b.Write([]byte(m.Data)); err != nil {
				h.logger.WithError(err).Debug("Terminal input failed")
			}
		}
	case TerminalResize:
		if b := c.attached(); b != nil {
			b.Resize(m.Rows, m.Cols)
		}
	case Attach:
		h.attach(c, m.Session)
	case Detach:
		c.detach()
		c.enqueue(Detached{})
	case Decision:
		h.applyDecision(c, m)
	case PushSubscribe:
		if h.subs != nil && len(m.Subscription) > 0 {
			h.subs.Add(m.Subscription)
		}
	}
}

func (h *Hub) attach(c *Conn, session string) {
	b := h.manager.Get(session)
	if err := b.Attach(); err != nil {
		h.logger.WithError(err).WithField("session", session).Warn("Attach failed")
		c.enqueue(ErrorMessage{Message: fmt.Sprintf("cannot attach %s: %v", session, err)})
		return
	}
	c.enqueue(Attached{Session: session})
	c.attachTo(session, b)
}

// applyDecision resolves a permission request from the phone. In
// "keys" mode the configured literal keystroke goes to the viewer's
// attached session; in "none" mode the interactive prompt stays
// authoritative and the decision is broadcast only.
func (h *Hub) applyDecision(c *Conn, d Decision) {
	if h.decision.Mode == "keys" {
		key := h.decision.Allow
		if d.Behavior != "allow" {
			key = h.decision.Deny
		}
		if b := c.attached(); b != nil && key != "" {
			if err := b.Write([]byte(key)); err != nil {
				h.logger.WithError(err).Debug("Decision keystroke failed")
			}
		}
	}
	h.broadcast(PermissionResolved{ID: d.ID, Behavior: d.Behavior})
}

// ForwardPermission implements hookrelay.Forwarder.
func (h *Hub) ForwardPermission(event models.PermissionEvent) {
	h.broadcast(NewPermissionRequest(event))
}

// ForwardNotification implements hookrelay.Forwarder.
func (h *Hub) ForwardNotification(title, message string) {
	h.broadcast(Notification{Title: title, Body: message})
}

// ForwardEvent implements hookrelay.Forwarder. Events outside the
// protocol vocabulary ride the notification frame under their own name.
func (h *Hub) ForwardEvent(event models.HookEvent) {
	h.broadcast(Notification{Title: event.Name(), Body: event.Message})
}

func (h *Hub) broadcast(msg Outbound) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.enqueue(msg)
	}
}

func (h *Hub) pushSessionsIfChanged() {
	sessions, err := h.lister.List(context.Background())
	if err != nil {
		h.logger.WithError(err).Debug("Session refresh failed")
		return
	}

	fp := fingerprint(sessions)
	h.mu.Lock()
	changed := fp != h.lastList
	h.lastList = fp
	h.mu.Unlock()

	if changed {
		h.broadcast(Sessions{Sessions: sessions})
	}
}

// ViewerCount returns the number of connected viewers.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// autoAttachTarget picks the session a fresh viewer lands on: the
// first agent session, else the first session, else none.
func autoAttachTarget(sessions []models.Session) string {
	for _, s := range sessions {
		if s.IsAgent {
			return s.Name
		}
	}
	if len(sessions) > 0 {
		return sessions[0].Name
	}
	return ""
}

// fingerprint composes the name/isAgent view of the session table; the
// periodic push is suppressed while it is unchanged.
func fingerprint(sessions []models.Session) string {
	var sb strings.Builder
	for _, s := range sessions {
		fmt.Fprintf(&sb, "%s|%t;", s.Name, s.IsAgent)
	}
	return sb.String()
}
