package protocol

import (
	"encoding/base64"
	"sync"

	"github.com/agentdeck/agentdeck/internal/bridge"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const sendQueueSize = 256

// Conn is one viewer's websocket. All writes go through a buffered
// queue drained by a single writer goroutine; a full queue drops the
// frame rather than blocking the daemon. A viewer that falls that far
// behind resynchronizes on its next attach.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	logger *logrus.Entry

	closeOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	session string
	bridge  *bridge.Bridge
	subID   int
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		logger: logging.NewLogger("protocol"),
		done:   make(chan struct{}),
	}
}

// enqueue serializes msg onto the send queue, dropping on overflow.
// Safe to call from bridge callbacks; it never blocks.
func (c *Conn) enqueue(msg Outbound) {
	data, err := EncodeOutbound(msg)
	if err != nil {
		c.logger.WithError(err).Error("Encoding outbound message")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.logger.Debug("Send queue full, dropping frame")
	}
}

// Catchup implements bridge.Subscriber.
func (c *Conn) Catchup(data []byte) {
	c.enqueue(TerminalCatchup{Data: base64.StdEncoding.EncodeToString(data)})
}

// Output implements bridge.Subscriber.
func (c *Conn) Output(data []byte) {
	c.enqueue(TerminalOutput{Data: base64.StdEncoding.EncodeToString(data)})
}

// SessionExited implements bridge.Subscriber.
func (c *Conn) SessionExited(session string, code int) {
	c.enqueue(SessionExit{Session: session, Code: code})
}

// attachTo swaps the conn onto b, releasing any prior subscription.
func (c *Conn) attachTo(session string, b *bridge.Bridge) {
	c.detach()
	c.mu.Lock()
	c.session = session
	c.bridge = b
	c.mu.Unlock()
	// Subscribe outside the conn lock: the catch-up replay calls back
	// into Catchup.
	id := b.Subscribe(c)
	c.mu.Lock()
	if c.bridge == b {
		c.subID = id
	} else {
		b.Unsubscribe(id)
	}
	c.mu.Unlock()
}

func (c *Conn) detach() {
	c.mu.Lock()
	b, id := c.bridge, c.subID
	c.session = ""
	c.bridge = nil
	c.subID = 0
	c.mu.Unlock()
	if b != nil {
		b.Unsubscribe(id)
	}
}

// attached returns the conn's current bridge, nil when detached.
func (c *Conn) attached() *bridge.Bridge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bridge
}

func (c *Conn) attachedSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

func (c *Conn) writePump() {
	defer c.close()
	for {
		select {
		case data := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readPump(hub *Hub) {
	defer func() {
		hub.unregister(c)
		c.close()
	}()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := DecodeInbound(raw)
		if err != nil {
			// Malformed frames are dropped, the viewer is not punished.
			c.logger.WithError(err).Debug("Dropping inbound frame")
			continue
		}
		hub.handle(c, msg)
	}
}
