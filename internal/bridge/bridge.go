// Package bridge attaches a PTY to a tmux session and fans its output
// out to any number of viewers without ever blocking the session.
package bridge

import (
	"sync"

	"github.com/agentdeck/agentdeck/logging"
	"github.com/sirupsen/logrus"
)

const readChunk = 32 * 1024

// Subscriber receives bridge deliveries. Callbacks run under the
// bridge lock and must not call back into the bridge; enqueue and
// return.
type Subscriber interface {
	// Catchup replays the buffered tail, delivered exactly once at
	// subscribe time and always before any live Output.
	Catchup(data []byte)
	Output(data []byte)
	SessionExited(session string, code int)
}

// Bridge pumps one tmux session's PTY to N subscribers. The PTY is
// optional: a bridge without one buffers nothing new but still serves
// its tail. The bridge and its buffer outlive PTY exits.
type Bridge struct {
	session string
	start   StartFunc
	logger  *logrus.Entry

	mu     sync.Mutex
	pty    PTYHandle
	subs   map[int]Subscriber
	nextID int
	tail   *TailBuffer
	rows   uint16
	cols   uint16
}

func newBridge(session string, start StartFunc, scrollback int) *Bridge {
	return &Bridge{
		session: session,
		start:   start,
		logger:  logging.NewLogger("bridge").WithField("session", session),
		subs:    make(map[int]Subscriber),
		tail:    NewTailBuffer(scrollback),
		rows:    defaultRows,
		cols:    defaultCols,
	}
}

// Attach starts the PTY if none is running, at the most recently
// recorded viewer geometry.
func (b *Bridge) Attach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pty != nil {
		return nil
	}

	pty, err := b.start(b.session, b.rows, b.cols)
	if err != nil {
		return err
	}
	b.pty = pty
	go b.readLoop(pty)
	b.logger.Info("Attached PTY")
	return nil
}

// Subscribe registers sub and synchronously replays the buffered tail
// to it as one catch-up delivery. The returned id releases the
// subscription.
func (b *Bridge) Subscribe(sub Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	sub.Catchup(b.tail.Bytes())
	return id
}

func (b *Bridge) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Write sends input to the session's PTY. Input with no PTY attached
// is dropped silently.
func (b *Bridge) Write(p []byte) error {
	b.mu.Lock()
	pty := b.pty
	b.mu.Unlock()
	if pty == nil {
		return nil
	}
	_, err := pty.Write(p)
	return err
}

// Resize records the viewer's geometry and forwards it to the PTY when
// one is attached. Viewers share one PTY, so the most recent resize
// wins. Resize failures are swallowed.
func (b *Bridge) Resize(rows, cols uint16) {
	b.mu.Lock()
	b.rows, b.cols = rows, cols
	pty := b.pty
	b.mu.Unlock()
	if pty == nil {
		return
	}
	if err := pty.Resize(rows, cols); err != nil {
		b.logger.WithError(err).Debug("Resize failed")
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Bridge) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Attached reports whether a PTY is currently running.
func (b *Bridge) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pty != nil
}

// Close detaches the PTY if one is running. The read loop observes EOF
// and notifies subscribers.
func (b *Bridge) Close() {
	b.mu.Lock()
	pty := b.pty
	b.mu.Unlock()
	if pty != nil {
		pty.Close()
	}
}

func (b *Bridge) readLoop(pty PTYHandle) {
	buf := make([]byte, readChunk)
	for {
		n, err := pty.Read(buf)
		if n > 0 {
			b.deliver(buf[:n])
		}
		if err != nil {
			break
		}
	}

	code, _ := pty.Wait()
	b.ptyExited(pty, code)
}

func (b *Bridge) deliver(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tail.Append(data)
	for _, sub := range b.subs {
		sub.Output(data)
	}
}

// ptyExited clears the handle and notifies subscribers. The bridge and
// its buffer stay alive; a later Attach starts a fresh PTY.
func (b *Bridge) ptyExited(pty PTYHandle, code int) {
	b.mu.Lock()
	if b.pty == pty {
		b.pty = nil
	}
	subs := make([]Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.SessionExited(b.session, code)
	}
	b.logger.WithField("code", code).Debug("PTY exited")
}
