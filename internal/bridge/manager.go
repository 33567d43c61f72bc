package bridge

import (
	"io"
	"sync"
)

// PTYHandle is the process side of an attached terminal.
type PTYHandle interface {
	io.ReadWriteCloser
	Resize(rows, cols uint16) error
	Wait() (int, error)
}

// StartFunc attaches a PTY to the named tmux session at the given
// initial geometry.
type StartFunc func(session string, rows, cols uint16) (PTYHandle, error)

// Manager holds one bridge per tmux session name, created lazily.
// Bridges are never evicted while the daemon runs; their tail buffers
// are what late viewers replay.
type Manager struct {
	start      StartFunc
	scrollback int

	mu      sync.Mutex
	bridges map[string]*Bridge
}

func NewManager(start StartFunc, scrollback int) *Manager {
	return &Manager{
		start:      start,
		scrollback: scrollback,
		bridges:    make(map[string]*Bridge),
	}
}

// Get returns the bridge for session, creating one if needed. Unknown
// session names are accepted; the bridge stays empty until Attach.
func (m *Manager) Get(session string) *Bridge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.bridges[session]; ok {
		return b
	}
	b := newBridge(session, m.start, m.scrollback)
	m.bridges[session] = b
	return b
}

// CloseAll detaches every live PTY; used on daemon shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	bridges := make([]*Bridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		bridges = append(bridges, b)
	}
	m.mu.Unlock()

	for _, b := range bridges {
		b.Close()
	}
}
