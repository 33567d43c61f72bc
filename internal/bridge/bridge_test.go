package bridge

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePTY struct {
	out chan []byte

	mu      sync.Mutex
	written bytes.Buffer
	resized [][2]uint16
	code    int

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakePTY() *fakePTY {
	return &fakePTY{out: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakePTY) Read(b []byte) (int, error) {
	select {
	case data, ok := <-f.out:
		if !ok {
			return 0, io.EOF
		}
		return copy(b, data), nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakePTY) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(b)
}

func (f *fakePTY) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakePTY) Resize(rows, cols uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resized = append(f.resized, [2]uint16{rows, cols})
	return nil
}

func (f *fakePTY) Wait() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, nil
}

type recordSub struct {
	mu      sync.Mutex
	catchup []byte
	chunks  [][]byte
	exited  chan int
}

func newRecordSub() *recordSub {
	return &recordSub{exited: make(chan int, 1)}
}

func (s *recordSub) Catchup(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catchup = append([]byte{}, data...)
}

func (s *recordSub) Output(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk := make([]byte, len(data))
	copy(chunk, data)
	s.chunks = append(s.chunks, chunk)
}

func (s *recordSub) SessionExited(session string, code int) { s.exited <- code }

func (s *recordSub) live() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

func noStart(string, uint16, uint16) (PTYHandle, error) { return newFakePTY(), nil }

func TestTailBufferTruncates(t *testing.T) {
	tb := NewTailBuffer(8)
	tb.Append([]byte("abcd"))
	assert.Equal(t, []byte("abcd"), tb.Bytes())
	assert.False(t, tb.Truncated())

	tb.Append([]byte("efghij"))
	assert.Equal(t, []byte("cdefghij"), tb.Bytes())
	assert.True(t, tb.Truncated())

	tb.Append([]byte("0123456789"))
	assert.Equal(t, []byte("23456789"), tb.Bytes())
}

func TestSubscriberGetsCatchupBeforeLive(t *testing.T) {
	b := newBridge("agent-1", noStart, 1024)

	b.deliver([]byte("history"))

	sub := newRecordSub()
	b.Subscribe(sub)
	b.deliver([]byte("live"))

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, []byte("history"), sub.catchup)
	assert.Equal(t, [][]byte{[]byte("live")}, sub.chunks)
}

func TestCatchupDeliveredEvenWhenEmpty(t *testing.T) {
	b := newBridge("agent-1", noStart, 1024)
	sub := newRecordSub()
	b.Subscribe(sub)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.NotNil(t, sub.catchup)
	assert.Empty(t, sub.catchup)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newBridge("agent-1", noStart, 1024)

	sub := newRecordSub()
	id := b.Subscribe(sub)
	b.deliver([]byte("one"))
	b.Unsubscribe(id)
	b.deliver([]byte("two"))

	assert.Equal(t, []byte("one"), sub.live())
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestWriteWithoutPTYIsDropped(t *testing.T) {
	b := newBridge("agent-1", noStart, 1024)
	assert.NoError(t, b.Write([]byte("ls\r")))
	b.Resize(50, 132)
	assert.False(t, b.Attached())
}

func TestWriteAndResizeReachPTY(t *testing.T) {
	pty := newFakePTY()
	b := newBridge("agent-1", func(string, uint16, uint16) (PTYHandle, error) { return pty, nil }, 1024)
	require.NoError(t, b.Attach())

	require.NoError(t, b.Write([]byte("ls\r")))
	b.Resize(50, 132)

	pty.mu.Lock()
	defer pty.mu.Unlock()
	assert.Equal(t, "ls\r", pty.written.String())
	assert.Equal(t, [][2]uint16{{50, 132}}, pty.resized)
}

func TestAttachIsIdempotent(t *testing.T) {
	starts := 0
	b := newBridge("agent-1", func(string, uint16, uint16) (PTYHandle, error) {
		starts++
		return newFakePTY(), nil
	}, 1024)

	require.NoError(t, b.Attach())
	require.NoError(t, b.Attach())
	assert.Equal(t, 1, starts)
}

func TestPTYExitNotifiesAndClearsHandle(t *testing.T) {
	pty := newFakePTY()
	pty.code = 3
	b := newBridge("agent-1", func(string, uint16, uint16) (PTYHandle, error) { return pty, nil }, 1024)
	require.NoError(t, b.Attach())

	sub := newRecordSub()
	b.Subscribe(sub)

	pty.out <- []byte("output")
	close(pty.out)

	select {
	case code := <-sub.exited:
		assert.Equal(t, 3, code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit")
	}
	assert.Equal(t, []byte("output"), sub.live())
	assert.False(t, b.Attached())

	// The tail survives the PTY for the next late joiner.
	late := newRecordSub()
	b.Subscribe(late)
	late.mu.Lock()
	defer late.mu.Unlock()
	assert.Equal(t, []byte("output"), late.catchup)
}

func TestAttachStartsAtRecordedGeometry(t *testing.T) {
	var startSizes [][2]uint16
	ptys := make(chan *fakePTY, 2)
	b := newBridge("agent-1", func(_ string, rows, cols uint16) (PTYHandle, error) {
		startSizes = append(startSizes, [2]uint16{rows, cols})
		pty := newFakePTY()
		ptys <- pty
		return pty, nil
	}, 1024)

	require.NoError(t, b.Attach())
	require.Equal(t, [][2]uint16{{defaultRows, defaultCols}}, startSizes)

	b.Resize(52, 208)

	// A PTY restarted after exit picks up the last viewer geometry.
	sub := newRecordSub()
	b.Subscribe(sub)
	close((<-ptys).out)
	select {
	case <-sub.exited:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for exit")
	}

	require.NoError(t, b.Attach())
	assert.Equal(t, [2]uint16{52, 208}, startSizes[1])
}

func TestManagerReturnsSameBridge(t *testing.T) {
	m := NewManager(noStart, 1024)
	a := m.Get("agent-1")
	b := m.Get("agent-1")
	assert.Same(t, a, b)
	assert.NotSame(t, a, m.Get("agent-2"))
}
