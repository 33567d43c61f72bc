package bridge

// TailBuffer accumulates terminal output up to a byte cap, discarding
// the oldest bytes first. Late-joining viewers replay its contents to
// reconstruct the recent screen state.
type TailBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

func NewTailBuffer(max int) *TailBuffer {
	if max <= 0 {
		max = 256 * 1024
	}
	return &TailBuffer{max: max}
}

func (t *TailBuffer) Append(p []byte) {
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		t.truncated = true
		return
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
}

// Bytes returns a copy of the buffered tail.
func (t *TailBuffer) Bytes() []byte {
	out := make([]byte, len(t.buf))
	copy(out, t.buf)
	return out
}

func (t *TailBuffer) Len() int { return len(t.buf) }

// Truncated reports whether any bytes have been discarded.
func (t *TailBuffer) Truncated() bool { return t.truncated }
