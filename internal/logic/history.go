package logic

// History is a fixed-capacity rolling buffer of pressure readings.
// Unfilled slots read as zero so a cold graph renders flat at 0 bar.
// Not safe for concurrent use.
type History struct {
	buf  []Pressure
	head int // next write position
	n    int // pushes seen, saturates at len(buf)
}

// NewHistory creates a history holding the last size readings.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]Pressure, size)}
}

// Push appends p, evicting the oldest reading once full.
func (h *History) Push(p Pressure) {
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
	if h.n < len(h.buf) {
		h.n++
	}
}

// Latest returns the newest reading, or 0 before the first push.
func (h *History) Latest() Pressure {
	if h.n == 0 {
		return 0
	}
	return h.buf[(h.head-1+len(h.buf))%len(h.buf)]
}

// Snapshot returns all Cap() slots oldest first. Slots not yet written are 0
// and sit at the oldest end.
func (h *History) Snapshot() []Pressure {
	out := make([]Pressure, len(h.buf))
	// head points at the oldest slot (zero until the buffer wraps).
	n := copy(out, h.buf[h.head:])
	copy(out[n:], h.buf[:h.head])
	return out
}

// Len returns the number of real readings held, at most Cap().
func (h *History) Len() int {
	return h.n
}

// Cap returns the fixed history length.
func (h *History) Cap() int {
	return len(h.buf)
}
