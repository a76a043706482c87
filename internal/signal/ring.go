package signal

import "sync"

// Ring is a thread-safe circular sample buffer. The capture callback writes
// into it and the analysis loop reads the newest window back out.
type Ring struct {
	buf  []int16
	size int
	w    int // write position
	len  int // current fill level
	mu   sync.Mutex
}

// NewRing creates a ring buffer holding size samples.
func NewRing(size int) *Ring {
	return &Ring{
		buf:  make([]int16, size),
		size: size,
	}
}

// Write appends samples, overwriting the oldest when full.
func (r *Ring) Write(p []int16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range p {
		r.buf[r.w] = s
		r.w = (r.w + 1) % r.size
	}
	r.len += len(p)
	if r.len > r.size {
		r.len = r.size
	}
}

// Latest returns up to n of the most recent samples, oldest first.
func (r *Ring) Latest(n int) []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.len {
		n = r.len
	}
	if n == 0 {
		return nil
	}

	out := make([]int16, n)
	start := (r.w - n + r.size) % r.size
	for i := range n {
		out[i] = r.buf[(start+i)%r.size]
	}
	return out
}

// Clear resets the buffer.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = 0
	r.len = 0
}
