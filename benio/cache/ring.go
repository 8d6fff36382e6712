// Package cache retains the most recently received bytes of a transfer in a
// fixed amount of memory.
package cache

// Ring keeps the last Cap() bytes written to it. Older bytes are evicted
// first. A Ring is not safe for concurrent use; each receiving worker owns
// its own.
type Ring struct {
	buf   []byte
	start int // index of the oldest byte
	n     int // bytes currently held
	total int64
}

// New returns a Ring holding at most capacity bytes. A capacity <= 0 keeps
// nothing but still counts writes.
func New(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Write appends p, evicting the oldest bytes once the ring is full. It never
// fails.
func (r *Ring) Write(p []byte) (int, error) {
	written := len(p)
	r.total += int64(written)

	c := len(r.buf)
	if c == 0 {
		return written, nil
	}
	if len(p) >= c {
		copy(r.buf, p[len(p)-c:])
		r.start, r.n = 0, c
		return written, nil
	}

	end := (r.start + r.n) % c
	k := copy(r.buf[end:], p)
	copy(r.buf, p[k:])

	if over := r.n + len(p) - c; over > 0 {
		r.start = (r.start + over) % c
		r.n = c
	} else {
		r.n += len(p)
	}
	return written, nil
}

// Len returns the number of bytes held.
func (r *Ring) Len() int { return r.n }

// Cap returns the capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Total returns the number of bytes ever written.
func (r *Ring) Total() int64 { return r.total }

// Bytes returns a copy of the held bytes, oldest first.
func (r *Ring) Bytes() []byte {
	out := make([]byte, r.n)
	if r.n == 0 {
		return out
	}
	k := copy(out, r.buf[r.start:min(r.start+r.n, len(r.buf))])
	copy(out[k:], r.buf[:r.n-k])
	return out
}

// Reset drops all held bytes and the write total.
func (r *Ring) Reset() {
	r.start, r.n, r.total = 0, 0, 0
}
