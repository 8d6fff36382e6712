package filter

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// engine drives the read cycle shared by every method: serve from the
// residual buffer when it holds enough, otherwise read one raw buffer,
// select bytes from it and try again.
type engine struct {
	src     Source
	bufsize int
	buf     []byte
	res     []byte
	count   int64

	// apply appends the bytes of raw selected by the method to dst.
	apply func(dst, raw []byte) []byte
	// need estimates how many raw bytes yield missing output bytes. When
	// nil every fill asks for a whole buffer.
	need func(missing int) int
	// strict methods fail with ErrNoMatch when a whole pass over a file
	// produces nothing. Methods that may legitimately skip a pass leave
	// it unset.
	strict bool

	passRaw int64
	passOut int64

	log       *zap.Logger
	onClose   func()
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

func newEngine(src Source, bufsize int, log *zap.Logger) *engine {
	return &engine{
		src:     src,
		bufsize: bufsize,
		buf:     make([]byte, bufsize),
		need:    func(missing int) int { return missing },
		log:     log,
	}
}

func (e *engine) Read(n int) ([]byte, int, error) {
	if e.closed.Load() {
		return nil, 0, ErrClosed
	}
	if n <= 0 {
		return nil, 0, nil
	}

	raw := 0
	for len(e.res) < n {
		want := e.bufsize
		if e.need != nil {
			want = min(e.need(n-len(e.res)), e.bufsize)
		}
		got, end, err := e.src.fill(e.buf[:want])
		if got > 0 {
			before := len(e.res)
			e.res = e.apply(e.res, e.buf[:got])
			raw += got
			e.count += int64(got)
			e.passRaw += int64(got)
			e.passOut += int64(len(e.res) - before)
		}
		if err != nil {
			e.res = nil
			return nil, raw, fmt.Errorf("%w: %w", ErrStream, err)
		}
		if !end {
			continue
		}

		if e.src.Kind() == KindSocket {
			e.log.Debug("stream ended", zap.Int("residual", len(e.res)), zap.Int64("raw_total", e.count))
			return e.take(len(e.res)), raw, nil
		}
		if err := e.wrapped(); err != nil {
			return nil, raw, err
		}
	}
	return e.take(n), raw, nil
}

// wrapped checks the pass that just completed over a file.
func (e *engine) wrapped() error {
	passRaw, passOut := e.passRaw, e.passOut
	e.passRaw, e.passOut = 0, 0
	if passRaw == 0 {
		return fmt.Errorf("%w: empty file", ErrNoMatch)
	}
	if e.strict && passOut == 0 {
		return fmt.Errorf("%w: %d bytes scanned", ErrNoMatch, passRaw)
	}
	e.log.Debug("file wrapped around", zap.Int64("pass_bytes", passRaw), zap.Int64("pass_matches", passOut))
	return nil
}

func (e *engine) take(n int) []byte {
	if n >= len(e.res) {
		out := e.res
		e.res = nil
		return out
	}
	out := e.res[:n:n]
	e.res = e.res[n:]
	return out
}

func (e *engine) Count() int64 { return e.count }

func (e *engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.onClose != nil {
			e.onClose()
		}
		e.res = nil
		if err := e.src.Close(); err != nil && !errors.Is(err, ErrClosed) {
			e.closeErr = err
		}
	})
	return e.closeErr
}
