package filter

import (
	"errors"
	"io"
)

// Kind tells how a Source behaves at the end of its data.
type Kind int

const (
	// KindFile streams wrap around to offset 0 at EOF.
	KindFile Kind = iota
	// KindSocket streams end when the peer closes.
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindSocket:
		return "socket"
	}
	return "unknown"
}

// Source is the byte stream a Filter consumes. The set of sources is
// closed; use FileSource or SocketSource.
type Source interface {
	Kind() Kind
	Close() error

	// fill reads up to len(p) bytes into p. end reports that the stream
	// reached its end during the call: a file source has rewound to
	// offset 0, a socket source has no more data.
	fill(p []byte) (n int, end bool, err error)
}

// FileSource returns a Source over a seekable stream that is logically
// infinite: reading restarts from offset 0 whenever EOF is reached. The
// first read rewinds r to offset 0. If r is an io.Closer it is closed
// with the filter.
func FileSource(r io.ReadSeeker) Source { return &fileSource{r: r} }

// SocketSource returns a Source that ends at the first io.EOF from r. If r
// is an io.Closer it is closed with the filter.
func SocketSource(r io.Reader) Source { return &socketSource{r: r} }

type fileSource struct {
	r       io.ReadSeeker
	started bool
}

func (s *fileSource) Kind() Kind { return KindFile }

func (s *fileSource) fill(p []byte) (int, bool, error) {
	if !s.started {
		if _, err := s.r.Seek(0, io.SeekStart); err != nil {
			return 0, false, err
		}
		s.started = true
	}

	n, err := io.ReadFull(s.r, p)
	if err == nil {
		return n, false, nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, false, err
	}
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		return n, true, err
	}
	return n, true, nil
}

func (s *fileSource) Close() error { return closeIfCloser(s.r) }

type socketSource struct {
	r   io.Reader
	eof bool
}

func (s *socketSource) Kind() Kind { return KindSocket }

func (s *socketSource) fill(p []byte) (int, bool, error) {
	if s.eof {
		return 0, true, nil
	}
	for {
		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			s.eof = true
			return n, true, nil
		}
		if err != nil || n > 0 || len(p) == 0 {
			return n, false, err
		}
	}
}

func (s *socketSource) Close() error { return closeIfCloser(s.r) }

func closeIfCloser(v any) error {
	if c, ok := v.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
