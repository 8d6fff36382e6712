// Package quic carries benchmark transfers over a single QUIC stream per
// connection.
package quic

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"
)

// Linger bounds how long a server-side Stream waits on Close for the
// client to finish reading before tearing the connection down.
var Linger = 5 * time.Second

func config() *q.Config {
	return &q.Config{KeepAlivePeriod: 10 * time.Second}
}

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, config())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

// Accept waits for a connection and its first stream.
func (l *Listener) Accept(ctx context.Context) (*Stream, error) {
	conn, err := l.inner.Accept(ctx)
	if err != nil {
		return nil, err
	}
	st, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, err
	}
	return &Stream{Stream: st, conn: conn, server: true}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects to addr and opens the transfer stream.
func Dial(ctx context.Context, addr string) (*Stream, error) {
	conn, err := q.DialAddr(ctx, addr, NewClientTLSConfig(), config())
	if err != nil {
		return nil, err
	}
	st, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, err
	}
	return &Stream{Stream: st, conn: conn}, nil
}

// Stream is one bidirectional QUIC stream that owns its connection.
type Stream struct {
	*q.Stream
	conn   *q.Conn
	server bool

	closeOnce sync.Once
	closeErr  error
}

func (s *Stream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *Stream) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Close finishes the send side. A server stream then waits until the
// client closes the connection, or Linger elapses, so data in flight is
// not discarded.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Stream.Close()
		if s.server {
			t := time.NewTimer(Linger)
			select {
			case <-s.conn.Context().Done():
			case <-t.C:
			}
			t.Stop()
		} else {
			s.CancelRead(0)
		}
		if err := s.conn.CloseWithError(0, ""); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// PeerGone reports whether err means the remote side closed or reset the
// connection.
func PeerGone(err error) bool {
	var appErr *q.ApplicationError
	if errors.As(err, &appErr) && appErr.Remote {
		return true
	}
	var streamErr *q.StreamError
	if errors.As(err, &streamErr) && streamErr.Remote {
		return true
	}
	var idle *q.IdleTimeoutError
	return errors.As(err, &idle)
}
