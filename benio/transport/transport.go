// Package transport establishes the byte streams transfers run over: plain
// TCP with bind-before-connect and SO_REUSEADDR, QUIC, and an optional LZ4
// compression layer on top of either.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"

	"github.com/ljishen/Pyben-nio/benio/transport/quic"
)

// Kind selects the transport protocol.
type Kind string

const (
	TCP  Kind = "tcp"
	QUIC Kind = "quic"
)

var ErrUnsupported = errors.New("transport: unsupported")

// ParseKind validates a transport name. The empty string means TCP.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", TCP:
		return TCP, nil
	case QUIC:
		return QUIC, nil
	}
	return "", fmt.Errorf("%w: transport %q", ErrUnsupported, s)
}

// Conn is an established transfer stream.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// Listener accepts transfer streams.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

// Address joins host and port unless host already carries a port.
func Address(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Listen opens a listener of the given kind on bind:port.
func Listen(ctx context.Context, kind Kind, bind string, port int) (Listener, error) {
	switch kind {
	case "", TCP:
		ln, err := ListenTCP(ctx, bind, port)
		if err != nil {
			return nil, err
		}
		return ln, nil
	case QUIC:
		ln, err := quic.Listen(Address(bind, port))
		if err != nil {
			return nil, err
		}
		return quicListener{ln}, nil
	}
	return nil, fmt.Errorf("%w: transport %q", ErrUnsupported, kind)
}

// Dial connects to addr, which may carry its own port. bind selects the
// local address for TCP; it is ignored for QUIC.
func Dial(ctx context.Context, kind Kind, addr string, port int, bind string) (Conn, error) {
	switch kind {
	case "", TCP:
		c, err := DialTCP(ctx, addr, port, bind)
		if err != nil {
			return nil, err
		}
		return c, nil
	case QUIC:
		if bind != "" {
			return nil, fmt.Errorf("%w: bind address with quic", ErrUnsupported)
		}
		st, err := quic.Dial(ctx, Address(addr, port))
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: transport %q", ErrUnsupported, kind)
}

type quicListener struct {
	ln *quic.Listener
}

func (l quicListener) Accept(ctx context.Context) (Conn, error) {
	st, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (l quicListener) Addr() net.Addr { return l.ln.Addr() }

func (l quicListener) Close() error { return l.ln.Close() }

// PeerGone reports whether err means the remote side closed or reset the
// stream, which ends a transfer without failing it.
func PeerGone(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		quic.PeerGone(err)
}
