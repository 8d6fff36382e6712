package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// TCPListener is a TCP listener whose Accept honours context
// cancellation.
type TCPListener struct {
	ln *net.TCPListener
}

// ListenTCP listens on bind:port with SO_REUSEADDR set where supported.
func ListenTCP(ctx context.Context, bind string, port int) (*TCPListener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(bind, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln.(*net.TCPListener)}, nil
}

func (l *TCPListener) Accept(ctx context.Context) (Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := l.ln.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return c, nil
}

func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }

func (l *TCPListener) Close() error {
	err := l.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// DialTCP connects to addr, adding port when addr has none. A non-empty
// bind address is bound before connecting, with the kernel picking the
// local port.
func DialTCP(ctx context.Context, addr string, port int, bind string) (*net.TCPConn, error) {
	var d net.Dialer
	if bind != "" {
		local, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(bind, "0"))
		if err != nil {
			return nil, err
		}
		d.LocalAddr = local
	}
	c, err := d.DialContext(ctx, "tcp", Address(addr, port))
	if err != nil {
		return nil, err
	}
	return c.(*net.TCPConn), nil
}
