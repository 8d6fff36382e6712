package transport

import (
	"fmt"
	"io"
	"net"
	"os"
)

// SendfileError reports a zero-copy send that failed part way.
type SendfileError struct {
	Offset int64
	Err    error
}

func (e *SendfileError) Error() string {
	return fmt.Sprintf("transport: sendfile at offset %d: %v", e.Offset, e.Err)
}

func (e *SendfileError) Unwrap() error { return e.Err }

// SendFile writes count bytes of f starting at offset to conn. On Linux a
// TCP conn is fed with sendfile(2) so the data never enters user space;
// elsewhere, and for other conns, it falls back to a buffered copy. It
// returns the number of bytes sent, also on error.
func SendFile(conn net.Conn, f *os.File, offset, count int64) (int64, error) {
	if count <= 0 {
		return 0, nil
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if n, handled, err := sendfile(tc, f, offset, count); handled {
			return n, err
		}
	}
	n, err := io.Copy(conn, io.NewSectionReader(f, offset, count))
	if err == nil && n < count {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return n, &SendfileError{Offset: offset + n, Err: err}
	}
	return n, nil
}
