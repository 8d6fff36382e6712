package transport

import (
	"errors"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

const maxSendfileChunk = 1 << 30

func sendfile(conn *net.TCPConn, f *os.File, offset, count int64) (int64, bool, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, false, nil
	}
	src := int(f.Fd())

	var (
		sent    int64
		off     = offset
		sendErr error
	)
	err = rc.Write(func(fd uintptr) bool {
		for sent < count {
			n, err := unix.Sendfile(int(fd), src, &off, int(min(count-sent, maxSendfileChunk)))
			if n > 0 {
				sent += int64(n)
			}
			switch {
			case errors.Is(err, unix.EAGAIN):
				return false
			case errors.Is(err, unix.EINTR):
				continue
			case err != nil:
				sendErr = err
				return true
			case n == 0:
				sendErr = errors.New("unexpected end of file")
				return true
			}
		}
		return true
	})
	if err == nil {
		err = sendErr
	}
	if err != nil {
		return sent, true, &SendfileError{Offset: offset + sent, Err: err}
	}
	return sent, true, nil
}
