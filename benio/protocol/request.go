package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is carried in every request. Servers reject other versions.
const Version = 1

const requestLen = 9

var (
	ErrBadRequest = errors.New("protocol: malformed request")
	ErrVersion    = errors.New("protocol: unsupported version")
)

// Request asks the server for Size bytes. Size 0 leaves the amount to the
// server.
type Request struct {
	Size int64
}

func (r Request) MarshalBinary() ([]byte, error) {
	if r.Size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrBadRequest, r.Size)
	}
	b := make([]byte, requestLen)
	b[0] = Version
	binary.BigEndian.PutUint64(b[1:], uint64(r.Size))
	return b, nil
}

func (r *Request) UnmarshalBinary(b []byte) error {
	if len(b) != requestLen {
		return fmt.Errorf("%w: %d byte payload", ErrBadRequest, len(b))
	}
	if b[0] != Version {
		return fmt.Errorf("%w: %d", ErrVersion, b[0])
	}
	size := binary.BigEndian.Uint64(b[1:])
	if size > 1<<62 {
		return fmt.Errorf("%w: size %d out of range", ErrBadRequest, size)
	}
	r.Size = int64(size)
	return nil
}

// WriteRequest sends req as a single frame.
func WriteRequest(w io.Writer, req Request) error {
	payload, err := req.MarshalBinary()
	if err != nil {
		return err
	}
	return WriteFrame(w, Frame{Type: MessageTypeRequest, Payload: payload})
}

// ReadRequest reads one frame and decodes it as a Request.
func ReadRequest(r io.Reader) (Request, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return Request{}, err
	}
	if f.Type != MessageTypeRequest {
		return Request{}, fmt.Errorf("%w: got %s", ErrInvalidType, f.Type)
	}
	var req Request
	if err := req.UnmarshalBinary(f.Payload); err != nil {
		return Request{}, err
	}
	return req, nil
}
