package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxFramePayload limits a single protocol frame payload.
	MaxFramePayload = 1 << 16

	headerLen = 5
)

var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
	ErrInvalidType   = errors.New("protocol: invalid message type")
)

// Frame is the wire container exchanged before the data stream starts.
// Format:
//
//	1 byte: type
//	4 bytes: payload length (big endian)
//	N bytes: payload
//
// ReadFrame consumes exactly one frame, so the bytes that follow stay on
// the connection for the data path.
type Frame struct {
	Type    MessageType
	Payload []byte
}

func WriteFrame(w io.Writer, f Frame) error {
	if f.Type == 0 {
		return ErrInvalidType
	}
	if len(f.Payload) > MaxFramePayload {
		return ErrFrameTooLarge
	}

	buf := make([]byte, headerLen+len(f.Payload))
	buf[0] = byte(f.Type)
	binary.BigEndian.PutUint32(buf[1:headerLen], uint32(len(f.Payload)))
	copy(buf[headerLen:], f.Payload)
	_, err := w.Write(buf)
	return err
}

func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	mt := MessageType(hdr[0])
	if mt == 0 {
		return Frame{}, ErrInvalidType
	}
	payloadLen := binary.BigEndian.Uint32(hdr[1:])
	if payloadLen > MaxFramePayload {
		return Frame{}, fmt.Errorf("%w: %d", ErrFrameTooLarge, payloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Type: mt, Payload: payload}, nil
}
