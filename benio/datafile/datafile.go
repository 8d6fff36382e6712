// Package datafile provides the files a server streams from: an existing
// file, a temporary file filled with a ChaCha20 keystream, or a file of
// random ASCII digits generated in parallel.
package datafile

import (
	"bufio"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20"
)

var ErrEmptyFile = errors.New("datafile: empty file")

// File is a read-only data file. Workers take independent readers from it
// with Section, so one File serves any number of connections.
type File struct {
	f    *os.File
	size int64
	name string
}

// Open opens an existing data file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return &File{f: f, size: st.Size(), name: path}, nil
}

// Temp creates an unlinked temporary file of size bytes. The content is a
// ChaCha20 keystream keyed by seed, or by random bytes when seed is empty.
func Temp(size int64, seed string) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrEmptyFile, size)
	}
	f, err := os.CreateTemp("", "benio-*.dat")
	if err != nil {
		return nil, err
	}
	// The name is not needed once the descriptor is open.
	_ = os.Remove(f.Name())

	stream, err := keystream(seed, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := io.CopyN(w, &streamReader{s: stream}, size); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, size: size, name: f.Name()}, nil
}

func (d *File) Size() int64 { return d.size }

func (d *File) Name() string { return d.name }

// Section returns a reader over the whole file with its own offset.
func (d *File) Section() *io.SectionReader { return io.NewSectionReader(d.f, 0, d.size) }

// OSFile exposes the descriptor for zero-copy sends.
func (d *File) OSFile() *os.File { return d.f }

func (d *File) Close() error { return d.f.Close() }

// keystream returns a ChaCha20 stream keyed by the SHA-256 of seed. The
// stream number selects the nonce, so parallel writers draw from
// independent streams.
func keystream(seed string, stream uint32) (*chacha20.Cipher, error) {
	var key [chacha20.KeySize]byte
	if seed == "" {
		if _, err := rand.Read(key[:]); err != nil {
			return nil, err
		}
	} else {
		key = sha256.Sum256([]byte(seed))
	}
	var nonce [chacha20.NonceSize]byte
	nonce[0] = byte(stream)
	nonce[1] = byte(stream >> 8)
	nonce[2] = byte(stream >> 16)
	nonce[3] = byte(stream >> 24)
	return chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
}

type streamReader struct {
	s *chacha20.Cipher
}

func (r *streamReader) Read(p []byte) (int, error) {
	clear(p)
	r.s.XORKeyStream(p, p)
	return len(p), nil
}
