package transport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = iota // Fastest, lower ratio
	CompressionDefault                         // Balanced
	CompressionBest                            // Best ratio, slower
)

// ParseCompressionLevel maps "fast", "default" and "best" to a level.
func ParseCompressionLevel(s string) (CompressionLevel, error) {
	switch s {
	case "fast":
		return CompressionFast, nil
	case "", "default":
		return CompressionDefault, nil
	case "best":
		return CompressionBest, nil
	}
	return 0, fmt.Errorf("%w: compression level %q", ErrUnsupported, s)
}

func (l CompressionLevel) option() lz4.Option {
	switch l {
	case CompressionFast:
		return lz4.CompressionLevelOption(lz4.Fast)
	case CompressionBest:
		return lz4.CompressionLevelOption(lz4.Level9)
	default:
		return lz4.CompressionLevelOption(lz4.Level4)
	}
}

// Compress layers an LZ4 frame over both directions of c. Every Write is
// flushed as its own block, so the peer can decode it without waiting for
// more data. Close ends the frame, if anything was written, and closes c.
func Compress(c Conn, level CompressionLevel) (Conn, error) {
	zw := lz4.NewWriter(c)
	if err := zw.Apply(lz4.BlockSizeOption(lz4.Block64Kb), level.option()); err != nil {
		return nil, err
	}
	return &compressedConn{Conn: c, zr: lz4.NewReader(c), zw: zw}, nil
}

type compressedConn struct {
	Conn
	zr *lz4.Reader
	zw *lz4.Writer

	wrote     bool
	closeOnce sync.Once
	closeErr  error
}

func (c *compressedConn) Read(p []byte) (int, error) { return c.zr.Read(p) }

func (c *compressedConn) Write(p []byte) (int, error) {
	c.wrote = true
	n, err := c.zw.Write(p)
	if err != nil {
		return n, err
	}
	return n, c.zw.Flush()
}

func (c *compressedConn) Close() error {
	c.closeOnce.Do(func() {
		var werr error
		if c.wrote {
			werr = c.zw.Close()
		}
		c.closeErr = errors.Join(werr, c.Conn.Close())
	})
	return c.closeErr
}
