package datafile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/ljishen/Pyben-nio/benio/allot"
)

const digitChunk = 1 << 20

// Digits writes count random ASCII digits to path, splitting the work
// across workers goroutines that each fill their own region of the file.
// With a seed the output depends only on seed, count and workers.
func Digits(ctx context.Context, path string, count int64, workers int, seed string) error {
	if count <= 0 {
		return fmt.Errorf("%w: count %d", ErrEmptyFile, count)
	}
	sizes, err := allot.Sizes(count, workers)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(count); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, off := range allot.Offsets(sizes) {
		n := sizes[i]
		if n == 0 {
			continue
		}
		g.Go(func() error {
			ks, err := keystream(seed, uint32(i))
			if err != nil {
				return err
			}
			return writeDigits(ctx, io.NewOffsetWriter(f, off), &streamReader{s: ks}, n)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return f.Sync()
}

// writeDigits maps random bytes below 250 onto '0'..'9' and drops the
// rest, so every digit is equally likely.
func writeDigits(ctx context.Context, w io.Writer, src io.Reader, n int64) error {
	bw := bufio.NewWriterSize(w, digitChunk)
	raw := make([]byte, digitChunk)
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(src, raw); err != nil {
			return err
		}
		for _, b := range raw {
			if b >= 250 {
				continue
			}
			if err := bw.WriteByte('0' + b%10); err != nil {
				return err
			}
			if n--; n == 0 {
				break
			}
		}
	}
	return bw.Flush()
}
