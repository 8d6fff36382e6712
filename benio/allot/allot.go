// Package allot splits a transfer size across workers.
package allot

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for a non-positive worker count or a
// negative total.
var ErrInvalidArgument = errors.New("allot: invalid argument")

// Sizes splits total into n parts that differ by at most one. The remainder
// total%n is handed out one unit at a time to the first workers, so the
// result is stable for identical inputs.
func Sizes(total int64, n int) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: worker count %d", ErrInvalidArgument, n)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total %d", ErrInvalidArgument, total)
	}

	base := total / int64(n)
	left := total - base*int64(n)

	sizes := make([]int64, n)
	for i := range sizes {
		sizes[i] = base
		if int64(i) < left {
			sizes[i]++
		}
	}
	return sizes, nil
}

// Offsets returns the starting offset of each part produced by Sizes.
func Offsets(sizes []int64) []int64 {
	offsets := make([]int64, len(sizes))
	var off int64
	for i, s := range sizes {
		offsets[i] = off
		off += s
	}
	return offsets
}
