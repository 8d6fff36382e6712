package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		nbytes, m int
		want      []int
	}{
		{10, 3, []int{3, 6, 10}},
		{11, 3, []int{3, 6, 9, 11}},
		{9, 3, []int{3, 6, 9}},
		{5, 10, []int{5}},
		{4096, 4096, []int{4096}},
		{7, 0, []int{7}},
		{0, 3, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Partition(tt.nbytes, tt.m), "Partition(%d, %d)", tt.nbytes, tt.m)
	}
}

func TestPartitionProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nbytes := rapid.IntRange(1, 1<<20).Draw(t, "nbytes")
		m := rapid.IntRange(1, 1<<16).Draw(t, "m")

		bounds := Partition(nbytes, m)
		if len(bounds) == 0 {
			t.Fatalf("no chunks for %d bytes", nbytes)
		}
		if last := bounds[len(bounds)-1]; last != nbytes {
			t.Fatalf("last boundary %d, want %d", last, nbytes)
		}
		prev := 0
		for i, b := range bounds {
			if b <= prev {
				t.Fatalf("boundary %d not increasing: %v", i, bounds)
			}
			if i < len(bounds)-1 && b-prev != m {
				t.Fatalf("chunk %d has %d bytes, want %d", i, b-prev, m)
			}
			prev = b
		}
		if nbytes >= m {
			lastChunk := nbytes - func() int {
				if len(bounds) == 1 {
					return 0
				}
				return bounds[len(bounds)-2]
			}()
			if lastChunk < (m+1)/2 {
				t.Fatalf("last chunk %d smaller than half of %d", lastChunk, m)
			}
		}
	})
}

func TestWorkers(t *testing.T) {
	tests := []struct {
		name                 string
		bufsize, m, cpus     int
		wantWorkers, wantMin int
	}{
		{"buffer smaller than chunk", 4096, 50 << 20, 8, 1, 50 << 20},
		{"fits", 100, 30, 8, 3, 30},
		{"rounds half up", 100, 40, 8, 3, 40},
		{"capped by cpus", 100, 10, 4, 4, 28},
		{"single cpu", 100, 10, 1, 1, 200},
		{"zero chunk", 100, 0, 4, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, m := Workers(tt.bufsize, tt.m, tt.cpus)
			assert.Equal(t, tt.wantWorkers, w)
			assert.Equal(t, tt.wantMin, m)
		})
	}
}

func TestWorkersNeverExceedCPUs(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bufsize := rapid.IntRange(1, 1<<22).Draw(t, "bufsize")
		m := rapid.IntRange(1, 1<<20).Draw(t, "m")
		cpus := rapid.IntRange(1, 64).Draw(t, "cpus")

		w, mpws := Workers(bufsize, m, cpus)
		if w < 1 || w > cpus {
			t.Fatalf("workers %d outside [1, %d]", w, cpus)
		}
		if mpws < m {
			t.Fatalf("per-worker size shrank from %d to %d", m, mpws)
		}
	})
}
