package allot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSizes(t *testing.T) {
	tests := []struct {
		total int64
		n     int
		want  []int64
	}{
		{0, 1, []int64{0}},
		{10, 3, []int64{4, 3, 3}},
		{100, 2, []int64{50, 50}},
		{7, 4, []int64{2, 2, 2, 1}},
		{2, 5, []int64{1, 1, 0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := Sizes(tt.total, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Sizes(%d, %d)", tt.total, tt.n)
	}
}

func TestSizesInvalid(t *testing.T) {
	_, err := Sizes(10, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Sizes(10, -2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Sizes(-1, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOffsets(t *testing.T) {
	assert.Equal(t, []int64{0, 4, 7}, Offsets([]int64{4, 3, 3}))
	assert.Empty(t, Offsets(nil))
}

func TestSizesProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Int64Range(0, 1<<40).Draw(t, "total")
		n := rapid.IntRange(1, 512).Draw(t, "n")

		sizes, err := Sizes(total, n)
		if err != nil {
			t.Fatalf("Sizes: %v", err)
		}
		if len(sizes) != n {
			t.Fatalf("expected %d parts, got %d", n, len(sizes))
		}

		base := total / int64(n)
		var sum int64
		for i, s := range sizes {
			if s != base && s != base+1 {
				t.Fatalf("part %d = %d, not within 1 of %d", i, s, base)
			}
			if i > 0 && s > sizes[i-1] {
				t.Fatalf("remainder not given to the first workers: %v", sizes)
			}
			sum += s
		}
		if sum != total {
			t.Fatalf("sum %d != total %d", sum, total)
		}

		again, _ := Sizes(total, n)
		if len(again) != len(sizes) {
			t.Fatalf("not deterministic")
		}
		for i := range again {
			if again[i] != sizes[i] {
				t.Fatalf("not deterministic at %d", i)
			}
		}
	})
}
