package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRingKeepsMostRecent(t *testing.T) {
	r := New(4)
	r.Write([]byte("ab"))
	assert.Equal(t, []byte("ab"), r.Bytes())

	r.Write([]byte("cd"))
	assert.Equal(t, []byte("abcd"), r.Bytes())

	r.Write([]byte("e"))
	assert.Equal(t, []byte("bcde"), r.Bytes())

	r.Write([]byte("fghij"))
	assert.Equal(t, []byte("ghij"), r.Bytes())
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, int64(10), r.Total())
}

func TestRingZeroCapacity(t *testing.T) {
	r := New(0)
	n, err := r.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Bytes())
	assert.Equal(t, int64(5), r.Total())
}

func TestRingReset(t *testing.T) {
	r := New(3)
	r.Write([]byte("xyz"))
	r.Reset()
	assert.Equal(t, 0, r.Len())
	r.Write([]byte("q"))
	assert.Equal(t, []byte("q"), r.Bytes())
}

func TestRingHoldsLastCapBytes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		writes := rapid.SliceOf(rapid.SliceOfN(rapid.Byte(), 0, 100)).Draw(t, "writes")

		r := New(capacity)
		var all []byte
		for _, w := range writes {
			r.Write(w)
			all = append(all, w...)

			want := all
			if len(want) > capacity {
				want = want[len(want)-capacity:]
			}
			if r.Len() > capacity {
				t.Fatalf("len %d exceeds capacity %d", r.Len(), capacity)
			}
			if got := r.Bytes(); !bytes.Equal(got, want) {
				t.Fatalf("ring holds %v, want %v", got, want)
			}
		}
		if r.Total() != int64(len(all)) {
			t.Fatalf("total %d, want %d", r.Total(), len(all))
		}
	})
}
