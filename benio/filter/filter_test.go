package filter

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/ljishen/Pyben-nio/benio/filter/predicate"
)

func synthetic(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + i>>8)
	}
	return data
}

func sequential(pred predicate.Predicate, data []byte) []byte {
	var out []byte
	for _, b := range data {
		if pred.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

func readAll(t testing.TB, f Filter, n int) []byte {
	var out []byte
	for {
		data, raw, err := f.Read(n)
		require.NoError(t, err)
		if raw == 0 && len(data) == 0 {
			return out
		}
		out = append(out, data...)
	}
}

// closeTracker records Close calls on a wrapped stream.
type closeTracker struct {
	io.ReadSeeker
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

// failingReader returns its data and then err.
type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestScenarioEvenBytesFromWrappingFile(t *testing.T) {
	const (
		fileSize = 1_000_000
		request  = 500_000
		bufsize  = 4096
	)
	data := synthetic(fileSize)
	even := sequential(predicate.MustCompile("lambda v: v % 2 == 0"), data)
	require.NotEmpty(t, even)

	f, err := New("match", FileSource(bytes.NewReader(data)), bufsize,
		[]string{"func=lambda v: v % 2 == 0", "mpws=1GB"}, zap.NewNop())
	require.NoError(t, err)
	defer f.Close()
	assert.Nil(t, f.(*match).pool, "a chunk larger than the buffer forces a single worker")

	var got []byte
	for left := request; left > 0; {
		chunk, _, err := f.Read(min(bufsize, left))
		require.NoError(t, err)
		require.Len(t, chunk, min(bufsize, left))
		got = append(got, chunk...)
		left -= len(chunk)
	}

	want := make([]byte, 0, request)
	for len(want) < request {
		want = append(want, even[:min(len(even), request-len(want))]...)
	}
	assert.True(t, bytes.Equal(want, got), "delivered bytes differ from the even bytes of the file in order")
	assert.Greater(t, f.Count(), int64(request))
}

func TestScenarioNoMatchOnFile(t *testing.T) {
	data := bytes.Repeat([]byte{1, 3, 5, 7}, 1000)
	f, err := New("match", FileSource(bytes.NewReader(data)), 512, []string{"func=lambda v: v % 2 == 0"}, nil)
	require.NoError(t, err)
	defer f.Close()

	out, raw, err := f.Read(100)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Empty(t, out)
	assert.Equal(t, len(data), raw)
	assert.Equal(t, int64(len(data)), f.Count())
}

func TestEmptyFileIsNoMatch(t *testing.T) {
	for _, method := range []string{"raw", "linspace"} {
		f, err := New(method, FileSource(bytes.NewReader(nil)), 64, nil, nil)
		require.NoError(t, err)
		_, _, err = f.Read(10)
		assert.ErrorIs(t, err, ErrNoMatch, method)
		require.NoError(t, f.Close())
	}
}

func TestFileWrapsAroundForRaw(t *testing.T) {
	data := []byte("abcdefg")
	f, err := New("raw", FileSource(bytes.NewReader(data)), 4, nil, nil)
	require.NoError(t, err)

	var got []byte
	for len(got) < 20 {
		chunk, raw, err := f.Read(3)
		require.NoError(t, err)
		require.Len(t, chunk, 3)
		assert.Equal(t, 3, raw)
		got = append(got, chunk...)
	}
	assert.Equal(t, "abcdefgabcdefgabcdefg", string(got))
	assert.Equal(t, int64(21), f.Count())
}

func TestFileSourceRewindsFirst(t *testing.T) {
	r := bytes.NewReader([]byte("0123456789"))
	_, err := r.Seek(7, io.SeekStart)
	require.NoError(t, err)

	f, err := New("raw", FileSource(r), 16, nil, nil)
	require.NoError(t, err)
	got, _, err := f.Read(4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(got))
}

func TestSocketPartialRead(t *testing.T) {
	f, err := New("raw", SocketSource(bytes.NewReader([]byte("0123456789"))), 4, nil, nil)
	require.NoError(t, err)
	defer f.Close()

	got, raw, err := f.Read(8)
	require.NoError(t, err)
	assert.Equal(t, "01234567", string(got))
	assert.Equal(t, 8, raw)

	got, raw, err = f.Read(8)
	require.NoError(t, err)
	assert.Equal(t, "89", string(got))
	assert.Equal(t, 2, raw)

	got, raw, err = f.Read(8)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, raw)
	assert.Equal(t, int64(10), f.Count())
}

func TestSocketMatchKeepsResidualAcrossReads(t *testing.T) {
	data := synthetic(10_000)
	pred := predicate.MustCompile("b < 100")
	f, err := New("match", SocketSource(bytes.NewReader(data)), 1024, []string{"func=b < 100"}, nil)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, sequential(pred, data), readAll(t, f, 37))
	assert.Equal(t, int64(len(data)), f.Count())
}

func TestSocketNoMatchIsNotAnError(t *testing.T) {
	f, err := New("match", SocketSource(bytes.NewReader([]byte{1, 3, 5})), 16, []string{"func=b % 2 == 0"}, nil)
	require.NoError(t, err)
	data, raw, err := f.Read(16)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, 3, raw)
}

func TestStreamError(t *testing.T) {
	boom := errors.New("connection reset")
	f, err := New("raw", SocketSource(&failingReader{data: []byte("abc"), err: boom}), 2, nil, nil)
	require.NoError(t, err)

	_, _, err = f.Read(2)
	require.NoError(t, err)
	_, raw, err := f.Read(8)
	assert.ErrorIs(t, err, ErrStream)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, raw)
}

func TestCloseIdempotent(t *testing.T) {
	tracker := &closeTracker{ReadSeeker: bytes.NewReader([]byte("abc"))}
	f, err := New("match", FileSource(tracker), 2, []string{"func=true", "mpws=1"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, 1, tracker.closed)

	_, _, err = f.Read(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseAfterFailure(t *testing.T) {
	f, err := New("match", FileSource(bytes.NewReader([]byte{1})), 8, []string{"func=false"}, nil)
	require.NoError(t, err)
	_, _, err = f.Read(1)
	require.ErrorIs(t, err, ErrNoMatch)
	assert.NoError(t, f.Close())
}

func TestPoolPreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 4096).Draw(t, "data")
		mod := rapid.ByteRange(1, 7).Draw(t, "mod")
		m := rapid.IntRange(1, len(data)).Draw(t, "m")
		workers := rapid.IntRange(1, 8).Draw(t, "workers")
		pred := predicate.FromFunc("mod", func(b byte) bool { return b%mod == 0 })

		p := newPool(&pred, workers)
		defer p.close()

		prefix := []byte{0xAA}
		got := p.run(append([]byte(nil), prefix...), data, Partition(len(data), m))
		want := append(append([]byte(nil), prefix...), sequential(pred, data)...)
		if !bytes.Equal(got, want) {
			t.Fatalf("parallel output differs from sequential reference")
		}
	})
}

func TestMatchParallelMatchesSequential(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 20_000).Draw(t, "data")
		bufsize := rapid.IntRange(1, 4096).Draw(t, "bufsize")
		mpws := rapid.IntRange(1, bufsize).Draw(t, "mpws")
		workers := rapid.IntRange(1, 6).Draw(t, "workers")
		readSize := rapid.IntRange(1, 5000).Draw(t, "read")
		pred := predicate.FromFunc("low-bit", func(b byte) bool { return b&1 == 1 })

		f := newMatch(SocketSource(bytes.NewReader(data)), bufsize, pred, mpws, workers, zap.NewNop())
		defer f.Close()

		var got []byte
		for {
			chunk, raw, err := f.Read(readSize)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if raw == 0 && len(chunk) == 0 {
				break
			}
			got = append(got, chunk...)
		}
		if !bytes.Equal(got, sequential(pred, data)) {
			t.Fatalf("filtered stream differs from sequential reference")
		}
		if f.Count() != int64(len(data)) {
			t.Fatalf("count %d, want %d", f.Count(), len(data))
		}
	})
}

func TestResidualExactness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 3000).Draw(t, "data")
		data[rapid.IntRange(0, len(data)-1).Draw(t, "hit")] = 0
		bufsize := rapid.IntRange(1, 1024).Draw(t, "bufsize")
		pred := predicate.FromFunc("small", func(b byte) bool { return b < 64 })

		f := newMatch(FileSource(bytes.NewReader(data)), bufsize, pred, max(1, bufsize/3), 3, zap.NewNop())
		defer f.Close()

		for i := 0; i < 20; i++ {
			n := rapid.IntRange(1, 2048).Draw(t, "n")
			chunk, _, err := f.Read(n)
			if err != nil {
				t.Fatalf("read %d: %v", n, err)
			}
			if len(chunk) != n {
				t.Fatalf("read %d returned %d bytes", n, len(chunk))
			}
		}
	})
}

func TestLinspaceAcrossWraparound(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	f, err := New("linspace", FileSource(bytes.NewReader(data)), 4, []string{"step=3"}, nil)
	require.NoError(t, err)
	defer f.Close()

	got, _, err := f.Read(5)
	require.NoError(t, err)
	more, _, err := f.Read(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 3, 6, 9, 2, 5, 8, 1}, append(got, more...))
}

func TestLinspaceSocket(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	f, err := New("linspace", SocketSource(bytes.NewReader(data)), 3, []string{"step:4"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 4, 8}, readAll(t, f, 100))
}

func TestLinspaceFileShorterThanStep(t *testing.T) {
	f, err := New("linspace", FileSource(bytes.NewReader([]byte{10, 11, 12})), 8, []string{"step=5"}, nil)
	require.NoError(t, err)
	got, _, err := f.Read(3)
	require.NoError(t, err)
	// positions 0, 5, 10 of the repeated file
	assert.Equal(t, []byte{10, 12, 11}, got)
}

// readRecorder records the size of every read on the wrapped stream.
type readRecorder struct {
	io.ReadSeeker
	sizes []int
}

func (r *readRecorder) Read(p []byte) (int, error) {
	n, err := r.ReadSeeker.Read(p)
	r.sizes = append(r.sizes, n)
	return n, err
}

func TestMatchReadsWholeBuffers(t *testing.T) {
	const bufsize = 4096
	tests := []struct {
		name  string
		pred  string
		n     int
		fills int
	}{
		{name: "half selective", pred: "lambda v: bitand(v, 1) == 0", n: bufsize, fills: 3},
		// synthetic data holds one 7 per aligned 256 bytes
		{name: "sparse", pred: "b == 7", n: 64, fills: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &readRecorder{ReadSeeker: bytes.NewReader(synthetic(1 << 20))}
			f := newMatch(FileSource(rec), bufsize, predicate.MustCompile(tt.pred), 1024, 4, zap.NewNop())
			defer f.Close()
			require.NotNil(t, f.pool)

			data, raw, err := f.Read(tt.n)
			require.NoError(t, err)
			require.Len(t, data, tt.n)
			assert.LessOrEqual(t, len(rec.sizes), tt.fills)
			for _, n := range rec.sizes {
				assert.Equal(t, bufsize, n)
			}
			assert.Equal(t, bufsize*len(rec.sizes), raw)
		})
	}
}

func TestMatchWarnsWhenCPUsAreShort(t *testing.T) {
	cpus := runtime.GOMAXPROCS(0)
	bufsize := 4*cpus + 8

	core, logs := observer.New(zap.WarnLevel)
	f, err := New("match", FileSource(bytes.NewReader(synthetic(64))), bufsize,
		[]string{"func=true", "mpws=1"}, zap.New(core))
	require.NoError(t, err)
	defer f.Close()

	warned := logs.FilterMessage("not enough CPUs available, enlarging per-worker size").All()
	require.Len(t, warned, 1)
	fields := warned[0].ContextMap()
	assert.Equal(t, int64(1), fields["requested"])
	assert.Equal(t, int64(float64(bufsize)/(float64(cpus)-0.5)), fields["effective"])

	data, _, err := f.Read(10)
	require.NoError(t, err)
	assert.Equal(t, synthetic(10), data)
}

func TestMatchNoWarningWhenCPUsSuffice(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f, err := New("match", FileSource(bytes.NewReader(synthetic(64))), 64,
		[]string{"func=true", "mpws=1GB"}, zap.New(core))
	require.NoError(t, err)
	defer f.Close()
	assert.Zero(t, logs.Len())
}
