package filter

// Partition splits a buffer of nbytes into contiguous chunks of m bytes and
// returns the cumulative end offset of each chunk. A trailing remainder
// becomes its own chunk when it is at least half of m and is folded into
// the last chunk otherwise. A buffer shorter than m is a single chunk.
func Partition(nbytes, m int) []int {
	if nbytes <= 0 {
		return nil
	}
	if m <= 0 || nbytes < m {
		return []int{nbytes}
	}

	k := nbytes / m
	r := nbytes - k*m
	bounds := make([]int, k, k+1)
	for i := range bounds {
		bounds[i] = (i + 1) * m
	}
	switch {
	case r == 0:
	case 2*r >= m:
		bounds = append(bounds, nbytes)
	default:
		bounds[k-1] = nbytes
	}
	return bounds
}

// Workers sizes the worker pool for a buffer of bufsize bytes and a
// minimum per-worker chunk of m bytes. When that would need more than cpus
// workers, m is enlarged so the pool never exceeds cpus; callers should
// report the adjusted value.
func Workers(bufsize, m, cpus int) (workers, mpws int) {
	if m <= 0 {
		return 1, bufsize
	}
	workers = int(float64(bufsize)/float64(m) + 0.5)
	if workers < 1 {
		return 1, m
	}
	if cpus < 1 {
		cpus = 1
	}
	if workers > cpus {
		return cpus, int(float64(bufsize) / (float64(cpus) - 0.5))
	}
	return workers, m
}
